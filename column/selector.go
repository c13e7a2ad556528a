/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package column defines how aggregators read column values from the query
// engine, one row at a time or one vector at a time, and provides
// implementations backed by Go slices, Apache Arrow arrays and SQL result sets.
package column

// DefaultVectorSize is the vector size used when none is configured.
const DefaultVectorSize = 512

// ValueSelector reads the value of one column at the engine's current row.
// The engine owns the cursor; aggregators only read.
type ValueSelector interface {
	// ReadScalar returns the value at the current row, or nil when the value is null.
	ReadScalar() any
}

// VectorSelector reads the values of one column for the engine's current vector.
type VectorSelector interface {
	// MaxVectorSize returns the largest number of rows a vector can hold.
	MaxVectorSize() int

	// ReadBatch returns the first count values of the current vector.
	// Null values are returned as nil entries. The returned slice is only
	// valid until the engine advances to the next vector.
	ReadBatch(count int) []any
}

// Cursor is implemented by selectors that can move themselves forward.
// Engines that drive their own row pointer do not need it.
type Cursor interface {
	// Advance moves to the next row (or vector) and reports whether one exists.
	Advance() bool

	// Reset rewinds to the first row (or vector).
	Reset()
}
