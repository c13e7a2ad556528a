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

package column

// SliceSelector is a row cursor over an in-memory slice of values.
// It starts before the first row; call Advance before reading.
type SliceSelector struct {
	values []any
	pos    int
}

// NewSliceSelector creates a row cursor over values.
func NewSliceSelector(values ...any) *SliceSelector {
	return &SliceSelector{values: values, pos: -1}
}

// ReadScalar returns the value at the current row.
func (s *SliceSelector) ReadScalar() any {
	if s.pos < 0 || s.pos >= len(s.values) {
		return nil
	}
	return s.values[s.pos]
}

// Advance moves to the next row.
func (s *SliceSelector) Advance() bool {
	if s.pos+1 >= len(s.values) {
		s.pos = len(s.values)
		return false
	}
	s.pos++
	return true
}

// Reset rewinds the cursor.
func (s *SliceSelector) Reset() {
	s.pos = -1
}

// Len returns the number of rows.
func (s *SliceSelector) Len() int {
	return len(s.values)
}

// SliceVectorSelector walks an in-memory slice of values in vectors of a fixed size.
// It starts before the first vector; call Advance before reading.
type SliceVectorSelector struct {
	values     []any
	vectorSize int
	start      int
	end        int
}

// NewSliceVectorSelector creates a vector cursor over values.
func NewSliceVectorSelector(vectorSize int, values ...any) *SliceVectorSelector {
	if vectorSize <= 0 {
		vectorSize = DefaultVectorSize
	}
	return &SliceVectorSelector{values: values, vectorSize: vectorSize}
}

// MaxVectorSize returns the configured vector size.
func (s *SliceVectorSelector) MaxVectorSize() int {
	return s.vectorSize
}

// CurrentVectorSize returns the number of rows in the current vector.
func (s *SliceVectorSelector) CurrentVectorSize() int {
	return s.end - s.start
}

// ReadBatch returns the first count values of the current vector.
func (s *SliceVectorSelector) ReadBatch(count int) []any {
	count = min(count, s.end-s.start)
	return s.values[s.start : s.start+count]
}

// Advance moves to the next vector.
func (s *SliceVectorSelector) Advance() bool {
	if s.end >= len(s.values) {
		s.start = s.end
		return false
	}
	s.start = s.end
	s.end = min(s.start+s.vectorSize, len(s.values))
	return true
}

// Reset rewinds the cursor.
func (s *SliceVectorSelector) Reset() {
	s.start = 0
	s.end = 0
}

var (
	_ ValueSelector  = (*SliceSelector)(nil)
	_ Cursor         = (*SliceSelector)(nil)
	_ VectorSelector = (*SliceVectorSelector)(nil)
	_ Cursor         = (*SliceVectorSelector)(nil)
)
