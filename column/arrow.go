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

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ArrowValueSelector is a row cursor over an Arrow array.
// It retains the array until Release is called.
type ArrowValueSelector struct {
	arr arrow.Array
	pos int
}

// NewArrowValueSelector creates a row cursor over arr.
func NewArrowValueSelector(arr arrow.Array) *ArrowValueSelector {
	arr.Retain()
	return &ArrowValueSelector{arr: arr, pos: -1}
}

// ReadScalar returns the value at the current row.
func (s *ArrowValueSelector) ReadScalar() any {
	if s.pos < 0 || s.pos >= s.arr.Len() {
		return nil
	}
	return ValueAt(s.arr, s.pos)
}

// Advance moves to the next row.
func (s *ArrowValueSelector) Advance() bool {
	if s.pos+1 >= s.arr.Len() {
		s.pos = s.arr.Len()
		return false
	}
	s.pos++
	return true
}

// Reset rewinds the cursor.
func (s *ArrowValueSelector) Reset() {
	s.pos = -1
}

// Release releases the underlying array.
func (s *ArrowValueSelector) Release() {
	s.arr.Release()
}

// ArrowVectorSelector walks an Arrow array in vectors of a fixed size.
// It retains the array until Release is called.
type ArrowVectorSelector struct {
	arr        arrow.Array
	vectorSize int
	start      int
	end        int
	scratch    []any
}

// NewArrowVectorSelector creates a vector cursor over arr.
func NewArrowVectorSelector(arr arrow.Array, vectorSize int) *ArrowVectorSelector {
	if vectorSize <= 0 {
		vectorSize = DefaultVectorSize
	}
	arr.Retain()
	return &ArrowVectorSelector{
		arr:        arr,
		vectorSize: vectorSize,
		scratch:    make([]any, vectorSize),
	}
}

// MaxVectorSize returns the configured vector size.
func (s *ArrowVectorSelector) MaxVectorSize() int {
	return s.vectorSize
}

// CurrentVectorSize returns the number of rows in the current vector.
func (s *ArrowVectorSelector) CurrentVectorSize() int {
	return s.end - s.start
}

// ReadBatch returns the first count values of the current vector.
// The returned slice is reused by the next call.
func (s *ArrowVectorSelector) ReadBatch(count int) []any {
	count = min(count, s.end-s.start)
	out := s.scratch[:count]
	for i := range out {
		out[i] = ValueAt(s.arr, s.start+i)
	}
	return out
}

// Advance moves to the next vector.
func (s *ArrowVectorSelector) Advance() bool {
	n := s.arr.Len()
	if s.end >= n {
		s.start = s.end
		return false
	}
	s.start = s.end
	s.end = min(s.start+s.vectorSize, n)
	return true
}

// Reset rewinds the cursor.
func (s *ArrowVectorSelector) Reset() {
	s.start = 0
	s.end = 0
}

// Release releases the underlying array.
func (s *ArrowVectorSelector) Release() {
	s.arr.Release()
}

// ValueAt returns the Go value of arr at row i, or nil when the row is null.
func ValueAt(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Int16:
		return a.Value(i)
	case *array.Int8:
		return a.Value(i)
	case *array.Uint64:
		return a.Value(i)
	case *array.Uint32:
		return a.Value(i)
	case *array.Uint16:
		return a.Value(i)
	case *array.Uint8:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return a.Value(i)
	case *array.LargeBinary:
		return a.Value(i)
	default:
		return arr.GetOneForMarshal(i)
	}
}

var (
	_ ValueSelector  = (*ArrowValueSelector)(nil)
	_ VectorSelector = (*ArrowVectorSelector)(nil)
)
