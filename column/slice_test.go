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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceSelector(t *testing.T) {
	s := NewSliceSelector(int64(1), nil, "a")
	assert.Nil(t, s.ReadScalar())
	assert.Equal(t, 3, s.Len())

	var got []any
	for s.Advance() {
		got = append(got, s.ReadScalar())
	}
	assert.Equal(t, []any{int64(1), nil, "a"}, got)
	assert.Nil(t, s.ReadScalar())
	assert.False(t, s.Advance())

	s.Reset()
	assert.True(t, s.Advance())
	assert.Equal(t, int64(1), s.ReadScalar())
}

func TestSliceVectorSelector(t *testing.T) {
	t.Run("Vectors", func(t *testing.T) {
		s := NewSliceVectorSelector(2, 1, 2, 3, nil, 5)
		assert.Equal(t, 2, s.MaxVectorSize())

		var sizes []int
		var all []any
		for s.Advance() {
			sizes = append(sizes, s.CurrentVectorSize())
			all = append(all, s.ReadBatch(s.MaxVectorSize())...)
		}
		assert.Equal(t, []int{2, 2, 1}, sizes)
		assert.Equal(t, []any{1, 2, 3, nil, 5}, all)
	})

	t.Run("Partial Read", func(t *testing.T) {
		s := NewSliceVectorSelector(4, "a", "b", "c")
		assert.True(t, s.Advance())
		assert.Equal(t, []any{"a", "b"}, s.ReadBatch(2))
		assert.Equal(t, []any{"a", "b", "c"}, s.ReadBatch(10))
		assert.False(t, s.Advance())
	})

	t.Run("Default Size", func(t *testing.T) {
		s := NewSliceVectorSelector(0)
		assert.Equal(t, DefaultVectorSize, s.MaxVectorSize())
		assert.False(t, s.Advance())
	})
}
