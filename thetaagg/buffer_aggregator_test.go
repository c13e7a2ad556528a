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

package thetaagg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/datasketches-aggregation-go/column"
)

func TestBufferAggregator(t *testing.T) {
	f := newTestFactory(t, WithSize(64))

	t.Run("Groups", func(t *testing.T) {
		// even rows go to slot 0, odd rows to slot 1
		values := make([]any, 0, 200)
		for i := 0; i < 200; i++ {
			values = append(values, i%40)
		}
		sel := column.NewSliceSelector(values...)
		agg, err := f.FactorizeBuffered(sel)
		require.NoError(t, err)
		assert.Equal(t, f.MaxIntermediateSize(), agg.SlotSize())

		region := make([]byte, 2*agg.SlotSize())
		require.NoError(t, agg.Init(region, 0))
		require.NoError(t, agg.Init(region, agg.SlotSize()))
		for i := 0; sel.Advance(); i++ {
			require.NoError(t, agg.Aggregate(region, (i%2)*agg.SlotSize()))
		}

		even, err := agg.Get(region, 0)
		require.NoError(t, err)
		odd, err := agg.Get(region, agg.SlotSize())
		require.NoError(t, err)
		assert.Equal(t, 20.0, even.Estimate())
		assert.Equal(t, 20.0, odd.Estimate())
		assert.Equal(t, slotFinalized, region[0])
		assert.Equal(t, slotFinalized, region[agg.SlotSize()])

		err = agg.Aggregate(region, 0)
		assert.ErrorIs(t, err, ErrFinalized)
	})

	t.Run("Nulls Leave The Slot Empty", func(t *testing.T) {
		sel := column.NewSliceSelector(nil, nil)
		agg, err := f.FactorizeBuffered(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		for sel.Advance() {
			require.NoError(t, agg.Aggregate(region, 0))
		}
		assert.Equal(t, slotEmpty, region[0])

		h, err := agg.Get(region, 0)
		require.NoError(t, err)
		assert.True(t, h.IsEmpty())
	})

	t.Run("Relocate", func(t *testing.T) {
		sel := column.NewSliceSelector("a", "b", "c", "d")
		agg, err := f.FactorizeBuffered(sel)
		require.NoError(t, err)
		size := agg.SlotSize()

		oldRegion := make([]byte, size)
		require.True(t, sel.Advance())
		require.NoError(t, agg.Aggregate(oldRegion, 0))
		require.True(t, sel.Advance())
		require.NoError(t, agg.Aggregate(oldRegion, 0))

		newRegion := make([]byte, 3*size)
		require.NoError(t, agg.Relocate(0, 2*size, oldRegion, newRegion))

		for sel.Advance() {
			require.NoError(t, agg.Aggregate(newRegion, 2*size))
		}
		h, err := agg.Get(newRegion, 2*size)
		require.NoError(t, err)
		assert.Equal(t, 4.0, h.Estimate())
	})

	t.Run("Restore From Region", func(t *testing.T) {
		sel := column.NewSliceSelector(1, 2, 3)
		agg, err := f.FactorizeBuffered(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		for sel.Advance() {
			require.NoError(t, agg.Aggregate(region, 0))
		}
		_, err = agg.Get(region, 0)
		require.NoError(t, err)
		agg.Close()

		// a fresh aggregator reads the serialized slot
		other, err := f.FactorizeBuffered(column.NewSliceSelector())
		require.NoError(t, err)
		h, err := other.Get(region, 0)
		require.NoError(t, err)
		assert.Equal(t, 3.0, h.Estimate())
	})

	t.Run("Relocated Copy Survives Close", func(t *testing.T) {
		sel := column.NewSliceSelector(1, 2, 3, 4, 5)
		agg, err := f.FactorizeBuffered(sel)
		require.NoError(t, err)
		size := agg.SlotSize()
		oldRegion := make([]byte, size)
		for sel.Advance() {
			require.NoError(t, agg.Aggregate(oldRegion, 0))
		}
		newRegion := make([]byte, size)
		require.NoError(t, agg.Relocate(0, 0, oldRegion, newRegion))
		agg.Close()

		other, err := f.FactorizeBuffered(column.NewSliceSelector())
		require.NoError(t, err)
		h, err := other.Get(newRegion, 0)
		require.NoError(t, err)
		assert.Equal(t, 5.0, h.Estimate())
	})

	t.Run("Region Too Small", func(t *testing.T) {
		sel := column.NewSliceSelector("a")
		agg, err := f.FactorizeBuffered(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize()-1)
		require.True(t, sel.Advance())
		assert.ErrorIs(t, agg.Aggregate(region, 0), ErrRegionTooSmall)
		assert.ErrorIs(t, agg.Init(region, -1), ErrRegionTooSmall)
	})

	t.Run("Init Resets", func(t *testing.T) {
		sel := column.NewSliceSelector("a", "b")
		agg, err := f.FactorizeBuffered(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		require.True(t, sel.Advance())
		require.NoError(t, agg.Aggregate(region, 0))
		require.NoError(t, agg.Init(region, 0))
		require.True(t, sel.Advance())
		require.NoError(t, agg.Aggregate(region, 0))
		h, err := agg.Get(region, 0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, h.Estimate())
	})

	t.Run("Zeroed Region Is Reused", func(t *testing.T) {
		values := make([]any, 0, 101)
		for i := 1; i <= 100; i++ {
			values = append(values, i)
		}
		values = append(values, 1000)
		sel := column.NewSliceSelector(values...)
		agg, err := f.FactorizeBuffered(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		for i := 0; i < 100; i++ {
			require.True(t, sel.Advance())
			require.NoError(t, agg.Aggregate(region, 0))
		}

		clear(region)
		require.True(t, sel.Advance())
		require.NoError(t, agg.Aggregate(region, 0))
		h, err := agg.Get(region, 0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, h.Estimate())

		// a finalized slot that is zeroed accepts values again
		clear(region)
		require.NoError(t, agg.Aggregate(region, 0))
		h, err = agg.Get(region, 0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, h.Estimate())
	})

	t.Run("Full Slot", func(t *testing.T) {
		values := make([]any, 0, 100000)
		for i := 0; i < 100000; i++ {
			values = append(values, i)
		}
		sel := column.NewSliceSelector(values...)
		agg, err := f.FactorizeBuffered(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		for sel.Advance() {
			require.NoError(t, agg.Aggregate(region, 0))
		}
		h, err := agg.Get(region, 0)
		require.NoError(t, err)
		assert.InEpsilon(t, 100000, h.Estimate(), 0.5)
	})
}

func TestVectorAggregator(t *testing.T) {
	f := newTestFactory(t, WithSize(64))

	t.Run("Range", func(t *testing.T) {
		values := make([]any, 0, 1000)
		for i := 0; i < 1000; i++ {
			if i%10 == 0 {
				values = append(values, nil)
				continue
			}
			values = append(values, i%50)
		}
		sel := column.NewSliceVectorSelector(128, values...)
		agg, err := f.FactorizeVector(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		require.NoError(t, agg.Init(region, 0))
		for sel.Advance() {
			require.NoError(t, agg.AggregateRange(region, 0, 0, sel.CurrentVectorSize()))
		}
		h, err := agg.Get(region, 0)
		require.NoError(t, err)
		// multiples of 10 are null, leaving 45 distinct values below 50
		assert.Equal(t, 45.0, h.Estimate())
	})

	t.Run("Sub Range", func(t *testing.T) {
		sel := column.NewSliceVectorSelector(8, "a", "b", "c", "d", "e")
		agg, err := f.FactorizeVector(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		require.True(t, sel.Advance())
		require.NoError(t, agg.AggregateRange(region, 0, 1, 3))
		h, err := agg.Get(region, 0)
		require.NoError(t, err)
		assert.Equal(t, 2.0, h.Estimate())
	})

	t.Run("Invalid Range", func(t *testing.T) {
		sel := column.NewSliceVectorSelector(8, "a", "b")
		agg, err := f.FactorizeVector(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		require.True(t, sel.Advance())
		assert.Error(t, agg.AggregateRange(region, 0, 2, 1))
		assert.Error(t, agg.AggregateRange(region, 0, 0, 3))
	})

	t.Run("Positions", func(t *testing.T) {
		sel := column.NewSliceVectorSelector(8, "a", "b", "c", "a", nil, "d")
		agg, err := f.FactorizeVector(sel)
		require.NoError(t, err)
		size := agg.SlotSize()
		base := 16
		region := make([]byte, base+2*size)
		require.True(t, sel.Advance())

		positions := []int{0, size, 0, size, 0, 0}
		require.NoError(t, agg.AggregatePositions(region, 6, positions, nil, base))

		first, err := agg.Get(region, base)
		require.NoError(t, err)
		second, err := agg.Get(region, base+size)
		require.NoError(t, err)
		// slot 0: a, c, nil, d; slot 1: b, a
		assert.Equal(t, 3.0, first.Estimate())
		assert.Equal(t, 2.0, second.Estimate())
	})

	t.Run("Positions With Rows", func(t *testing.T) {
		sel := column.NewSliceVectorSelector(8, "a", "b", "c", "d")
		agg, err := f.FactorizeVector(sel)
		require.NoError(t, err)
		size := agg.SlotSize()
		region := make([]byte, 2*size)
		require.True(t, sel.Advance())

		rows := []int{3, 1}
		positions := []int{size, size}
		require.NoError(t, agg.AggregatePositions(region, 2, positions, rows, 0))

		h, err := agg.Get(region, size)
		require.NoError(t, err)
		assert.Equal(t, 2.0, h.Estimate())
		assert.Equal(t, slotEmpty, region[0])
	})

	t.Run("Negative Rows", func(t *testing.T) {
		sel := column.NewSliceVectorSelector(8, "a", "b")
		agg, err := f.FactorizeVector(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		require.True(t, sel.Advance())
		assert.Error(t, agg.AggregatePositions(region, -1, []int{0}, nil, 0))
		assert.Error(t, agg.AggregatePositions(region, 2, []int{0, 0}, []int{1, -1}, 0))
		assert.Equal(t, slotEmpty, region[0])
	})

	t.Run("Positions Too Short", func(t *testing.T) {
		sel := column.NewSliceVectorSelector(8, "a", "b")
		agg, err := f.FactorizeVector(sel)
		require.NoError(t, err)
		region := make([]byte, agg.SlotSize())
		require.True(t, sel.Advance())
		assert.Error(t, agg.AggregatePositions(region, 2, []int{0}, nil, 0))
	})

	t.Run("Relocate", func(t *testing.T) {
		sel := column.NewSliceVectorSelector(2, "a", "b", "c")
		agg, err := f.FactorizeVector(sel)
		require.NoError(t, err)
		size := agg.SlotSize()
		oldRegion := make([]byte, size)
		newRegion := make([]byte, size)

		require.True(t, sel.Advance())
		require.NoError(t, agg.AggregateRange(oldRegion, 0, 0, sel.CurrentVectorSize()))
		require.NoError(t, agg.Relocate(0, 0, oldRegion, newRegion))
		require.True(t, sel.Advance())
		require.NoError(t, agg.AggregateRange(newRegion, 0, 0, sel.CurrentVectorSize()))

		h, err := agg.Get(newRegion, 0)
		require.NoError(t, err)
		assert.Equal(t, 3.0, h.Estimate())
		agg.Close()
	})
}
