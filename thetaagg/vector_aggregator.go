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
	"fmt"

	"github.com/apache/datasketches-aggregation-go/column"
)

// VectorAggregator accumulates one column, one vector at a time, into
// sketches that live in caller-provided memory regions. The slot layout is
// the same as BufferAggregator's.
type VectorAggregator struct {
	selector column.VectorSelector
	slots    *regionSlots
}

func newVectorAggregator(selector column.VectorSelector, lgK uint8, inputSketches bool, slotSize int) *VectorAggregator {
	return &VectorAggregator{
		selector: selector,
		slots:    newRegionSlots(lgK, inputSketches, slotSize),
	}
}

// SlotSize returns the number of bytes each slot occupies.
func (a *VectorAggregator) SlotSize() int {
	return a.slots.slotSize
}

// Init resets the slot at offset.
func (a *VectorAggregator) Init(region []byte, offset int) error {
	return a.slots.init(region, offset)
}

// AggregateRange adds rows [startRow, endRow) of the current vector to the slot at offset.
func (a *VectorAggregator) AggregateRange(region []byte, offset, startRow, endRow int) error {
	if startRow < 0 || endRow < startRow {
		return fmt.Errorf("invalid row range [%d, %d)", startRow, endRow)
	}
	values := a.selector.ReadBatch(endRow)
	if len(values) < endRow {
		return fmt.Errorf("row range [%d, %d) exceeds vector of %d rows", startRow, endRow, len(values))
	}

	var acc *accumulator
	for _, v := range values[startRow:endRow] {
		if v == nil {
			continue
		}
		if acc == nil {
			var err error
			if acc, err = a.slots.accumulatorFor(region, offset); err != nil {
				return err
			}
		}
		if err := acc.add(v); err != nil {
			return err
		}
	}
	return nil
}

// AggregatePositions adds numRows rows of the current vector, each to its own
// slot: row i (or rows[i] when rows is not nil) goes to the slot at
// positions[i] + positionOffset.
func (a *VectorAggregator) AggregatePositions(region []byte, numRows int, positions, rows []int, positionOffset int) error {
	if numRows < 0 {
		return fmt.Errorf("invalid row count %d", numRows)
	}
	if len(positions) < numRows || (rows != nil && len(rows) < numRows) {
		return fmt.Errorf("positions and rows must cover %d rows", numRows)
	}

	count := numRows
	if rows != nil {
		count = 0
		for _, r := range rows[:numRows] {
			if r < 0 {
				return fmt.Errorf("invalid row %d", r)
			}
			count = max(count, r+1)
		}
	}
	values := a.selector.ReadBatch(count)
	if len(values) < count {
		return fmt.Errorf("rows reference row %d of a vector of %d rows", count-1, len(values))
	}

	for i := 0; i < numRows; i++ {
		row := i
		if rows != nil {
			row = rows[i]
		}
		if err := a.slots.add(region, positions[i]+positionOffset, values[row]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the sketch of the slot at offset and finalizes the slot.
func (a *VectorAggregator) Get(region []byte, offset int) (*Holder, error) {
	return a.slots.get(region, offset)
}

// Relocate moves the slot at oldOffset in oldRegion to newOffset in newRegion.
func (a *VectorAggregator) Relocate(oldOffset, newOffset int, oldRegion, newRegion []byte) error {
	return a.slots.relocate(oldOffset, newOffset, oldRegion, newRegion)
}

// Close drops the live sketches of every slot.
func (a *VectorAggregator) Close() {
	a.slots.close()
}
