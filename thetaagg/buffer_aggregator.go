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
	"github.com/apache/datasketches-aggregation-go/column"
)

// BufferAggregator accumulates one column, one row at a time, into sketches
// that live in caller-provided memory regions. Each slot of SlotSize bytes,
// addressed by its offset, is an independent aggregation target, so one
// region can back every group of a grouped aggregation.
//
// The caller guarantees exclusive access to a slot for the duration of a call.
type BufferAggregator struct {
	selector column.ValueSelector
	slots    *regionSlots
}

func newBufferAggregator(selector column.ValueSelector, lgK uint8, inputSketches bool, slotSize int) *BufferAggregator {
	return &BufferAggregator{
		selector: selector,
		slots:    newRegionSlots(lgK, inputSketches, slotSize),
	}
}

// SlotSize returns the number of bytes each slot occupies.
func (a *BufferAggregator) SlotSize() int {
	return a.slots.slotSize
}

// Init resets the slot at offset. Slots whose first byte is zero are
// considered empty, so zeroed regions need no explicit Init.
func (a *BufferAggregator) Init(region []byte, offset int) error {
	return a.slots.init(region, offset)
}

// Aggregate adds the selector's current value to the slot at offset.
func (a *BufferAggregator) Aggregate(region []byte, offset int) error {
	return a.slots.add(region, offset, a.selector.ReadScalar())
}

// Get returns the sketch of the slot at offset and finalizes the slot.
// The serialized sketch is also written into the slot.
func (a *BufferAggregator) Get(region []byte, offset int) (*Holder, error) {
	return a.slots.get(region, offset)
}

// Relocate moves the slot at oldOffset in oldRegion to newOffset in newRegion,
// for example when the engine grows its hash table.
func (a *BufferAggregator) Relocate(oldOffset, newOffset int, oldRegion, newRegion []byte) error {
	return a.slots.relocate(oldOffset, newOffset, oldRegion, newRegion)
}

// Close drops the live sketches of every slot.
func (a *BufferAggregator) Close() {
	a.slots.close()
}
