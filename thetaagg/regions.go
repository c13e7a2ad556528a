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
	"encoding/binary"
	"fmt"

	"github.com/apache/datasketches-go/theta"
)

// Slot layout inside a caller-provided region:
//
//	byte 0     state (slotEmpty, slotAccumulating, slotFinalized)
//	bytes 1-4  payload length, little endian
//	bytes 5-   serialized compact sketch
//
// The live sketch of an accumulating slot is kept on the heap and keyed by
// the region and offset; the payload is written when the slot is read or
// relocated, and restored from when the heap copy is missing.
const (
	slotEmpty byte = iota
	slotAccumulating
	slotFinalized
)

const slotHeaderBytes = 5

type slotKey struct {
	base   *byte
	offset int
}

// regionSlots manages the per-offset sketches of one buffer or vector aggregator.
type regionSlots struct {
	lgK           uint8
	inputSketches bool
	slotSize      int
	live          map[slotKey]*accumulator
}

func newRegionSlots(lgK uint8, inputSketches bool, slotSize int) *regionSlots {
	return &regionSlots{
		lgK:           lgK,
		inputSketches: inputSketches,
		slotSize:      slotSize,
		live:          make(map[slotKey]*accumulator),
	}
}

func (r *regionSlots) slot(region []byte, offset int) ([]byte, slotKey, error) {
	if offset < 0 || offset+r.slotSize > len(region) {
		return nil, slotKey{}, fmt.Errorf("%w: slot [%d, %d) outside region of %d bytes",
			ErrRegionTooSmall, offset, offset+r.slotSize, len(region))
	}
	return region[offset : offset+r.slotSize], slotKey{base: &region[0], offset: offset}, nil
}

// init resets the slot at offset to the empty state.
func (r *regionSlots) init(region []byte, offset int) error {
	slot, key, err := r.slot(region, offset)
	if err != nil {
		return err
	}
	clear(slot[:slotHeaderBytes])
	delete(r.live, key)
	return nil
}

// accumulatorFor returns the live accumulator of the slot at offset,
// initializing an empty slot or restoring one from its payload.
func (r *regionSlots) accumulatorFor(region []byte, offset int) (*accumulator, error) {
	slot, key, err := r.slot(region, offset)
	if err != nil {
		return nil, err
	}
	if acc, ok := r.live[key]; ok {
		if slot[0] != slotEmpty {
			return acc, nil
		}
		// the caller zeroed the slot, so its previous contents are gone
		delete(r.live, key)
	}

	acc, err := newAccumulator(r.lgK, r.inputSketches)
	if err != nil {
		return nil, err
	}

	switch slot[0] {
	case slotEmpty:
		slot[0] = slotAccumulating
		binary.LittleEndian.PutUint32(slot[1:slotHeaderBytes], 0)
	case slotAccumulating, slotFinalized:
		n := int(binary.LittleEndian.Uint32(slot[1:slotHeaderBytes]))
		if n > 0 {
			if slotHeaderBytes+n > len(slot) {
				return nil, fmt.Errorf("%w: corrupt slot payload length %d", ErrRegionTooSmall, n)
			}
			s, err := theta.Decode(slot[slotHeaderBytes:slotHeaderBytes+n], theta.DefaultSeed)
			if err != nil {
				return nil, fmt.Errorf("restore slot at offset %d: %w", offset, err)
			}
			if err := acc.fold(s); err != nil {
				return nil, err
			}
		}
		if slot[0] == slotFinalized {
			if _, err := acc.finish(); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown slot state %d at offset %d", ErrUnsupportedMode, slot[0], offset)
	}

	r.live[key] = acc
	return acc, nil
}

func (r *regionSlots) add(region []byte, offset int, v any) error {
	if v == nil {
		return nil
	}
	acc, err := r.accumulatorFor(region, offset)
	if err != nil {
		return err
	}
	return acc.add(v)
}

// persist writes the current contents of the slot's live sketch into the slot.
func (r *regionSlots) persist(slot []byte, h *Holder) error {
	payload, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	if slotHeaderBytes+len(payload) > len(slot) {
		return fmt.Errorf("%w: sketch needs %d bytes, slot has %d",
			ErrRegionTooSmall, slotHeaderBytes+len(payload), len(slot))
	}
	binary.LittleEndian.PutUint32(slot[1:slotHeaderBytes], uint32(len(payload)))
	copy(slot[slotHeaderBytes:], payload)
	return nil
}

// get finalizes the slot at offset and returns its sketch.
func (r *regionSlots) get(region []byte, offset int) (*Holder, error) {
	acc, err := r.accumulatorFor(region, offset)
	if err != nil {
		return nil, err
	}
	h, err := acc.finish()
	if err != nil {
		return nil, err
	}
	slot, _, _ := r.slot(region, offset)
	if err := r.persist(slot, h); err != nil {
		return nil, err
	}
	slot[0] = slotFinalized
	return h, nil
}

// relocate moves the slot at oldOffset in oldRegion to newOffset in newRegion.
func (r *regionSlots) relocate(oldOffset, newOffset int, oldRegion, newRegion []byte) error {
	oldSlot, oldKey, err := r.slot(oldRegion, oldOffset)
	if err != nil {
		return err
	}
	newSlot, newKey, err := r.slot(newRegion, newOffset)
	if err != nil {
		return err
	}

	acc, ok := r.live[oldKey]
	if ok && !acc.finalized() && oldSlot[0] != slotFinalized {
		// write the live state first so the copied bytes are complete
		if err := r.persistLive(oldSlot, acc); err != nil {
			return err
		}
	}
	copy(newSlot, oldSlot)

	if ok {
		delete(r.live, oldKey)
		r.live[newKey] = acc
	}
	return nil
}

func (r *regionSlots) persistLive(slot []byte, acc *accumulator) error {
	snapshot, err := newUnionHolder(r.lgK)
	if err != nil {
		return err
	}
	if err := snapshot.Fold(acc.raw); err != nil {
		return err
	}
	if acc.merged != nil {
		if err := snapshot.Fold(acc.merged); err != nil {
			return err
		}
	}
	return r.persist(slot, snapshot)
}

func (r *regionSlots) close() {
	clear(r.live)
}
