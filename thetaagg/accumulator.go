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

// accumulator is the state behind one aggregation target. Raw column values
// go into an update sketch; sketch values (pre-aggregated columns) go into a
// union that is created on first use. The result folds both together.
type accumulator struct {
	lgK           uint8
	inputSketches bool

	raw    *Holder
	merged *Holder
	result *Holder
}

func newAccumulator(lgK uint8, inputSketches bool) (*accumulator, error) {
	raw, err := newUpdateHolder(lgK)
	if err != nil {
		return nil, err
	}
	return &accumulator{lgK: lgK, inputSketches: inputSketches, raw: raw}, nil
}

func (a *accumulator) finalized() bool {
	return a.result != nil
}

func (a *accumulator) add(v any) error {
	if a.finalized() {
		return ErrFinalized
	}
	if v == nil {
		return nil
	}
	if isSketchValue(v) || a.inputSketches {
		return a.fold(v)
	}
	return a.raw.Insert(v)
}

func (a *accumulator) fold(v any) error {
	if a.merged == nil {
		u, err := newUnionHolder(a.lgK)
		if err != nil {
			return err
		}
		a.merged = u
	}
	return a.merged.Fold(v)
}

// finish returns the aggregated sketch and closes the accumulator to writes.
// The result is a compact Holder, so it cannot be written to either.
// Repeated calls return the same Holder.
func (a *accumulator) finish() (*Holder, error) {
	if a.result != nil {
		return a.result, nil
	}

	h := a.raw
	if a.merged != nil {
		h = a.merged
		if !a.raw.IsEmpty() {
			combined, err := newUnionHolder(a.lgK)
			if err != nil {
				return nil, err
			}
			if err := combined.Fold(a.merged); err != nil {
				return nil, err
			}
			if err := combined.Fold(a.raw); err != nil {
				return nil, err
			}
			h = combined
		}
	}

	s, err := h.Sketch()
	if err != nil {
		return nil, err
	}
	a.result = NewHolder(s)
	a.raw, a.merged = nil, nil
	return a.result, nil
}
