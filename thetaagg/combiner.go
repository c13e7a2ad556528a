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

// Combiner merges already-aggregated sketches of consecutive rows while the
// engine merges group-by results. It owns one union that Reset clears.
type Combiner struct {
	combined *Holder
}

func newCombiner(lgK uint8) (*Combiner, error) {
	h, err := newUnionHolder(lgK)
	if err != nil {
		return nil, err
	}
	return &Combiner{combined: h}, nil
}

// Reset clears the union and folds v into it.
func (c *Combiner) Reset(v any) error {
	c.combined.resetUnion()
	return c.Fold(v)
}

// Fold merges v into the union. Nil values are skipped.
func (c *Combiner) Fold(v any) error {
	if v == nil {
		return nil
	}
	return c.combined.Fold(v)
}

// Object returns the live Holder, reflecting every fold since the last Reset.
func (c *Combiner) Object() *Holder {
	return c.combined
}
