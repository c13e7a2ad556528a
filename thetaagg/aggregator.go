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

// Aggregator accumulates one column, one row at a time, into a single sketch.
type Aggregator struct {
	selector column.ValueSelector
	acc      *accumulator
}

func newAggregator(selector column.ValueSelector, lgK uint8, inputSketches bool) (*Aggregator, error) {
	acc, err := newAccumulator(lgK, inputSketches)
	if err != nil {
		return nil, err
	}
	return &Aggregator{selector: selector, acc: acc}, nil
}

// Aggregate reads the selector's current value and adds it to the sketch.
// Null values are skipped.
func (a *Aggregator) Aggregate() error {
	return a.acc.add(a.selector.ReadScalar())
}

// Get returns the aggregated sketch. After Get the aggregator no longer
// accepts values.
func (a *Aggregator) Get() (*Holder, error) {
	return a.acc.finish()
}

// Estimate is a shortcut for Get followed by Holder.Estimate.
func (a *Aggregator) Estimate() (float64, error) {
	h, err := a.Get()
	if err != nil {
		return 0, err
	}
	return h.Estimate(), nil
}

// Close releases the sketches held by the aggregator.
func (a *Aggregator) Close() {
	a.acc = &accumulator{result: emptyHolder()}
}
