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

import "fmt"

// EstimateWithErrorBounds is a finalized distinct count with its confidence
// interval at NumStdDevs standard deviations.
type EstimateWithErrorBounds struct {
	Estimate   float64 `json:"estimate"`
	HighBound  float64 `json:"highBound"`
	LowBound   float64 `json:"lowBound"`
	NumStdDevs uint8   `json:"numStdDev"`
}

func (e EstimateWithErrorBounds) String() string {
	return fmt.Sprintf("{estimate=%f, highBound=%f, lowBound=%f, numStdDev=%d}",
		e.Estimate, e.HighBound, e.LowBound, e.NumStdDevs)
}

// FinalizeComputation turns an aggregated sketch into the value reported to
// the user. If the factory does not finalize, the Holder itself is returned.
// Otherwise the result is the estimate as a float64, or an
// EstimateWithErrorBounds if error bounds were requested.
func (f *Factory) FinalizeComputation(v any) (any, error) {
	h, err := Deserialize(v)
	if err != nil {
		return nil, err
	}
	if !f.opts.shouldFinalize {
		return h, nil
	}
	if f.opts.errorBoundsStdDev == 0 {
		return h.Estimate(), nil
	}

	numStdDevs := f.opts.errorBoundsStdDev
	lb, err := h.LowerBound(numStdDevs)
	if err != nil {
		return nil, err
	}
	ub, err := h.UpperBound(numStdDevs)
	if err != nil {
		return nil, err
	}
	return EstimateWithErrorBounds{
		Estimate:   h.Estimate(),
		HighBound:  ub,
		LowBound:   lb,
		NumStdDevs: numStdDevs,
	}, nil
}
