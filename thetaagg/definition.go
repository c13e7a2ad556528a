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

	jsoniter "github.com/json-iterator/go"
)

// TypeThetaSketch is the aggregation type name used in definitions.
const TypeThetaSketch = "thetaSketch"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Definition is the serializable form of a Factory, as found in query and
// ingestion specs. Unset optional fields take the Factory defaults.
type Definition struct {
	Type               string `json:"type" yaml:"type"`
	Name               string `json:"name" yaml:"name"`
	FieldName          string `json:"fieldName" yaml:"fieldName"`
	Size               *int   `json:"size,omitempty" yaml:"size,omitempty"`
	ShouldFinalize     *bool  `json:"shouldFinalize,omitempty" yaml:"shouldFinalize,omitempty"`
	IsInputThetaSketch bool   `json:"isInputThetaSketch,omitempty" yaml:"isInputThetaSketch,omitempty"`
	ErrorBoundsStdDev  *uint8 `json:"errorBoundsStdDev,omitempty" yaml:"errorBoundsStdDev,omitempty"`
}

// ParseDefinitions decodes a JSON array of definitions.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return defs, nil
}

// Factory validates the definition and builds its Factory.
func (d Definition) Factory() (*Factory, error) {
	var cacheID byte
	switch d.Type {
	case TypeThetaSketch, "":
		cacheID = CacheIDThetaSketch
		if d.IsInputThetaSketch {
			cacheID = CacheIDThetaSketchMerge
		}
	default:
		return nil, fmt.Errorf("%w: unknown aggregation type %q", ErrInvalidConfiguration, d.Type)
	}

	opts := []FactoryOptionFunc{WithInputSketches(d.IsInputThetaSketch)}
	if d.Size != nil {
		opts = append(opts, WithSize(*d.Size))
	}
	if d.ShouldFinalize != nil {
		opts = append(opts, WithShouldFinalize(*d.ShouldFinalize))
	}
	if d.ErrorBoundsStdDev != nil {
		if *d.ErrorBoundsStdDev == 0 {
			return nil, fmt.Errorf("%w: errorBoundsStdDev must be 1, 2 or 3", ErrInvalidConfiguration)
		}
		opts = append(opts, WithErrorBoundsStdDev(*d.ErrorBoundsStdDev))
	}
	return NewFactory(d.Name, d.FieldName, cacheID, opts...)
}

// DefinitionOf returns the definition that rebuilds f.
func DefinitionOf(f *Factory) Definition {
	size := f.size
	shouldFinalize := f.opts.shouldFinalize
	d := Definition{
		Type:               TypeThetaSketch,
		Name:               f.name,
		FieldName:          f.fieldName,
		Size:               &size,
		ShouldFinalize:     &shouldFinalize,
		IsInputThetaSketch: f.opts.inputSketches,
	}
	if f.opts.errorBoundsStdDev != 0 {
		stdDev := f.opts.errorBoundsStdDev
		d.ErrorBoundsStdDev = &stdDev
	}
	return d
}

// MarshalJSON encodes the definition of f.
func (f *Factory) MarshalJSON() ([]byte, error) {
	return json.Marshal(DefinitionOf(f))
}
