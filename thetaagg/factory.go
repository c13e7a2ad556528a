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

	"github.com/apache/datasketches-aggregation-go/column"
	"github.com/apache/datasketches-aggregation-go/internal/intmath"
)

// Cache IDs of the aggregation families built by this package. The cache ID
// is the first byte of every cache key, so plan caches can scope by family.
const (
	CacheIDThetaSketch      byte = 0x0F
	CacheIDThetaSketchBuild byte = 0x10
	// CacheIDThetaSketchMerge identifies aggregations over pre-aggregated
	// sketch columns. The key layout does not carry the input mode, so the
	// family byte has to.
	CacheIDThetaSketchMerge byte = 0x11
)

// MaxSize is the largest nominal number of entries a sketch supports.
const MaxSize = 1 << theta.MaxLgK

type factoryOptions struct {
	size              int
	shouldFinalize    bool
	inputSketches     bool
	errorBoundsStdDev uint8
}

type FactoryOptionFunc func(*factoryOptions)

// WithSize sets the nominal number of entries of the sketches (defaults to 16384).
// It must be a power of 2.
func WithSize(size int) FactoryOptionFunc {
	return func(opts *factoryOptions) {
		opts.size = size
	}
}

// WithShouldFinalize sets whether FinalizeComputation turns sketches into
// estimates (defaults to true).
func WithShouldFinalize(shouldFinalize bool) FactoryOptionFunc {
	return func(opts *factoryOptions) {
		opts.shouldFinalize = shouldFinalize
	}
}

// WithInputSketches declares that the aggregated column holds serialized
// sketches rather than raw values: byte slices and base64 strings are then
// decoded and merged instead of being hashed.
func WithInputSketches(inputSketches bool) FactoryOptionFunc {
	return func(opts *factoryOptions) {
		opts.inputSketches = inputSketches
	}
}

// WithErrorBoundsStdDev makes FinalizeComputation return error bounds at the
// given number of standard deviations (1, 2 or 3) along with the estimate.
func WithErrorBoundsStdDev(numStdDevs uint8) FactoryOptionFunc {
	return func(opts *factoryOptions) {
		opts.errorBoundsStdDev = numStdDevs
	}
}

// Factory is an immutable theta sketch aggregation definition. It builds the
// aggregators for every execution mode and defines how their results are
// merged, compared, sized and identified in caches.
type Factory struct {
	name      string
	fieldName string
	size      int
	lgK       uint8
	cacheID   byte
	opts      factoryOptions
}

// NewFactory creates an aggregation definition that writes its result to
// name and reads the column fieldName. cacheID identifies the aggregation
// family in cache keys.
func NewFactory(name, fieldName string, cacheID byte, opts ...FactoryOptionFunc) (*Factory, error) {
	options := factoryOptions{
		size:           DefaultSize,
		shouldFinalize: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if name == "" {
		return nil, fmt.Errorf("%w: must have a valid, non-empty aggregator name", ErrInvalidConfiguration)
	}
	if fieldName == "" {
		return nil, fmt.Errorf("%w: must have a valid, non-empty fieldName", ErrInvalidConfiguration)
	}
	lg, err := intmath.ExactLog2(options.size)
	if err != nil {
		return nil, fmt.Errorf("%w: size: %w", ErrInvalidConfiguration, err)
	}
	if options.size > MaxSize {
		return nil, fmt.Errorf("%w: size must not be greater than %d: %d", ErrInvalidConfiguration, MaxSize, options.size)
	}
	if options.errorBoundsStdDev > 3 {
		return nil, fmt.Errorf("%w: errorBoundsStdDev must be 1, 2 or 3: %d", ErrInvalidConfiguration, options.errorBoundsStdDev)
	}

	return &Factory{
		name:      name,
		fieldName: fieldName,
		size:      options.size,
		// the library does not build sketches below MinLgK
		lgK:     max(lg, theta.MinLgK),
		cacheID: cacheID,
		opts:    options,
	}, nil
}

// Name returns the output field name.
func (f *Factory) Name() string {
	return f.name
}

// FieldName returns the input column name.
func (f *Factory) FieldName() string {
	return f.fieldName
}

// Size returns the nominal number of entries.
func (f *Factory) Size() int {
	return f.size
}

// CacheID returns the aggregation family byte.
func (f *Factory) CacheID() byte {
	return f.cacheID
}

// ShouldFinalize reports whether FinalizeComputation produces estimates.
func (f *Factory) ShouldFinalize() bool {
	return f.opts.shouldFinalize
}

// IsInputThetaSketch reports whether the input column holds serialized sketches.
func (f *Factory) IsInputThetaSketch() bool {
	return f.opts.inputSketches
}

// ErrorBoundsStdDev returns the standard deviations used for error bounds, 0 if disabled.
func (f *Factory) ErrorBoundsStdDev() uint8 {
	return f.opts.errorBoundsStdDev
}

// Factorize creates a row-at-a-time aggregator reading from selector.
func (f *Factory) Factorize(selector column.ValueSelector) (*Aggregator, error) {
	return newAggregator(selector, f.lgK, f.opts.inputSketches)
}

// FactorizeWithSize creates a row-at-a-time aggregator and returns its
// initial heap footprint in bytes.
func (f *Factory) FactorizeWithSize(selector column.ValueSelector) (*Aggregator, int, error) {
	agg, err := f.Factorize(selector)
	if err != nil {
		return nil, 0, err
	}
	return agg, f.GuessAggregatorHeapFootprint(0), nil
}

// FactorizeBuffered creates an aggregator whose sketches live in slots of
// MaxIntermediateSize bytes inside caller-provided regions.
func (f *Factory) FactorizeBuffered(selector column.ValueSelector) (*BufferAggregator, error) {
	if _, err := newAccumulator(f.lgK, false); err != nil {
		return nil, err
	}
	return newBufferAggregator(selector, f.lgK, f.opts.inputSketches, f.MaxIntermediateSize()), nil
}

// FactorizeVector creates a vectorized aggregator whose sketches live in
// slots of MaxIntermediateSize bytes inside caller-provided regions.
func (f *Factory) FactorizeVector(selector column.VectorSelector) (*VectorAggregator, error) {
	if _, err := newAccumulator(f.lgK, false); err != nil {
		return nil, err
	}
	return newVectorAggregator(selector, f.lgK, f.opts.inputSketches, f.MaxIntermediateSize()), nil
}

// CanVectorize reports whether FactorizeVector can be used. It always can.
func (f *Factory) CanVectorize() bool {
	return true
}

// MakeAggregateCombiner creates a combiner for merging group-by results.
func (f *Factory) MakeAggregateCombiner() (*Combiner, error) {
	return newCombiner(f.lgK)
}

// GuessAggregatorHeapFootprint returns the worst-case heap bytes of one
// aggregator after rows rows.
func (f *Factory) GuessAggregatorHeapFootprint(rows int64) int {
	return GuessAggregatorHeapFootprint(f.size, rows)
}

// MaxIntermediateSize returns the worst-case serialized size of one sketch,
// which is also the slot size used by buffer and vector aggregators.
func (f *Factory) MaxIntermediateSize() int {
	return MaxUnionBytes(1 << f.lgK)
}

// RequiredFields returns the columns the aggregation reads.
func (f *Factory) RequiredFields() []string {
	return []string{f.fieldName}
}

// CacheKey returns cacheID, size as a big-endian int32 and the UTF-8 bytes
// of fieldName, concatenated. The key is an opaque identity: it carries no
// length prefix and must never be parsed back into its parts.
//
// The output name is not part of the key: factories that differ only in
// name compute the same sketch and share cached results. Equal still tells
// them apart.
func (f *Factory) CacheKey() []byte {
	key := make([]byte, 0, 1+4+len(f.fieldName))
	key = append(key, f.cacheID)
	key = binary.BigEndian.AppendUint32(key, uint32(int32(f.size)))
	return append(key, f.fieldName...)
}

// Combine returns a new Holder with the union of lhs and rhs. Neither input
// is modified. Nil inputs are treated as empty sketches.
func (f *Factory) Combine(lhs, rhs any) (*Holder, error) {
	u, err := newUnionHolder(f.lgK)
	if err != nil {
		return nil, err
	}
	if err := u.Fold(lhs); err != nil {
		return nil, err
	}
	if err := u.Fold(rhs); err != nil {
		return nil, err
	}
	s, err := u.Sketch()
	if err != nil {
		return nil, err
	}
	return NewHolder(s), nil
}

// Deserialize converts an engine or wire value into a Holder. See the
// package-level Deserialize for the accepted values.
func (f *Factory) Deserialize(v any) (*Holder, error) {
	return Deserialize(v)
}

// Comparator returns the total order used to sort aggregated sketches.
func (f *Factory) Comparator() func(a, b *Holder) int {
	return Compare
}

// Equal reports whether f and other define the same aggregation.
func (f *Factory) Equal(other *Factory) bool {
	if f == other {
		return true
	}
	if f == nil || other == nil {
		return false
	}
	return f.name == other.name &&
		f.fieldName == other.fieldName &&
		f.size == other.size &&
		f.cacheID == other.cacheID &&
		f.opts == other.opts
}

func (f *Factory) String() string {
	return fmt.Sprintf("Factory{fieldName='%s', name='%s', size=%d}", f.fieldName, f.name, f.size)
}
