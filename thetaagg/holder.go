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
	"cmp"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/apache/datasketches-go/theta"
)

type holderMode uint8

const (
	modeUpdate holderMode = iota
	modeUnion
	modeCompact
)

func (m holderMode) String() string {
	switch m {
	case modeUpdate:
		return "update"
	case modeUnion:
		return "union"
	case modeCompact:
		return "compact"
	default:
		return fmt.Sprintf("holderMode(%d)", uint8(m))
	}
}

// Holder wraps one theta sketch as it moves through aggregation: an update
// sketch that accepts raw values, a union that accepts other sketches, or an
// immutable compact sketch. It memoizes the compact view and the estimate;
// every mutation invalidates both.
//
// A Holder is not safe for concurrent mutation.
type Holder struct {
	mode    holderMode
	update  *theta.QuickSelectUpdateSketch
	union   *theta.Union
	compact *theta.CompactSketch

	cached      *theta.CompactSketch
	estimate    float64
	hasEstimate bool
}

func newUpdateHolder(lgK uint8) (*Holder, error) {
	s, err := theta.NewQuickSelectUpdateSketch(
		theta.WithUpdateSketchLgK(lgK),
		theta.WithUpdateSketchSeed(theta.DefaultSeed),
	)
	if err != nil {
		return nil, err
	}
	return &Holder{mode: modeUpdate, update: s}, nil
}

func newUnionHolder(lgK uint8) (*Holder, error) {
	u, err := theta.NewUnion(
		theta.WithUnionLgK(lgK),
		theta.WithUnionSeed(theta.DefaultSeed),
	)
	if err != nil {
		return nil, err
	}
	return &Holder{mode: modeUnion, union: u}, nil
}

// NewHolder wraps an immutable compact sketch.
func NewHolder(s *theta.CompactSketch) *Holder {
	return &Holder{mode: modeCompact, compact: s}
}

// emptyHolder returns a Holder around an empty compact sketch.
func emptyHolder() *Holder {
	s, _ := theta.NewQuickSelectUpdateSketch(theta.WithUpdateSketchLgK(theta.MinLgK))
	return NewHolder(s.Compact(true))
}

// Insert adds one raw value to an update sketch. Nil values, empty strings and
// empty byte slices are skipped. Inserting into a union or compact Holder, or
// inserting a sketch, fails with ErrUnsupportedMode.
func (h *Holder) Insert(v any) error {
	if h.mode != modeUpdate {
		return fmt.Errorf("%w: cannot insert into a %s sketch", ErrUnsupportedMode, h.mode)
	}
	if isSketchValue(v) {
		return fmt.Errorf("%w: sketches must be folded into a union, not inserted", ErrUnsupportedMode)
	}
	err := updateSketch(h.update, v)
	h.InvalidateCache()
	return err
}

// Fold merges another sketch into a union Holder. Accepted values are the
// ones understood by Deserialize. Folding nil is a no-op.
func (h *Holder) Fold(v any) error {
	if h.mode != modeUnion {
		return fmt.Errorf("%w: cannot fold into a %s sketch", ErrUnsupportedMode, h.mode)
	}
	if v == nil {
		return nil
	}
	other, err := Deserialize(v)
	if err != nil {
		return err
	}
	if err := other.FoldInto(h.union); err != nil {
		return err
	}
	h.InvalidateCache()
	return nil
}

// FoldInto pushes the contents of h into u. h is not modified.
func (h *Holder) FoldInto(u *theta.Union) error {
	switch h.mode {
	case modeUpdate:
		return u.Update(h.update)
	case modeCompact:
		return u.Update(h.compact)
	default:
		s, err := h.Sketch()
		if err != nil {
			return err
		}
		return u.Update(s)
	}
}

// resetUnion clears a union Holder.
func (h *Holder) resetUnion() {
	h.union.Reset()
	h.InvalidateCache()
}

// InvalidateCache drops the memoized compact view and estimate.
func (h *Holder) InvalidateCache() {
	h.cached = nil
	h.hasEstimate = false
}

// Sketch returns an ordered compact view of the current contents.
// The view is computed lazily and reused until the next mutation.
func (h *Holder) Sketch() (*theta.CompactSketch, error) {
	if h.mode == modeCompact {
		return h.compact, nil
	}
	if h.cached != nil {
		return h.cached, nil
	}

	var (
		s   *theta.CompactSketch
		err error
	)
	if h.mode == modeUpdate {
		s = h.update.Compact(true)
	} else {
		s, err = h.union.Result(true)
		if err != nil {
			return nil, err
		}
	}
	h.cached = s
	return s, nil
}

// Estimate returns the distinct-count estimate, memoized until the next
// mutation. It returns NaN if the sketch cannot be read.
func (h *Holder) Estimate() float64 {
	if h.hasEstimate {
		return h.estimate
	}
	s, err := h.Sketch()
	if err != nil {
		return math.NaN()
	}
	h.estimate = s.Estimate()
	h.hasEstimate = true
	return h.estimate
}

// LowerBound returns the approximate lower error bound for 1, 2 or 3 standard deviations.
func (h *Holder) LowerBound(numStdDevs uint8) (float64, error) {
	s, err := h.Sketch()
	if err != nil {
		return 0, err
	}
	return s.LowerBound(numStdDevs)
}

// UpperBound returns the approximate upper error bound for 1, 2 or 3 standard deviations.
func (h *Holder) UpperBound(numStdDevs uint8) (float64, error) {
	s, err := h.Sketch()
	if err != nil {
		return 0, err
	}
	return s.UpperBound(numStdDevs)
}

// IsEmpty returns true if the sketch has seen no input.
func (h *Holder) IsEmpty() bool {
	s, err := h.Sketch()
	return err != nil || s.IsEmpty()
}

// NumRetained returns the number of hashes retained by the sketch.
func (h *Holder) NumRetained() uint32 {
	s, err := h.Sketch()
	if err != nil {
		return 0
	}
	return s.NumRetained()
}

// MarshalBinary returns the native serialized form of the compact view.
func (h *Holder) MarshalBinary() ([]byte, error) {
	s, err := h.Sketch()
	if err != nil {
		return nil, err
	}
	return s.MarshalBinary()
}

// String returns a short summary of the sketch.
func (h *Holder) String() string {
	s, err := h.Sketch()
	if err != nil {
		return fmt.Sprintf("Holder{mode=%s, err=%v}", h.mode, err)
	}
	return fmt.Sprintf("Holder{mode=%s, estimate=%f, retained=%d, theta=%f}",
		h.mode, h.Estimate(), s.NumRetained(), s.Theta())
}

// Deserialize turns a value read from the engine or the wire into a Holder.
// It accepts a *Holder (returned as is), theta sketches, the native
// serialized bytes of a compact sketch and the base64 encoding of those
// bytes. Nil yields an empty sketch.
func Deserialize(v any) (*Holder, error) {
	switch x := v.(type) {
	case nil:
		return emptyHolder(), nil
	case *Holder:
		return x, nil
	case *theta.CompactSketch:
		return NewHolder(x), nil
	case *theta.QuickSelectUpdateSketch:
		return NewHolder(x.Compact(true)), nil
	case *theta.WrappedCompactSketch:
		return NewHolder(theta.NewCompactSketch(x, true)), nil
	case *theta.Union:
		s, err := x.Result(true)
		if err != nil {
			return nil, err
		}
		return NewHolder(s), nil
	case []byte:
		s, err := theta.Decode(x, theta.DefaultSeed)
		if err != nil {
			return nil, fmt.Errorf("decode theta sketch: %w", err)
		}
		return NewHolder(s), nil
	case string:
		raw, err := base64.StdEncoding.DecodeString(x)
		if err != nil {
			return nil, fmt.Errorf("decode base64 theta sketch: %w", err)
		}
		return Deserialize(raw)
	default:
		return nil, fmt.Errorf("%w: cannot deserialize %T as a theta sketch", ErrUnsupportedType, v)
	}
}

// Compare orders Holders by estimate, then by retained entries, then by
// theta and finally by the retained hashes themselves, so that 0 means the
// two sketches are identical. Nil sorts first.
func Compare(a, b *Holder) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if c := cmp.Compare(a.Estimate(), b.Estimate()); c != 0 {
		return c
	}

	sa, errA := a.Sketch()
	sb, errB := b.Sketch()
	if errA != nil || errB != nil {
		return cmp.Compare(boolToInt(errA == nil), boolToInt(errB == nil))
	}
	if c := cmp.Compare(sa.NumRetained(), sb.NumRetained()); c != 0 {
		return c
	}
	if c := cmp.Compare(sa.Theta64(), sb.Theta64()); c != 0 {
		return c
	}
	if c := cmp.Compare(boolToInt(sa.IsEmpty()), boolToInt(sb.IsEmpty())); c != 0 {
		return c
	}
	return slices.Compare(slices.Sorted(sa.All()), slices.Sorted(sb.All()))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isSketchValue(v any) bool {
	switch v.(type) {
	case *Holder, *theta.CompactSketch, *theta.QuickSelectUpdateSketch, *theta.WrappedCompactSketch, *theta.Union:
		return true
	}
	return false
}

func ignorable(err error) bool {
	return errors.Is(err, theta.ErrDuplicateKey) ||
		errors.Is(err, theta.ErrHashExceedsTheta) ||
		errors.Is(err, theta.ErrZeroHashValue) ||
		errors.Is(err, theta.ErrUpdateEmptyString)
}

func updateSketch(s *theta.QuickSelectUpdateSketch, v any) error {
	var err error
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
		err = s.UpdateString(x)
	case []byte:
		if len(x) == 0 {
			return nil
		}
		err = s.UpdateBytes(x)
	case int:
		err = s.UpdateInt64(int64(x))
	case int8:
		err = s.UpdateInt64(int64(x))
	case int16:
		err = s.UpdateInt64(int64(x))
	case int32:
		err = s.UpdateInt64(int64(x))
	case int64:
		err = s.UpdateInt64(x)
	case uint:
		err = s.UpdateInt64(int64(x))
	case uint8:
		err = s.UpdateInt64(int64(x))
	case uint16:
		err = s.UpdateInt64(int64(x))
	case uint32:
		err = s.UpdateInt64(int64(x))
	case uint64:
		err = s.UpdateInt64(int64(x))
	case float64:
		err = s.UpdateFloat64(x)
	case float32:
		err = s.UpdateFloat64(float64(x))
	case bool:
		err = s.UpdateString(fmt.Sprint(x))
	case []int64:
		if len(x) == 0 {
			return nil
		}
		buf := make([]byte, 8*len(x))
		for i, n := range x {
			binary.LittleEndian.PutUint64(buf[8*i:], uint64(n))
		}
		err = s.UpdateBytes(buf)
	case []int32:
		if len(x) == 0 {
			return nil
		}
		buf := make([]byte, 4*len(x))
		for i, n := range x {
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(n))
		}
		err = s.UpdateBytes(buf)
	case []string:
		for _, e := range x {
			if err := updateSketch(s, e); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, e := range x {
			if e == nil {
				continue
			}
			if str, ok := e.(string); ok {
				err = s.UpdateString(str)
			} else {
				err = s.UpdateString(fmt.Sprint(e))
			}
			if err != nil && !ignorable(err) {
				return err
			}
		}
		return nil
	case fmt.Stringer:
		err = s.UpdateString(x.String())
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}

	if err != nil && !ignorable(err) {
		return err
	}
	return nil
}

