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

// Package intmath holds the small integer helpers shared by the aggregation packages.
package intmath

import (
	"fmt"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// IsPowerOf2 returns true if n is a positive power of 2.
func IsPowerOf2[T constraints.Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// CeilPowerOf2 returns the smallest power of 2 greater than or equal to n.
// Values below 2 yield 1; values above the largest power of 2 representable
// in a signed 32-bit integer are clamped to 1 << 30.
func CeilPowerOf2[T constraints.Integer](n T) T {
	if n <= 1 {
		return 1
	}
	top := uint64(1) << 30
	if uint64(n) >= top {
		return T(top)
	}
	return T(1) << bits.Len64(uint64(n-1))
}

// ExactLog2 returns log2(n) for a positive power of 2.
func ExactLog2[T constraints.Integer](n T) (uint8, error) {
	if !IsPowerOf2(n) {
		return 0, fmt.Errorf("%d is not a positive power of 2", n)
	}
	return uint8(bits.TrailingZeros64(uint64(n))), nil
}
