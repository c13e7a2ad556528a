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
	"github.com/apache/datasketches-go/theta"

	"github.com/apache/datasketches-aggregation-go/internal/intmath"
)

// DefaultSize is the nominal number of entries used when none is configured.
const DefaultSize = 16384

// unionMaxPreLongs is the largest preamble of a serialized theta union, in longs.
const unionMaxPreLongs = 4

const (
	// MinEntriesPerAggregator is the smallest hash table a sketch starts with.
	// Each entry is a 64-bit hash.
	MinEntriesPerAggregator = 1 << theta.MinLgK

	// LongestPossiblePreambleBytes is the largest preamble of a sketch held by an aggregator.
	LongestPossiblePreambleBytes = unionMaxPreLongs << 3
)

// GuessAggregatorHeapFootprint returns a worst-case estimate of the heap bytes
// used by one aggregator of the given nominal size after it has seen rows rows.
// It is meant for memory planning and is not an exact allocation size.
func GuessAggregatorHeapFootprint(size int, rows int64) int {
	maxEntries := size * 2

	expectedEntries := maxEntries
	if rows <= int64(maxEntries) {
		// rows <= maxEntries, so it fits in an int
		expectedEntries = min(maxEntries, max(MinEntriesPerAggregator, int(intmath.CeilPowerOf2(rows))))
	}

	return 8*expectedEntries + LongestPossiblePreambleBytes
}

// MaxUnionBytes returns the largest number of bytes a union of the given
// nominal size can occupy.
func MaxUnionBytes(size int) int {
	return size<<4 + LongestPossiblePreambleBytes
}
