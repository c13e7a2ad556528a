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

// Package thetaagg implements approximate distinct-count aggregation of a
// column with theta sketches.
//
// A Factory is the immutable definition of one aggregation. It creates an
// Aggregator for row-at-a-time aggregation into a single sketch, a
// BufferAggregator and a VectorAggregator for grouped aggregation into
// caller-managed memory regions, and a Combiner for merging group results.
// Results are returned as Holders, which can be combined across segments
// with Factory.Combine, serialized with MarshalBinary and read back with
// Deserialize.
//
//	f, err := thetaagg.NewFactory("unique_users", "user_id", thetaagg.CacheIDThetaSketch)
//	agg, err := f.Factorize(selector)
//	for cursor.Advance() {
//		err = agg.Aggregate()
//	}
//	h, err := agg.Get()
//	estimate := h.Estimate()
//
// Values are hashed with the default seed, so sketches built by any two
// aggregators can be merged, whatever their sizes.
package thetaagg
