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

package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/apache/datasketches-aggregation-go/cachekey"
	"github.com/apache/datasketches-aggregation-go/column"
	"github.com/apache/datasketches-aggregation-go/plancache"
	"github.com/apache/datasketches-aggregation-go/thetaagg"
)

// segmentCacheID identifies segment aggregation results in the plan cache.
const segmentCacheID byte = 0x40

// Result is the outcome of one configured aggregation.
type Result struct {
	Name     string
	Segments int
	Rows     int64
	Sketch   *thetaagg.Holder
	Value    any
	// Footprint is the heap estimate of one aggregator over all rows.
	Footprint int
	// IntermediateSize is the slot size of buffer and vector aggregation.
	IntermediateSize int
}

type segmentResult struct {
	sketch *thetaagg.Holder
	rows   int64
}

type runner struct {
	cfg    Config
	db     *sql.DB
	mem    memory.Allocator
	cache  *plancache.Cache[segmentResult]
	logger log.Logger
}

func newRunner(cfg Config, db *sql.DB, reg prometheus.Registerer, logger log.Logger) (*runner, error) {
	cache, err := plancache.New[segmentResult](cfg.PlanCache, reg, logger)
	if err != nil {
		return nil, err
	}
	return &runner{
		cfg:    cfg,
		db:     db,
		mem:    memory.DefaultAllocator,
		cache:  cache,
		logger: logger,
	}, nil
}

// run computes every configured aggregation, each in its own goroutine.
func (r *runner) run(ctx context.Context) ([]Result, error) {
	factories, err := r.cfg.factories()
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(factories))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range factories {
		g.Go(func() error {
			res, err := r.aggregate(ctx, f)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *runner) segments() []string {
	if len(r.cfg.Segments) == 0 {
		return []string{""}
	}
	return r.cfg.Segments
}

// aggregate computes f over every segment and merges the segment sketches.
func (r *runner) aggregate(ctx context.Context, f *thetaagg.Factory) (Result, error) {
	var (
		merged *thetaagg.Holder
		rows   int64
	)
	segments := r.segments()
	for _, segment := range segments {
		key := cachekey.NewBuilder(segmentCacheID).
			AppendString(r.cfg.Table).
			AppendString(segment).
			AppendString(r.cfg.Mode).
			AppendCacheable(f).
			Build()

		res, hit, err := r.cache.GetOrCompute(key, func() (segmentResult, error) {
			return r.aggregateSegment(ctx, f, segment)
		})
		if err != nil {
			return Result{}, err
		}
		level.Debug(r.logger).Log("msg", "aggregated segment", "aggregation", f.Name(), "segment", segment,
			"key", cachekey.FormatFingerprint(key), "rows", res.rows, "cached", hit)

		merged, err = f.Combine(merged, res.sketch)
		if err != nil {
			return Result{}, err
		}
		rows += res.rows
	}

	value, err := f.FinalizeComputation(merged)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Name:             f.Name(),
		Segments:         len(segments),
		Rows:             rows,
		Sketch:           merged,
		Value:            value,
		Footprint:        f.GuessAggregatorHeapFootprint(rows),
		IntermediateSize: f.MaxIntermediateSize(),
	}, nil
}

func (r *runner) query(fieldName, segment string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", quoteIdent(fieldName), quoteIdent(r.cfg.Table))
	if segment != "" {
		q += " WHERE " + segment
	}
	return q
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (r *runner) aggregateSegment(ctx context.Context, f *thetaagg.Factory, segment string) (segmentResult, error) {
	start := time.Now()
	arr, err := column.LoadColumn(ctx, r.db, r.mem, r.query(f.FieldName(), segment))
	if err != nil {
		return segmentResult{}, err
	}
	defer arr.Release()

	var sketch *thetaagg.Holder
	switch r.cfg.Mode {
	case modeDirect:
		sketch, err = aggregateDirect(f, arr)
	case modeBuffer:
		sketch, err = aggregateBuffered(f, arr)
	default:
		sketch, err = aggregateVectors(f, arr, r.cfg.VectorSize)
	}
	if err != nil {
		return segmentResult{}, err
	}

	// cached results are shared between goroutines, so only immutable sketches are cached
	compact, err := sketch.Sketch()
	if err != nil {
		return segmentResult{}, err
	}

	level.Info(r.logger).Log("msg", "segment done", "aggregation", f.Name(), "segment", segment,
		"mode", r.cfg.Mode, "rows", arr.Len(), "duration", time.Since(start))
	return segmentResult{sketch: thetaagg.NewHolder(compact), rows: int64(arr.Len())}, nil
}

func aggregateDirect(f *thetaagg.Factory, arr arrow.Array) (*thetaagg.Holder, error) {
	sel := column.NewArrowValueSelector(arr)
	defer sel.Release()

	agg, err := f.Factorize(sel)
	if err != nil {
		return nil, err
	}
	defer agg.Close()
	for sel.Advance() {
		if err := agg.Aggregate(); err != nil {
			return nil, err
		}
	}
	return agg.Get()
}

func aggregateBuffered(f *thetaagg.Factory, arr arrow.Array) (*thetaagg.Holder, error) {
	sel := column.NewArrowValueSelector(arr)
	defer sel.Release()

	agg, err := f.FactorizeBuffered(sel)
	if err != nil {
		return nil, err
	}
	defer agg.Close()
	region := make([]byte, agg.SlotSize())
	if err := agg.Init(region, 0); err != nil {
		return nil, err
	}
	for sel.Advance() {
		if err := agg.Aggregate(region, 0); err != nil {
			return nil, err
		}
	}
	return agg.Get(region, 0)
}

func aggregateVectors(f *thetaagg.Factory, arr arrow.Array, vectorSize int) (*thetaagg.Holder, error) {
	sel := column.NewArrowVectorSelector(arr, vectorSize)
	defer sel.Release()

	agg, err := f.FactorizeVector(sel)
	if err != nil {
		return nil, err
	}
	defer agg.Close()
	region := make([]byte, agg.SlotSize())
	if err := agg.Init(region, 0); err != nil {
		return nil, err
	}
	for sel.Advance() {
		if err := agg.AggregateRange(region, 0, 0, sel.CurrentVectorSize()); err != nil {
			return nil, err
		}
	}
	return agg.Get(region, 0)
}
