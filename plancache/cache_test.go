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

package plancache

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/datasketches-aggregation-go/cachekey"
	"github.com/apache/datasketches-aggregation-go/column"
	"github.com/apache/datasketches-aggregation-go/thetaagg"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{Shards: 0, MaxEntries: 10}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{Shards: 4, MaxEntries: 3}.Validate(), ErrInvalidConfig)
}

func TestCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New[int](Config{Shards: 1, MaxEntries: 2}, reg, log.NewNopLogger())
	require.NoError(t, err)

	_, ok := c.Get([]byte("a"))
	assert.False(t, ok)

	c.Put([]byte("a"), 1)
	c.Put([]byte("b"), 2)
	v, ok := c.Get([]byte("a"))
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is the least recently used
	c.Put([]byte("c"), 3)
	_, ok = c.Get([]byte("b"))
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 3.0, testutil.ToFloat64(c.metrics.requests))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.evictions))

	c.Remove([]byte("a"))
	assert.Equal(t, 1, c.Len())
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestEvictionLog(t *testing.T) {
	var buf bytes.Buffer
	c, err := New[int](Config{Shards: 1, MaxEntries: 1}, nil, log.NewLogfmtLogger(&buf))
	require.NoError(t, err)

	c.Put([]byte("a"), 1)
	c.Put([]byte("b"), 2)
	assert.Contains(t, buf.String(), "key="+cachekey.FormatFingerprint([]byte("a")))
	assert.NotContains(t, buf.String(), cachekey.FormatFingerprint([]byte("b")))
}

func TestGetOrCompute(t *testing.T) {
	c, err := New[string](DefaultConfig(), nil, log.NewNopLogger())
	require.NoError(t, err)

	calls := 0
	compute := func() (string, error) {
		calls++
		return "value", nil
	}
	v, hit, err := c.GetOrCompute([]byte("k"), compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "value", v)

	v, hit, err = c.GetOrCompute([]byte("k"), compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, _, err = c.GetOrCompute([]byte("other"), func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get([]byte("other"))
	assert.False(t, ok)
}

func TestCacheConcurrent(t *testing.T) {
	c, err := New[int](Config{Shards: 8, MaxEntries: 1024}, nil, log.NewNopLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := []byte(fmt.Sprintf("key-%d", i))
				c.Put(key, i)
				v, ok := c.Get(key)
				if ok {
					assert.Equal(t, i, v)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, c.Len())
}

func TestCacheSketches(t *testing.T) {
	f, err := thetaagg.NewFactory("users", "user_id", thetaagg.CacheIDThetaSketch, thetaagg.WithSize(1024))
	require.NoError(t, err)
	c, err := New[*thetaagg.Holder](DefaultConfig(), nil, log.NewNopLogger())
	require.NoError(t, err)

	aggregate := func() (*thetaagg.Holder, error) {
		sel := column.NewSliceSelector("a", "b", "c")
		agg, err := f.Factorize(sel)
		if err != nil {
			return nil, err
		}
		for sel.Advance() {
			if err := agg.Aggregate(); err != nil {
				return nil, err
			}
		}
		return agg.Get()
	}

	first, hit, err := c.GetOrCompute(f.CacheKey(), aggregate)
	require.NoError(t, err)
	assert.False(t, hit)

	same, err := thetaagg.NewFactory("users_again", "user_id", thetaagg.CacheIDThetaSketch, thetaagg.WithSize(1024))
	require.NoError(t, err)
	second, hit, err := c.GetOrCompute(same.CacheKey(), aggregate)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, first, second)
	assert.Equal(t, 3.0, second.Estimate())
}
