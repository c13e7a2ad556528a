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

// Package plancache caches aggregation results by the cache key of the plan
// that produced them.
package plancache

import (
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/murmur3"

	"github.com/apache/datasketches-aggregation-go/cachekey"
)

var ErrInvalidConfig = errors.New("invalid plan cache config")

// Config sizes the cache.
type Config struct {
	Shards     int `yaml:"shards"`
	MaxEntries int `yaml:"max_entries"`
}

// DefaultConfig returns a small cache suitable for a single process.
func DefaultConfig() Config {
	return Config{Shards: 16, MaxEntries: 4096}
}

func (c Config) Validate() error {
	if c.Shards <= 0 {
		return fmt.Errorf("%w: shards must be positive: %d", ErrInvalidConfig, c.Shards)
	}
	if c.MaxEntries < c.Shards {
		return fmt.Errorf("%w: max_entries (%d) must be at least shards (%d)", ErrInvalidConfig, c.MaxEntries, c.Shards)
	}
	return nil
}

type metrics struct {
	requests  prometheus.Counter
	hits      prometheus.Counter
	evictions prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		requests: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "thetaagg",
			Name:      "plan_cache_requests_total",
			Help:      "Total number of plan cache lookups.",
		}),
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "thetaagg",
			Name:      "plan_cache_hits_total",
			Help:      "Total number of plan cache lookups that found an entry.",
		}),
		evictions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "thetaagg",
			Name:      "plan_cache_evictions_total",
			Help:      "Total number of entries evicted from the plan cache.",
		}),
	}
}

// Cache is a sharded LRU keyed by opaque byte keys. It is safe for
// concurrent use.
type Cache[V any] struct {
	shards  []*lru.Cache[string, V]
	metrics *metrics
	logger  log.Logger
}

// New creates a cache. reg may be nil to skip metric registration.
func New[V any](cfg Config, reg prometheus.Registerer, logger log.Logger) (*Cache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cache[V]{
		shards:  make([]*lru.Cache[string, V], cfg.Shards),
		metrics: newMetrics(reg),
		logger:  logger,
	}
	perShard := cfg.MaxEntries / cfg.Shards
	for i := range c.shards {
		shard, err := lru.NewWithEvict[string, V](perShard, c.onEvict)
		if err != nil {
			return nil, err
		}
		c.shards[i] = shard
	}
	return c, nil
}

func (c *Cache[V]) onEvict(key string, _ V) {
	c.metrics.evictions.Inc()
	level.Debug(c.logger).Log("msg", "evicted plan cache entry", "key", cachekey.FormatFingerprint([]byte(key)))
}

func (c *Cache[V]) shard(key []byte) *lru.Cache[string, V] {
	return c.shards[murmur3.Sum64(key)%uint64(len(c.shards))]
}

// Get returns the value cached under key.
func (c *Cache[V]) Get(key []byte) (V, bool) {
	c.metrics.requests.Inc()
	v, ok := c.shard(key).Get(string(key))
	if ok {
		c.metrics.hits.Inc()
	}
	return v, ok
}

// Put caches v under key, replacing any previous value.
func (c *Cache[V]) Put(key []byte, v V) {
	c.shard(key).Add(string(key), v)
}

// GetOrCompute returns the value cached under key, computing and caching it
// on a miss. Errors are returned as is and nothing is cached. Concurrent
// misses on the same key may compute more than once.
func (c *Cache[V]) GetOrCompute(key []byte, compute func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.Put(key, v)
	return v, false, nil
}

// Remove drops the entry cached under key.
func (c *Cache[V]) Remove(key []byte) {
	c.shard(key).Remove(string(key))
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		n += s.Len()
	}
	return n
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	for _, s := range c.shards {
		s.Purge()
	}
}
