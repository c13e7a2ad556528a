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

// Package cachekey composes the cache keys of a query plan from the keys of
// its parts.
//
// The keys of individual aggregations carry no length prefix, so they are
// not self-delimiting: concatenating two of them could collide with a
// different pair. The Builder length-prefixes every part it appends.
package cachekey

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Cacheable is anything with a cache key.
type Cacheable interface {
	CacheKey() []byte
}

const (
	partBytes     byte = 0x01
	partString    byte = 0x02
	partInt       byte = 0x03
	partCacheable byte = 0x04
	partList      byte = 0x05
)

// Builder accumulates the parts of a composite cache key.
type Builder struct {
	buf []byte
}

// NewBuilder starts a key for the plan element identified by id.
func NewBuilder(id byte) *Builder {
	return &Builder{buf: []byte{id}}
}

func (b *Builder) appendPart(kind byte, data []byte) *Builder {
	b.buf = append(b.buf, kind)
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(len(data)))
	b.buf = append(b.buf, data...)
	return b
}

// AppendBytes appends raw bytes.
func (b *Builder) AppendBytes(data []byte) *Builder {
	return b.appendPart(partBytes, data)
}

// AppendString appends the UTF-8 bytes of s.
func (b *Builder) AppendString(s string) *Builder {
	b.buf = append(b.buf, partString)
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(len(s)))
	b.buf = append(b.buf, s...)
	return b
}

// AppendInt appends n as a big-endian int64.
func (b *Builder) AppendInt(n int64) *Builder {
	b.buf = append(b.buf, partInt)
	b.buf = binary.BigEndian.AppendUint64(b.buf, uint64(n))
	return b
}

// AppendCacheable appends the key of c. A nil c appends an empty key.
func (b *Builder) AppendCacheable(c Cacheable) *Builder {
	if c == nil {
		return b.appendPart(partCacheable, nil)
	}
	return b.appendPart(partCacheable, c.CacheKey())
}

// AppendCacheables appends the keys of cs in order.
func AppendCacheables[C Cacheable](b *Builder, cs ...C) *Builder {
	b.buf = append(b.buf, partList)
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(len(cs)))
	for _, c := range cs {
		b.appendPart(partCacheable, c.CacheKey())
	}
	return b
}

// Build returns a copy of the key built so far.
func (b *Builder) Build() []byte {
	return append([]byte(nil), b.buf...)
}

// Fingerprint returns the 64-bit hash of the key built so far.
func (b *Builder) Fingerprint() uint64 {
	return Fingerprint(b.buf)
}

// Fingerprint returns the 64-bit hash of key, for use as a compact map key.
// Equal keys always have equal fingerprints; different keys collide with
// negligible probability.
func Fingerprint(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// FormatFingerprint renders the fingerprint of key as 16 hex digits, for logs.
func FormatFingerprint(key []byte) string {
	return fmt.Sprintf("%016x", Fingerprint(key))
}
