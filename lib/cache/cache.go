// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache provides TTL-bounded memoization of read-only backend
// calls. Entries live in process memory for at most their TTL; an
// expired entry is indistinguishable from absence and is evicted on
// the next lookup (lazy eviction, no background sweep). There is no
// size-based eviction and no persistence.
//
// Only idempotent read operations go through the cache. Mutations
// bypass it and do not invalidate existing read entries — staleness of
// up to one TTL window after a mutation is an accepted, bounded
// limitation.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/forgebridge/forgebridge/lib/clock"
)

// keyDomain is the BLAKE3 keyed-hash domain for cache signatures.
// Domain separation keeps cache keys from colliding with any other
// BLAKE3 use, should hashes ever leak into logs or diagnostics. The
// byte values are the ASCII encoding of the domain name, zero-padded
// to 32 bytes, so the key is inspectable in a debugger.
var keyDomain = [32]byte{
	'f', 'o', 'r', 'g', 'e', 'b', 'r', 'i', 'd', 'g', 'e', '.',
	'c', 'a', 'c', 'h', 'e', '.', 'k', 'e', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Key derives the deterministic cache signature for a backend read:
// the hex BLAKE3 keyed hash of the target endpoint, the operation
// name, and the argument set serialized with sorted keys. Two calls
// with the same endpoint, operation, and arguments always produce the
// same signature regardless of map iteration order.
func Key(endpoint, operation string, args map[string]any) string {
	hasher, err := blake3.NewKeyed(keyDomain[:])
	if err != nil {
		// NewKeyed fails only on a key that is not 32 bytes; keyDomain
		// is a fixed 32-byte array, so this cannot happen at runtime.
		panic(err)
	}
	hasher.Write([]byte(endpoint))
	hasher.Write([]byte{0})
	hasher.Write([]byte(operation))
	hasher.Write([]byte{0})

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value, err := json.Marshal(args[name])
		if err != nil {
			// Arguments come from decoded JSON-RPC params, so they
			// are always marshalable; fall back to the Go formatting
			// rather than failing key derivation.
			value = []byte("?")
		}
		hasher.Write([]byte(name))
		hasher.Write([]byte{'='})
		hasher.Write(value)
		hasher.Write([]byte{0})
	}

	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum)
}

// entry is one cached value with its insertion timestamp.
type entry struct {
	value     any
	createdAt time.Time
}

// Cache is a TTL-bounded read-through cache. Safe for concurrent use:
// tool invocations dispatched from the same input burst may complete
// in parallel goroutines, so the backing map is mutex-guarded.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	entries map[string]entry
}

// New creates a cache with the given TTL. A nil clk defaults to the
// real clock; tests inject clock.Fake for deterministic expiry.
func New(ttl time.Duration, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.Real()
	}
	return &Cache{
		ttl:     ttl,
		clock:   clk,
		entries: make(map[string]entry),
	}
}

// Get returns the cached value for key if an entry exists and its age
// is below the TTL. A stale entry is removed and reported as absent.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(cached.createdAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return cached.value, true
}

// Set unconditionally inserts or overwrites the value for key with the
// current timestamp. A duplicate write from a racing invocation is an
// equally fresh overwrite.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, createdAt: c.clock.Now()}
}

// Len returns the number of entries currently stored, including any
// that have expired but not yet been lazily evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Through performs a read-through lookup: a fresh cached value is
// returned directly; otherwise fetch runs and its result is stored
// under key before being returned. Fetch errors are never cached.
//
// When a cache constructed with a zero TTL is used, every lookup
// misses and the cache degrades to a passthrough.
func Through[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	if cached, ok := c.Get(key); ok {
		if value, ok := cached.(T); ok {
			return value, nil
		}
		// A type mismatch means two operations derived the same key
		// for different value types — a programming error. Fall
		// through to fetch so the caller still gets a correct value.
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, value)
	return value, nil
}
