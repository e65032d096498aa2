// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forgebridge/forgebridge/lib/clock"
)

func testClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestGetMissingKey(t *testing.T) {
	c := New(5*time.Minute, testClock())
	if _, ok := c.Get("absent"); ok {
		t.Fatal("Get on empty cache reported a hit")
	}
}

func TestSetGetWithinTTL(t *testing.T) {
	clk := testClock()
	c := New(5*time.Minute, clk)

	c.Set("k", "value")
	clk.Advance(4 * time.Minute)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("entry expired before its TTL")
	}
	if got != "value" {
		t.Fatalf("Get = %v, want %q", got, "value")
	}
}

func TestExpiredEntryEvictedOnLookup(t *testing.T) {
	clk := testClock()
	c := New(5*time.Minute, clk)

	c.Set("k", "value")
	clk.Advance(5 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("entry still valid at exactly TTL age")
	}
	if c.Len() != 0 {
		t.Fatalf("stale entry not evicted: Len = %d", c.Len())
	}
}

func TestSetOverwritesWithFreshTimestamp(t *testing.T) {
	clk := testClock()
	c := New(5*time.Minute, clk)

	c.Set("k", "old")
	clk.Advance(4 * time.Minute)
	c.Set("k", "new")
	clk.Advance(4 * time.Minute)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("overwritten entry expired against the old timestamp")
	}
	if got != "new" {
		t.Fatalf("Get = %v, want %q", got, "new")
	}
}

func TestThroughFetchesOncePerTTLWindow(t *testing.T) {
	clk := testClock()
	c := New(5*time.Minute, clk)
	key := Key("https://tracker.example.com", "issue_get", map[string]any{"key": "OPS-1"})

	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "issue body", nil
	}

	for i := 0; i < 2; i++ {
		got, err := Through(context.Background(), c, key, fetch)
		if err != nil {
			t.Fatalf("Through: %v", err)
		}
		if got != "issue body" {
			t.Fatalf("Through = %q", got)
		}
	}
	if calls != 1 {
		t.Fatalf("backend called %d times within TTL, want 1", calls)
	}

	clk.Advance(5 * time.Minute)
	if _, err := Through(context.Background(), c, key, fetch); err != nil {
		t.Fatalf("Through after expiry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("backend called %d times after TTL elapsed, want 2", calls)
	}
}

func TestThroughDoesNotCacheErrors(t *testing.T) {
	c := New(5*time.Minute, testClock())

	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("backend down")
	}

	for i := 0; i < 2; i++ {
		if _, err := Through(context.Background(), c, "k", fetch); err == nil {
			t.Fatal("Through swallowed the fetch error")
		}
	}
	if calls != 2 {
		t.Fatalf("failed fetch cached: calls = %d, want 2", calls)
	}
}

func TestKeyDeterministic(t *testing.T) {
	a := Key("https://tracker.example.com", "issue_search", map[string]any{
		"query": "project = OPS",
		"limit": 25,
	})
	b := Key("https://tracker.example.com", "issue_search", map[string]any{
		"limit": 25,
		"query": "project = OPS",
	})
	if a != b {
		t.Fatalf("same argument set produced different keys:\n%s\n%s", a, b)
	}
}

func TestKeyDistinguishesComponents(t *testing.T) {
	base := Key("https://tracker.example.com", "issue_get", map[string]any{"key": "OPS-1"})

	variants := []string{
		Key("https://other.example.com", "issue_get", map[string]any{"key": "OPS-1"}),
		Key("https://tracker.example.com", "issue_list", map[string]any{"key": "OPS-1"}),
		Key("https://tracker.example.com", "issue_get", map[string]any{"key": "OPS-2"}),
		Key("https://tracker.example.com", "issue_get", nil),
	}
	for i, variant := range variants {
		if variant == base {
			t.Errorf("variant %d collided with base key", i)
		}
	}
}
