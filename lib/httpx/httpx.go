// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpx provides HTTP I/O helpers for the REST backend
// clients. All response body reads are bounded at MaxResponseSize to
// prevent unbounded memory allocation from a misbehaving server. These
// are for JSON API responses — not for streaming transfers, which
// should be read incrementally with io.Copy.
package httpx

import (
	"io"
	"net/http"
	"strconv"
	"time"
)

// MaxResponseSize is the bound on JSON API response body reads: 64 MB.
// Legitimate tracker and wiki API responses are orders of magnitude
// smaller; the limit exists solely so a pathological response cannot
// exhaust process memory.
const MaxResponseSize int64 = 64 << 20

// MaxRetryAfter caps how long a rate-limit backoff can stall a
// request. A server asking for more than this gets the error
// propagated instead.
const MaxRetryAfter = 30 * time.Second

// ReadResponse reads a JSON API response body up to MaxResponseSize
// bytes. Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// RetryAfter parses the Retry-After response header as a delay in
// whole seconds. Returns zero when the header is absent or
// unparseable, which disables the retry.
func RetryAfter(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
