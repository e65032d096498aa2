// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"bytes"
	"math/rand"
	"testing"
)

// pushAll feeds chunks to a fresh framer and collects every emitted
// message.
func pushAll(chunks ...[]byte) [][]byte {
	var f framer
	var messages [][]byte
	for _, chunk := range chunks {
		lines, _ := f.push(chunk)
		messages = append(messages, lines...)
	}
	return messages
}

// assertMessages checks emitted messages against the expected lines,
// byte for byte, in order.
func assertMessages(t *testing.T, got [][]byte, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("emitted %d messages, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if string(got[i]) != want[i] {
			t.Errorf("message[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFramerSingleCompleteLine(t *testing.T) {
	got := pushAll([]byte("{\"id\":1}\n"))
	assertMessages(t, got, `{"id":1}`)
}

func TestFramerSplitAcrossChunks(t *testing.T) {
	got := pushAll(
		[]byte(`{"jsonrpc":"2.0","id":7,"method":"to`),
		[]byte("ols/list\"}\n"),
	)
	assertMessages(t, got, `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`)
}

func TestFramerMultipleMessagesInOneChunk(t *testing.T) {
	got := pushAll([]byte("first\nsecond\nthird\n"))
	assertMessages(t, got, "first", "second", "third")
}

func TestFramerBlankLinesDropped(t *testing.T) {
	got := pushAll([]byte("\n\nfirst\n\n\nsecond\n\n"))
	assertMessages(t, got, "first", "second")
}

func TestFramerCarriageReturnStripped(t *testing.T) {
	got := pushAll([]byte("first\r\nsecond\r\n"))
	assertMessages(t, got, "first", "second")
}

func TestFramerPartialHeldBack(t *testing.T) {
	var f framer
	if messages, _ := f.push([]byte("incomplete")); len(messages) != 0 {
		t.Fatalf("partial fragment emitted: %q", messages)
	}
	messages, _ := f.push([]byte(" line\n"))
	assertMessages(t, messages, "incomplete line")
}

func TestFramerEmittedMessagesStable(t *testing.T) {
	var f framer
	first, _ := f.push([]byte("alpha\nbet"))
	f.push([]byte("a\ngamma\n"))
	assertMessages(t, first, "alpha")
}

func TestFramerOversizedCompleteLineDropped(t *testing.T) {
	var f framer
	huge := append(bytes.Repeat([]byte("x"), maxLineSize+1), '\n')
	messages, dropped := f.push(append(huge, []byte("after\n")...))
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	assertMessages(t, messages, "after")
}

// An unterminated line past the cap is dropped as soon as it exceeds
// the cap, and its buffer freed, rather than accumulating until a
// newline arrives.
func TestFramerOversizedPartialDropped(t *testing.T) {
	var f framer
	var totalDropped int
	chunk := bytes.Repeat([]byte("x"), 256*1024)
	for i := 0; i < 8; i++ {
		messages, dropped := f.push(chunk)
		totalDropped += dropped
		if len(messages) != 0 {
			t.Fatalf("oversized fragment emitted: %d messages", len(messages))
		}
	}
	if totalDropped != 1 {
		t.Errorf("dropped = %d, want 1", totalDropped)
	}
	if len(f.buffer) != 0 {
		t.Errorf("buffer holds %d bytes after drop, want 0", len(f.buffer))
	}

	// The tail of the dropped line is skipped; framing resumes at the
	// next newline.
	messages, dropped := f.push([]byte("tail\nrecovered\n"))
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	assertMessages(t, messages, "recovered")
}

// TestFramerArbitrarySplits verifies the framing invariant: for any
// chunk-splitting of N newline-delimited messages, exactly N messages
// come out, in order, byte-identical to their un-split source lines.
func TestFramerArbitrarySplits(t *testing.T) {
	lines := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"x"}}`,
	}
	source := []byte(lines[0] + "\n" + lines[1] + "\n" + lines[2] + "\n" + lines[3] + "\n")

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 100; trial++ {
		var chunks [][]byte
		rest := source
		for len(rest) > 0 {
			size := 1 + rng.Intn(len(rest))
			chunks = append(chunks, rest[:size])
			rest = rest[size:]
		}

		got := pushAll(chunks...)
		if len(got) != len(lines) {
			t.Fatalf("trial %d: emitted %d messages, want %d", trial, len(got), len(lines))
		}
		for i, line := range lines {
			if !bytes.Equal(got[i], []byte(line)) {
				t.Fatalf("trial %d: message[%d] = %q, want %q", trial, i, got[i], line)
			}
		}
	}
}
