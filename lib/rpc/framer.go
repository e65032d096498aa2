// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import "bytes"

// maxLineSize bounds a single framed message. A line past this limit
// is discarded rather than buffered indefinitely, so a client writing
// bytes with no newline cannot grow the partial-line buffer without
// bound.
const maxLineSize = 1 << 20

// framer reassembles newline-delimited messages from an arbitrary
// stream of input chunks. The transport may split messages anywhere;
// the framer retains the trailing partial fragment between pushes and
// emits only complete lines, in order, byte-identical to their
// un-split source.
//
// The partial-line buffer persists for the framer's lifetime, capped
// at maxLineSize, and is mutated only between chunk arrivals, never
// concurrently. On stream end, any buffered partial fragment is simply
// abandoned with the framer — a documented truncation, not a fault.
type framer struct {
	buffer []byte

	// discarding is set while skipping the remainder of an oversized
	// line, up to its terminating newline.
	discarding bool
}

// push appends a chunk and returns every complete message it
// unlocked, plus a count of lines dropped for exceeding maxLineSize.
// Empty lines are dropped silently, never emitted or counted. A
// trailing carriage return is stripped so CRLF transports frame
// identically to LF transports. Returned slices are copies, stable
// across subsequent pushes.
func (f *framer) push(chunk []byte) (messages [][]byte, dropped int) {
	f.buffer = append(f.buffer, chunk...)

	for {
		newline := bytes.IndexByte(f.buffer, '\n')
		if newline < 0 {
			if f.discarding {
				f.buffer = nil
			} else if len(f.buffer) > maxLineSize {
				// The partial line already exceeds the cap; free the
				// buffer now and skip to the next newline.
				f.buffer = nil
				f.discarding = true
				dropped++
			}
			break
		}
		line := f.buffer[:newline]
		f.buffer = f.buffer[newline+1:]

		if f.discarding {
			// Tail of an oversized line, already counted.
			f.discarding = false
			continue
		}
		if len(line) > maxLineSize {
			dropped++
			continue
		}
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			continue
		}
		messages = append(messages, append([]byte(nil), line...))
	}

	// Re-home the partial fragment so completed lines in the old
	// backing array can be collected.
	if len(f.buffer) == 0 {
		f.buffer = nil
	} else if len(messages) > 0 {
		f.buffer = append([]byte(nil), f.buffer...)
	}
	return messages, dropped
}
