// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxLength is the cap on normalized document text. Documents at
	// or under the cap pass through unmodified.
	MaxLength = 6000

	// sentenceBudget is the inner cap for sentence accumulation when
	// a document is truncated. The budget plus the truncation marker
	// always stays within MaxLength.
	sentenceBudget = 5600

	// truncationMarker terminates truncated documents.
	truncationMarker = "\n\n[document truncated]"
)

// horizontalWhitespace matches runs of spaces, tabs, and non-breaking
// spaces within a line.
var horizontalWhitespace = regexp.MustCompile(`[ \t\x{00a0}]+`)

// blankRuns matches runs of three or more newlines (two or more
// consecutive blank lines).
var blankRuns = regexp.MustCompile(`\n{3,}`)

// sentenceEnd matches a sentence terminator with optional closing
// quotes or brackets, followed by whitespace or end of text. The text
// is split after each match.
var sentenceEnd = regexp.MustCompile(`[.!?]+["')\]]*(\s+|$)`)

// collapseWhitespace collapses horizontal whitespace runs within each
// line, trims line ends, caps consecutive blank lines at one, and
// trims the document ends.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalWhitespace.ReplaceAllString(line, " "))
	}
	collapsed := blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(collapsed)
}

// summarize applies the bounded-summarization pass: text at or under
// MaxLength is returned unmodified with no marker; longer text is
// split at sentence boundaries and sentences accumulate until the
// next would exceed the sentence budget, then the truncation marker
// is appended.
//
// A document whose first sentence alone exceeds the budget is cut
// hard at the budget — an empty rendition would be strictly worse
// than a mid-sentence one.
func summarize(text string) Document {
	if len(text) <= MaxLength {
		return Document{PlainText: text}
	}

	var builder strings.Builder
	for _, sentence := range splitSentences(text) {
		if builder.Len()+len(sentence) > sentenceBudget {
			break
		}
		builder.WriteString(sentence)
	}

	accumulated := strings.TrimSpace(builder.String())
	if accumulated == "" {
		// Back the cut off to a rune boundary so the hard slice never
		// splits a multi-byte character.
		cut := sentenceBudget
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		accumulated = strings.TrimSpace(text[:cut])
	}
	return Document{
		PlainText: accumulated + truncationMarker,
		Truncated: true,
	}
}

// splitSentences splits text after each sentence terminator, keeping
// trailing whitespace attached to the preceding sentence. Text after
// the last terminator forms a final fragment.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, match := range sentenceEnd.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[start:match[1]])
		start = match[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}
