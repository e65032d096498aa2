// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// converterInstance is initialized once and reused. The converter
// configuration never changes and goldmark.Markdown is safe to share
// across goroutines — parsing creates per-call state.
var (
	converterInstance goldmark.Markdown
	converterOnce     sync.Once
)

func getConverter() goldmark.Markdown {
	converterOnce.Do(func() {
		converterInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
		)
	})
	return converterInstance
}

// markdownToStorage converts a markdown page body to the wiki's
// storage-format HTML. Plain GFM HTML is valid storage format; wiki
// macros are never emitted, so a round trip through the normalizer
// yields the original text content.
func markdownToStorage(markdown string) (string, error) {
	var buffer bytes.Buffer
	if err := getConverter().Convert([]byte(markdown), &buffer); err != nil {
		return "", fmt.Errorf("wiki: converting markdown body: %w", err)
	}
	return buffer.String(), nil
}
