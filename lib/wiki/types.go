// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

// Page is a wiki page with its storage-format body already normalized
// to bounded plain text.
type Page struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Space   string `json:"space,omitempty"`
	Version int    `json:"version,omitempty"`
	Body    string `json:"body,omitempty"`

	// Truncated reports whether the body was cut to fit the output
	// bound.
	Truncated bool `json:"truncated,omitempty"`
}

// SearchResult is a set of pages plus the strategy that produced
// them, so callers can tell degraded results from first-choice ones.
type SearchResult struct {
	Pages    []Page `json:"pages"`
	Strategy string `json:"strategy"`
}

// Space is a wiki space.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// pageWire is the wiki's page representation on the wire.
type pageWire struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}
