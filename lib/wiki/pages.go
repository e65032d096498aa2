// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/forgebridge/forgebridge/lib/cache"
	"github.com/forgebridge/forgebridge/lib/normalize"
	"github.com/forgebridge/forgebridge/lib/search"
	"github.com/forgebridge/forgebridge/lib/tool"
)

// GetPage fetches a page by ID. The storage-format body is normalized
// to bounded plain text. Reads go through the response cache when one
// is configured.
func (client *Client) GetPage(ctx context.Context, id string) (Page, error) {
	fetch := func(ctx context.Context) (Page, error) {
		path := client.profile.WikiAPIPrefix + "/content/" + url.PathEscape(id) + "?expand=body.storage,version,space"
		var wire pageWire
		if err := client.get(ctx, path, &wire); err != nil {
			return Page{}, err
		}
		return wire.toPage(), nil
	}

	page, err := cachedFetch(ctx, client, "page.get", map[string]any{"id": id}, fetch)
	if err != nil {
		return Page{}, asToolError(err)
	}
	return page, nil
}

// SearchPages runs a structured CQL query through the degrading
// strategy chain and reports which strategy produced the results.
func (client *Client) SearchPages(ctx context.Context, query string, limit int) (SearchResult, error) {
	if limit <= 0 {
		return SearchResult{}, tool.Validation("search limit must be positive (got %d)", limit)
	}

	fetch := func(ctx context.Context) (SearchResult, error) {
		result, err := client.chain.Run(ctx, query, limit)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{Pages: result.Items, Strategy: result.Strategy}, nil
	}

	result, err := cachedFetch(ctx, client, "page.search", map[string]any{"query": query, "limit": limit}, fetch)
	if err != nil {
		return SearchResult{}, asSearchError(err)
	}
	return result, nil
}

// searchOnce executes one search request against the structured
// search endpoint.
func (client *Client) searchOnce(ctx context.Context, query string, limit int) ([]Page, error) {
	values := url.Values{}
	values.Set("cql", query)
	values.Set("limit", fmt.Sprint(limit))

	var wire struct {
		Results []pageWire `json:"results"`
	}
	if err := client.get(ctx, client.profile.WikiSearchPath+"?"+values.Encode(), &wire); err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(wire.Results))
	for _, item := range wire.Results {
		page := item.toPage()
		// Search results omit the body; leave it empty rather than
		// normalizing nothing.
		pages = append(pages, page)
	}
	return pages, nil
}

// CreatePage creates a page in a space. The body is markdown,
// converted to storage-format HTML before submission. Mutations
// bypass the cache.
func (client *Client) CreatePage(ctx context.Context, space, title, markdown string) (Page, error) {
	if space == "" || title == "" {
		return Page{}, tool.Validation("space and title are required")
	}
	storage, err := markdownToStorage(markdown)
	if err != nil {
		return Page{}, tool.Validation("%w", err)
	}

	requestBody := map[string]any{
		"type":  "page",
		"title": title,
		"space": map[string]any{"key": space},
		"body": map[string]any{
			"storage": map[string]any{
				"value":          storage,
				"representation": "storage",
			},
		},
	}

	var wire pageWire
	if err := client.send(ctx, http.MethodPost, client.profile.WikiAPIPrefix+"/content", requestBody, &wire); err != nil {
		return Page{}, asToolError(err)
	}
	return wire.toPage(), nil
}

// UpdatePage replaces a page's title and body. The current version is
// fetched first so the version increment the wiki requires is derived
// from live state, not from a possibly stale cache entry.
func (client *Client) UpdatePage(ctx context.Context, id, title, markdown string) (Page, error) {
	if title == "" {
		return Page{}, tool.Validation("title is required")
	}
	storage, err := markdownToStorage(markdown)
	if err != nil {
		return Page{}, tool.Validation("%w", err)
	}

	var current pageWire
	currentPath := client.profile.WikiAPIPrefix + "/content/" + url.PathEscape(id) + "?expand=version"
	if err := client.get(ctx, currentPath, &current); err != nil {
		return Page{}, asToolError(err)
	}

	requestBody := map[string]any{
		"type":    "page",
		"title":   title,
		"version": map[string]any{"number": current.Version.Number + 1},
		"body": map[string]any{
			"storage": map[string]any{
				"value":          storage,
				"representation": "storage",
			},
		},
	}

	var wire pageWire
	if err := client.send(ctx, http.MethodPut, client.profile.WikiAPIPrefix+"/content/"+url.PathEscape(id), requestBody, &wire); err != nil {
		return Page{}, asToolError(err)
	}
	return wire.toPage(), nil
}

// ListSpaces lists the spaces visible to the configured account.
// Reads go through the response cache.
func (client *Client) ListSpaces(ctx context.Context) ([]Space, error) {
	fetch := func(ctx context.Context) ([]Space, error) {
		var wire struct {
			Results []Space `json:"results"`
		}
		if err := client.get(ctx, client.profile.WikiAPIPrefix+"/space?limit=100", &wire); err != nil {
			return nil, err
		}
		return wire.Results, nil
	}

	spaces, err := cachedFetch(ctx, client, "space.list", nil, fetch)
	if err != nil {
		return nil, asToolError(err)
	}
	return spaces, nil
}

// cachedFetch runs fetch through the response cache when one is
// configured, keyed by operation and arguments.
func cachedFetch[T any](ctx context.Context, client *Client, operation string, args map[string]any, fetch func(context.Context) (T, error)) (T, error) {
	if client.cache == nil {
		return fetch(ctx)
	}
	key := cache.Key(client.baseURL, operation, args)
	return cache.Through(ctx, client.cache, key, fetch)
}

func (wire pageWire) toPage() Page {
	page := Page{
		ID:      wire.ID,
		Title:   wire.Title,
		Space:   wire.Space.Key,
		Version: wire.Version.Number,
	}
	if wire.Body.Storage.Value != "" {
		document := normalize.HTML(wire.Body.Storage.Value)
		page.Body = document.PlainText
		page.Truncated = document.Truncated
	}
	return page
}

// asSearchError maps search chain failures onto the tool error
// taxonomy: syntax rejections are the caller's to fix, exhausted
// strategy chains are transient backend trouble.
func asSearchError(err error) error {
	var syntaxError *search.SyntaxError
	if errors.As(err, &syntaxError) {
		return tool.Validation("%w", err)
	}
	var aggregate *search.AggregateError
	if errors.As(err, &aggregate) {
		return tool.Transient("%w", err)
	}
	return asToolError(err)
}
