// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Strategy names, in chain priority order. Results carry the name of
// the strategy that produced them.
const (
	StrategyStructured   = "structured"
	StrategySplitFilters = "split-filters"
	StrategyFuzzyText    = "fuzzy-text"
)

// Func executes one backend search with a prepared query string.
type Func[T any] func(ctx context.Context, query string, limit int) ([]T, error)

// Result is the terminal outcome of a successful chain run: the items
// and the strategy that produced them.
type Result[T any] struct {
	Items []T

	// Strategy names which chain strategy succeeded. Anything other
	// than StrategyStructured means the result is degraded: the
	// backend did not answer the query as originally written.
	Strategy string
}

// AttemptFailure records why one strategy failed.
type AttemptFailure struct {
	Strategy string
	Err      error
}

// AggregateError reports a chain run in which every strategy failed.
// Each strategy's individual reason is preserved.
type AggregateError struct {
	Attempts []AttemptFailure
}

func (e *AggregateError) Error() string {
	reasons := make([]string, len(e.Attempts))
	for i, attempt := range e.Attempts {
		reasons[i] = fmt.Sprintf("%s: %v", attempt.Strategy, attempt.Err)
	}
	return fmt.Sprintf("all %d search strategies failed: %s", len(e.Attempts), strings.Join(reasons, "; "))
}

// Chain tries retrieval strategies in fixed priority order, stopping
// at the first success:
//
//  1. the structured query as given, after syntax validation and
//     operator-whitespace normalization
//  2. if the query is an equality condition on one field AND a fuzzy
//     condition on another, the two conditions as independent simple
//     filters, intersected
//  3. a degraded fuzzy full-text query over the literal terms of the
//     original query
//
// The chain advances only when a strategy fails with a server-side
// error class (per the injected classifier); any other failure aborts
// the chain immediately.
type Chain[T any] struct {
	search Func[T]
	key    func(T) string
	// serverError reports whether an error is a server-side failure
	// class that justifies degrading to the next strategy.
	serverError func(error) bool
	logger      *slog.Logger
}

// NewChain builds a strategy chain over a backend search function.
// key extracts a stable identity from an item, used to intersect the
// split-filter results. A nil logger defaults to slog.Default().
func NewChain[T any](search Func[T], key func(T) string, serverError func(error) bool, logger *slog.Logger) *Chain[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain[T]{search: search, key: key, serverError: serverError, logger: logger}
}

// Run executes the chain for one query. Exactly one terminal outcome:
// the first successful strategy's tagged result, an immediate abort on
// a non-server failure or invalid syntax, or an AggregateError
// enumerating every strategy's reason.
func (c *Chain[T]) Run(ctx context.Context, query string, limit int) (*Result[T], error) {
	prepared, err := Prepare(query)
	if err != nil {
		return nil, err
	}

	var failures []AttemptFailure

	items, err := c.search(ctx, prepared, limit)
	if err == nil {
		return &Result[T]{Items: items, Strategy: StrategyStructured}, nil
	}
	if !c.serverError(err) {
		return nil, err
	}
	failures = append(failures, AttemptFailure{Strategy: StrategyStructured, Err: err})
	c.logger.Warn("structured query failed, degrading",
		"query", prepared,
		"error", err,
	)

	if equality, fuzzy, ok := SplitFilters(prepared); ok {
		items, err := c.splitFilters(ctx, equality, fuzzy, limit)
		if err == nil {
			return &Result[T]{Items: items, Strategy: StrategySplitFilters}, nil
		}
		if !c.serverError(err) {
			return nil, err
		}
		failures = append(failures, AttemptFailure{Strategy: StrategySplitFilters, Err: err})
		c.logger.Warn("split-filter query failed, degrading", "error", err)
	}

	fuzzy := FuzzyQuery(prepared)
	items, err = c.search(ctx, fuzzy, limit)
	if err == nil {
		return &Result[T]{Items: items, Strategy: StrategyFuzzyText}, nil
	}
	if !c.serverError(err) {
		return nil, err
	}
	failures = append(failures, AttemptFailure{Strategy: StrategyFuzzyText, Err: err})

	return nil, &AggregateError{Attempts: failures}
}

// splitFilters runs the two simple filters independently and
// intersects the results by item key, preserving the equality query's
// order. Each side runs with the caller's limit, so the intersection
// can undercount near the limit — acceptable for a degraded strategy.
func (c *Chain[T]) splitFilters(ctx context.Context, equality, fuzzy string, limit int) ([]T, error) {
	equalityItems, err := c.search(ctx, equality, limit)
	if err != nil {
		return nil, err
	}
	fuzzyItems, err := c.search(ctx, fuzzy, limit)
	if err != nil {
		return nil, err
	}

	inFuzzy := make(map[string]bool, len(fuzzyItems))
	for _, item := range fuzzyItems {
		inFuzzy[c.key(item)] = true
	}

	var intersection []T
	for _, item := range equalityItems {
		if inFuzzy[c.key(item)] {
			intersection = append(intersection, item)
		}
	}
	return intersection, nil
}
