// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// stubItem is a minimal search result for chain tests.
type stubItem struct {
	Key string
}

var errServer = errors.New("backend returned 500")
var errForbidden = errors.New("backend returned 403")

func isServerError(err error) bool {
	return errors.Is(err, errServer)
}

// scriptedSearch returns a search func that runs the scripted outcome
// for each successive call and records the queries it received.
func scriptedSearch(queries *[]string, outcomes ...func(query string) ([]stubItem, error)) Func[stubItem] {
	call := 0
	return func(ctx context.Context, query string, limit int) ([]stubItem, error) {
		*queries = append(*queries, query)
		if call >= len(outcomes) {
			return nil, fmt.Errorf("unexpected call %d with query %q", call, query)
		}
		outcome := outcomes[call]
		call++
		return outcome(query)
	}
}

func succeed(items ...stubItem) func(string) ([]stubItem, error) {
	return func(string) ([]stubItem, error) { return items, nil }
}

func fail(err error) func(string) ([]stubItem, error) {
	return func(string) ([]stubItem, error) { return nil, err }
}

func itemKey(item stubItem) string { return item.Key }

func TestChainStructuredSuccess(t *testing.T) {
	var queries []string
	chain := NewChain(scriptedSearch(&queries, succeed(stubItem{"OPS-1"})), itemKey, isServerError, nil)

	result, err := chain.Run(context.Background(), "project=OPS", 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Strategy != StrategyStructured {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyStructured)
	}
	if len(queries) != 1 || queries[0] != "project = OPS" {
		t.Errorf("backend queries = %v, want one normalized query", queries)
	}
}

func TestChainFallsBackToSplitFilters(t *testing.T) {
	var queries []string
	chain := NewChain(scriptedSearch(&queries,
		fail(errServer),
		succeed(stubItem{"OPS-1"}, stubItem{"OPS-2"}),
		succeed(stubItem{"OPS-2"}, stubItem{"OPS-9"}),
	), itemKey, isServerError, nil)

	result, err := chain.Run(context.Background(), `project = OPS AND summary ~ "disk full"`, 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Strategy != StrategySplitFilters {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategySplitFilters)
	}
	if len(result.Items) != 1 || result.Items[0].Key != "OPS-2" {
		t.Errorf("intersection = %v, want [OPS-2]", result.Items)
	}
	if len(queries) != 3 {
		t.Fatalf("queries = %v", queries)
	}
	if queries[1] != "project = OPS" || queries[2] != `summary ~ "disk full"` {
		t.Errorf("split queries = %v", queries[1:])
	}
}

func TestChainFallsBackToFuzzyText(t *testing.T) {
	var queries []string
	chain := NewChain(scriptedSearch(&queries,
		fail(errServer),
		succeed(stubItem{"OPS-3"}),
	), itemKey, isServerError, nil)

	// Not splittable, so the chain goes straight from structured to fuzzy.
	result, err := chain.Run(context.Background(), "project = OPS AND status = Open", 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Strategy != StrategyFuzzyText {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyFuzzyText)
	}
	if len(queries) != 2 || !strings.HasPrefix(queries[1], `text ~ "`) {
		t.Errorf("queries = %v", queries)
	}
}

func TestChainAbortsOnNonServerError(t *testing.T) {
	var queries []string
	chain := NewChain(scriptedSearch(&queries, fail(errForbidden)), itemKey, isServerError, nil)

	_, err := chain.Run(context.Background(), "project = OPS", 10)
	if !errors.Is(err, errForbidden) {
		t.Fatalf("err = %v, want the original forbidden error", err)
	}
	if len(queries) != 1 {
		t.Fatalf("chain kept going after a non-server failure: %v", queries)
	}
}

func TestChainAggregatesAllFailures(t *testing.T) {
	var queries []string
	chain := NewChain(scriptedSearch(&queries,
		fail(errServer),
		fail(errServer),
		fail(fmt.Errorf("still down: %w", errServer)),
	), itemKey, isServerError, nil)

	_, err := chain.Run(context.Background(), `project = OPS AND summary ~ "disk full"`, 10)
	var aggregate *AggregateError
	if !errors.As(err, &aggregate) {
		t.Fatalf("err = %T (%v), want *AggregateError", err, err)
	}
	if len(aggregate.Attempts) != 3 {
		t.Fatalf("Attempts = %d, want 3", len(aggregate.Attempts))
	}
	wantStrategies := []string{StrategyStructured, StrategySplitFilters, StrategyFuzzyText}
	for i, attempt := range aggregate.Attempts {
		if attempt.Strategy != wantStrategies[i] {
			t.Errorf("Attempts[%d].Strategy = %q, want %q", i, attempt.Strategy, wantStrategies[i])
		}
		if attempt.Err == nil {
			t.Errorf("Attempts[%d].Err is nil", i)
		}
	}
	if !strings.Contains(err.Error(), "all 3 search strategies failed") {
		t.Errorf("aggregate message = %q", err.Error())
	}
}

func TestChainRejectsInvalidSyntaxBeforeAnyCall(t *testing.T) {
	var queries []string
	chain := NewChain(scriptedSearch(&queries), itemKey, isServerError, nil)

	_, err := chain.Run(context.Background(), "project = OPS AND AND status = Open", 10)
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("err = %v, want *SyntaxError", err)
	}
	if len(queries) != 0 {
		t.Fatalf("backend called %d times for an invalid query", len(queries))
	}
}
