// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package search provides the fallback strategy chain for structured
// backend queries. A structured query (field/operator/value
// combinations joined by boolean operators, JQL/CQL style) is tried
// as given; on server-side failure the chain degrades first to split
// simple filters, then to a fuzzy full-text query built from the
// query's literal terms. Results are tagged with the strategy that
// produced them so callers can tell an exact match from a degraded
// one.
package search

import (
	"fmt"
	"regexp"
	"strings"
)

// operatorPattern matches comparison operators, longest first so "!="
// is not read as "!" + "=".
var operatorPattern = regexp.MustCompile(`\s*(!=|!~|>=|<=|=|~|>|<)\s*`)

// fieldConditionPattern matches "field OP" at a condition start,
// capturing the field name. Used for duplicate-condition detection.
var fieldConditionPattern = regexp.MustCompile(`(?i)\b([a-zA-Z_][a-zA-Z0-9_]*)\s*(?:!=|!~|>=|<=|=|~|>|<|\s+in\s*\()`)

// doubledBooleanPattern matches two adjacent boolean operators.
var doubledBooleanPattern = regexp.MustCompile(`(?i)\b(AND|OR)\s+(AND|OR)\b`)

// emptyGroupPattern matches a grouping with nothing inside.
var emptyGroupPattern = regexp.MustCompile(`\(\s*\)`)

// splitPattern matches "field = value AND field ~ value", the exact
// shape strategy two can decompose into independent simple filters.
var splitPattern = regexp.MustCompile(`(?i)^\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*=\s*("[^"]*"|\S+)\s+AND\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*~\s*("[^"]*"|\S+)\s*$`)

// quotedPattern matches a double-quoted literal.
var quotedPattern = regexp.MustCompile(`"([^"]*)"`)

// reservedWords are structured-syntax words that are never literal
// terms of a query.
var reservedWords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true,
	"order": true, "by": true, "asc": true, "desc": true,
	"empty": true, "null": true, "is": true, "was": true,
}

// SyntaxError reports a structured query rejected before any backend
// call. Syntax errors abort the whole chain: a query the caller wrote
// wrong should be fixed, not degraded.
type SyntaxError struct {
	Query  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid structured query %q: %s", e.Query, e.Reason)
}

// Prepare validates a structured query and normalizes its operator
// whitespace ("project=OPS" becomes "project = OPS"). Rejected:
// empty queries, empty groupings, doubled boolean operators, and
// duplicate conditions on the same field. Quoted literals pass
// through untouched.
func Prepare(query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", &SyntaxError{Query: query, Reason: "empty query"}
	}

	// Quoted literals are blanked before syntax checks so their
	// content cannot trip operator or grouping detection.
	blanked := quotedPattern.ReplaceAllString(query, `""`)

	if emptyGroupPattern.MatchString(blanked) {
		return "", &SyntaxError{Query: query, Reason: "empty grouping"}
	}
	if match := doubledBooleanPattern.FindString(blanked); match != "" {
		return "", &SyntaxError{Query: query, Reason: fmt.Sprintf("doubled boolean operator %q", match)}
	}

	seen := make(map[string]bool)
	for _, match := range fieldConditionPattern.FindAllStringSubmatch(blanked, -1) {
		field := strings.ToLower(match[1])
		if reservedWords[field] {
			continue
		}
		if seen[field] {
			return "", &SyntaxError{Query: query, Reason: fmt.Sprintf("duplicate condition on field %q", field)}
		}
		seen[field] = true
	}

	normalized := mapOutsideQuotes(query, func(segment string) string {
		return operatorPattern.ReplaceAllString(segment, " $1 ")
	})
	return strings.Join(strings.Fields(normalized), " "), nil
}

// SplitFilters decomposes "field = value AND other ~ text" into two
// independent simple filters. Reports ok=false for any other query
// shape.
func SplitFilters(query string) (equality string, fuzzy string, ok bool) {
	match := splitPattern.FindStringSubmatch(query)
	if match == nil {
		return "", "", false
	}
	return match[1] + " = " + match[2], match[3] + " ~ " + match[4], true
}

// FuzzyQuery builds the degraded full-text query for strategy three:
// the literal terms of the original query (quoted values and bare
// value words) with all structured syntax stripped, wrapped in a
// single fuzzy text condition.
func FuzzyQuery(query string) string {
	var terms []string

	remainder := quotedPattern.ReplaceAllStringFunc(query, func(quoted string) string {
		terms = append(terms, strings.TrimSpace(quoted[1:len(quoted)-1]))
		return " "
	})

	// Drop field names: every word that introduces a condition is
	// syntax, not a literal term.
	fields := make(map[string]bool)
	for _, match := range fieldConditionPattern.FindAllStringSubmatch(remainder, -1) {
		fields[strings.ToLower(match[1])] = true
	}

	remainder = operatorPattern.ReplaceAllString(remainder, " ")
	for _, word := range strings.FieldsFunc(remainder, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '(' || r == ')' || r == ','
	}) {
		lower := strings.ToLower(word)
		if reservedWords[lower] || fields[lower] {
			continue
		}
		terms = append(terms, word)
	}

	joined := strings.Join(terms, " ")
	return `text ~ "` + strings.ReplaceAll(joined, `"`, ``) + `"`
}

// mapOutsideQuotes applies transform to the segments of query that lie
// outside double-quoted literals, leaving the literals untouched.
func mapOutsideQuotes(query string, transform func(string) string) string {
	var builder strings.Builder
	start := 0
	for _, match := range quotedPattern.FindAllStringIndex(query, -1) {
		builder.WriteString(transform(query[start:match[0]]))
		builder.WriteString(query[match[0]:match[1]])
		start = match[1]
	}
	builder.WriteString(transform(query[start:]))
	return builder.String()
}
