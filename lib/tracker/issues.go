// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/forgebridge/forgebridge/lib/cache"
	"github.com/forgebridge/forgebridge/lib/normalize"
	"github.com/forgebridge/forgebridge/lib/search"
	"github.com/forgebridge/forgebridge/lib/tool"
)

// GetIssue fetches a single issue by key. The rendered description is
// normalized to bounded plain text. Reads go through the response
// cache when one is configured.
func (client *Client) GetIssue(ctx context.Context, key string) (Issue, error) {
	fetch := func(ctx context.Context) (Issue, error) {
		path := client.profile.TrackerAPIPrefix + "/issue/" + url.PathEscape(key) + "?expand=renderedFields"
		var wire issueWire
		if err := client.get(ctx, path, &wire); err != nil {
			return Issue{}, err
		}
		return wire.toIssue(), nil
	}

	issue, err := cachedFetch(ctx, client, "issue.get", map[string]any{"key": key}, fetch)
	if err != nil {
		return Issue{}, asToolError(err)
	}
	return issue, nil
}

// SearchIssues runs a structured query through the degrading strategy
// chain and reports which strategy produced the results. Results are
// cached per query and limit.
func (client *Client) SearchIssues(ctx context.Context, query string, limit int) (SearchResult, error) {
	if limit <= 0 {
		return SearchResult{}, tool.Validation("search limit must be positive (got %d)", limit)
	}

	fetch := func(ctx context.Context) (SearchResult, error) {
		result, err := client.chain.Run(ctx, query, limit)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{Issues: result.Items, Strategy: result.Strategy}, nil
	}

	result, err := cachedFetch(ctx, client, "issue.search", map[string]any{"query": query, "limit": limit}, fetch)
	if err != nil {
		return SearchResult{}, asSearchError(err)
	}
	return result, nil
}

// searchOnce executes one search request against the structured
// search endpoint. The strategy chain calls this with progressively
// simpler queries.
func (client *Client) searchOnce(ctx context.Context, query string, limit int) ([]Issue, error) {
	values := url.Values{}
	values.Set("jql", query)
	values.Set("maxResults", fmt.Sprint(limit))
	values.Set("fields", "summary,status,assignee,issuetype,labels")

	var wire struct {
		Issues []issueWire `json:"issues"`
	}
	if err := client.get(ctx, client.profile.TrackerSearchPath+"?"+values.Encode(), &wire); err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(wire.Issues))
	for _, item := range wire.Issues {
		issues = append(issues, item.toIssue())
	}
	return issues, nil
}

// CreateIssue creates a new issue and returns it as reported by the
// tracker. Mutations bypass the cache.
func (client *Client) CreateIssue(ctx context.Context, params CreateIssueParams) (Issue, error) {
	if params.Project == "" || params.Summary == "" {
		return Issue{}, tool.Validation("project and summary are required")
	}
	issueType := params.Type
	if issueType == "" {
		issueType = "Task"
	}

	requestBody := map[string]any{
		"fields": map[string]any{
			"project":     map[string]any{"key": params.Project},
			"summary":     params.Summary,
			"description": params.Description,
			"issuetype":   map[string]any{"name": issueType},
		},
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := client.post(ctx, client.profile.TrackerAPIPrefix+"/issue", requestBody, &created); err != nil {
		return Issue{}, asToolError(err)
	}
	return Issue{
		Key:     created.Key,
		Summary: params.Summary,
		Type:    issueType,
	}, nil
}

// AddComment adds a comment to an issue. The body is plain text.
func (client *Client) AddComment(ctx context.Context, key, body string) (Comment, error) {
	if body == "" {
		return Comment{}, tool.Validation("comment body must not be empty")
	}

	path := client.profile.TrackerAPIPrefix + "/issue/" + url.PathEscape(key) + "/comment"
	var comment Comment
	if err := client.post(ctx, path, map[string]any{"body": body}, &comment); err != nil {
		return Comment{}, asToolError(err)
	}
	return comment, nil
}

// ListTransitions lists the workflow transitions available on an
// issue. Reads go through the response cache.
func (client *Client) ListTransitions(ctx context.Context, key string) ([]Transition, error) {
	fetch := func(ctx context.Context) ([]Transition, error) {
		path := client.profile.TrackerAPIPrefix + "/issue/" + url.PathEscape(key) + "/transitions"
		var wire struct {
			Transitions []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				To   struct {
					Name string `json:"name"`
				} `json:"to"`
			} `json:"transitions"`
		}
		if err := client.get(ctx, path, &wire); err != nil {
			return nil, err
		}
		transitions := make([]Transition, 0, len(wire.Transitions))
		for _, item := range wire.Transitions {
			transitions = append(transitions, Transition{ID: item.ID, Name: item.Name, To: item.To.Name})
		}
		return transitions, nil
	}

	transitions, err := cachedFetch(ctx, client, "issue.transitions", map[string]any{"key": key}, fetch)
	if err != nil {
		return nil, asToolError(err)
	}
	return transitions, nil
}

// TransitionIssue moves an issue through a workflow transition by
// transition ID. Use ListTransitions to discover valid IDs.
func (client *Client) TransitionIssue(ctx context.Context, key, transitionID string) error {
	if transitionID == "" {
		return tool.Validation("transition id must not be empty")
	}

	path := client.profile.TrackerAPIPrefix + "/issue/" + url.PathEscape(key) + "/transitions"
	requestBody := map[string]any{
		"transition": map[string]any{"id": transitionID},
	}
	if err := client.post(ctx, path, requestBody, nil); err != nil {
		return asToolError(err)
	}
	return nil
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

func (wire issueWire) toIssue() Issue {
	issue := Issue{
		Key:      wire.Key,
		Summary:  wire.Fields.Summary,
		Status:   wire.Fields.Status.Name,
		Assignee: wire.Fields.Assignee.DisplayName,
		Type:     wire.Fields.IssueType.Name,
		Labels:   wire.Fields.Labels,
	}
	if wire.RenderedFields.Description != "" {
		document := normalize.HTML(wire.RenderedFields.Description)
		issue.Description = document.PlainText
		issue.Truncated = document.Truncated
	}
	return issue
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
