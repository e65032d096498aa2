// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgebridge/forgebridge/lib/config"
	"github.com/forgebridge/forgebridge/lib/profile"
	"github.com/forgebridge/forgebridge/lib/tool"
	"github.com/forgebridge/forgebridge/lib/tracker"
	"github.com/forgebridge/forgebridge/lib/wiki"
)

// buildRegistry assembles the tool registry from the configured
// backends. Only configured backends contribute tools: a tracker-only
// deployment does not advertise wiki operations.
func buildRegistry(cfg *config.Config, logger *slog.Logger) (*tool.Registry, error) {
	var tools []*tool.Tool

	if cfg.Tracker != nil {
		client, err := newTrackerClient(cfg.Tracker, logger)
		if err != nil {
			return nil, err
		}
		tools = append(tools, trackerTools(client)...)
	}
	if cfg.Wiki != nil {
		client, err := newWikiClient(cfg.Wiki, logger)
		if err != nil {
			return nil, err
		}
		tools = append(tools, wikiTools(client)...)
	}

	return tool.NewRegistry(tools...)
}

func newTrackerClient(backend *config.BackendConfig, logger *slog.Logger) (*tracker.Client, error) {
	deployment, err := profile.Lookup(backend.Deployment)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	return tracker.NewClient(tracker.Config{
		BaseURL:  backend.BaseURL,
		Email:    backend.Email,
		APIToken: backend.APIToken,
		Profile:  deployment,
		CacheTTL: backend.CacheTTL,
		Logger:   logger,
	})
}

func newWikiClient(backend *config.BackendConfig, logger *slog.Logger) (*wiki.Client, error) {
	deployment, err := profile.Lookup(backend.Deployment)
	if err != nil {
		return nil, fmt.Errorf("wiki: %w", err)
	}
	return wiki.NewClient(wiki.Config{
		BaseURL:  backend.BaseURL,
		Email:    backend.Email,
		APIToken: backend.APIToken,
		Profile:  deployment,
		CacheTTL: backend.CacheTTL,
		Logger:   logger,
	})
}

func trackerTools(client *tracker.Client) []*tool.Tool {
	return []*tool.Tool{
		{
			Name:        "tracker_issue_get",
			Description: "Fetch a single issue by key, with its description as plain text.",
			ReadOnly:    true,
			Params: []tool.Param{
				{Name: "key", Type: tool.TypeString, Description: "issue key, e.g. OPS-123", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return client.GetIssue(ctx, args["key"].(string))
			},
		},
		{
			Name:        "tracker_issue_search",
			Description: "Search issues with a structured query. Degrades to simpler strategies on backend failure; the result names the strategy that produced it.",
			ReadOnly:    true,
			Params: []tool.Param{
				{Name: "query", Type: tool.TypeString, Description: "structured query (JQL)", Required: true},
				{Name: "limit", Type: tool.TypeInteger, Description: "maximum results", Default: 10},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return client.SearchIssues(ctx, args["query"].(string), args["limit"].(int))
			},
		},
		{
			Name:        "tracker_issue_create",
			Description: "Create a new issue.",
			Params: []tool.Param{
				{Name: "project", Type: tool.TypeString, Description: "project key", Required: true},
				{Name: "summary", Type: tool.TypeString, Description: "one-line summary", Required: true},
				{Name: "description", Type: tool.TypeString, Description: "plain text description", Default: ""},
				{Name: "type", Type: tool.TypeString, Description: "issue type name", Default: "Task"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return client.CreateIssue(ctx, tracker.CreateIssueParams{
					Project:     args["project"].(string),
					Summary:     args["summary"].(string),
					Description: args["description"].(string),
					Type:        args["type"].(string),
				})
			},
		},
		{
			Name:        "tracker_issue_comment",
			Description: "Add a comment to an issue.",
			Params: []tool.Param{
				{Name: "key", Type: tool.TypeString, Description: "issue key", Required: true},
				{Name: "body", Type: tool.TypeString, Description: "comment text", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return client.AddComment(ctx, args["key"].(string), args["body"].(string))
			},
		},
		{
			Name:        "tracker_issue_transitions",
			Description: "List the workflow transitions currently available on an issue.",
			ReadOnly:    true,
			Params: []tool.Param{
				{Name: "key", Type: tool.TypeString, Description: "issue key", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				transitions, err := client.ListTransitions(ctx, args["key"].(string))
				if err != nil {
					return nil, err
				}
				return map[string]any{"transitions": transitions}, nil
			},
		},
		{
			Name:        "tracker_issue_transition",
			Description: "Move an issue through a workflow transition by transition id.",
			Params: []tool.Param{
				{Name: "key", Type: tool.TypeString, Description: "issue key", Required: true},
				{Name: "transition_id", Type: tool.TypeString, Description: "transition id from tracker_issue_transitions", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				if err := client.TransitionIssue(ctx, args["key"].(string), args["transition_id"].(string)); err != nil {
					return nil, err
				}
				return map[string]any{"transitioned": true}, nil
			},
		},
	}
}

func wikiTools(client *wiki.Client) []*tool.Tool {
	return []*tool.Tool{
		{
			Name:        "wiki_page_get",
			Description: "Fetch a wiki page by id, with its body as plain text.",
			ReadOnly:    true,
			Params: []tool.Param{
				{Name: "id", Type: tool.TypeString, Description: "page id", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return client.GetPage(ctx, args["id"].(string))
			},
		},
		{
			Name:        "wiki_page_search",
			Description: "Search wiki pages with a structured query. Degrades to simpler strategies on backend failure; the result names the strategy that produced it.",
			ReadOnly:    true,
			Params: []tool.Param{
				{Name: "query", Type: tool.TypeString, Description: "structured query (CQL)", Required: true},
				{Name: "limit", Type: tool.TypeInteger, Description: "maximum results", Default: 10},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return client.SearchPages(ctx, args["query"].(string), args["limit"].(int))
			},
		},
		{
			Name:        "wiki_page_create",
			Description: "Create a wiki page. The body is markdown, converted to the wiki's storage format.",
			Params: []tool.Param{
				{Name: "space", Type: tool.TypeString, Description: "space key", Required: true},
				{Name: "title", Type: tool.TypeString, Description: "page title", Required: true},
				{Name: "body", Type: tool.TypeString, Description: "markdown body", Default: ""},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return client.CreatePage(ctx, args["space"].(string), args["title"].(string), args["body"].(string))
			},
		},
		{
			Name:        "wiki_page_update",
			Description: "Replace a wiki page's title and body. The body is markdown, converted to the wiki's storage format.",
			Params: []tool.Param{
				{Name: "id", Type: tool.TypeString, Description: "page id", Required: true},
				{Name: "title", Type: tool.TypeString, Description: "new page title", Required: true},
				{Name: "body", Type: tool.TypeString, Description: "markdown body", Default: ""},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return client.UpdatePage(ctx, args["id"].(string), args["title"].(string), args["body"].(string))
			},
		},
		{
			Name:        "wiki_space_list",
			Description: "List the wiki spaces visible to the configured account.",
			ReadOnly:    true,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				spaces, err := client.ListSpaces(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"spaces": spaces}, nil
			},
		},
	}
}
