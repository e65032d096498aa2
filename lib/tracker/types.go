// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

// Issue is a tracker issue with its rendered description already
// normalized to bounded plain text.
type Issue struct {
	Key         string   `json:"key"`
	Summary     string   `json:"summary"`
	Status      string   `json:"status,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	Type        string   `json:"type,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Description string   `json:"description,omitempty"`

	// Truncated reports whether the description was cut to fit the
	// output bound.
	Truncated bool `json:"truncated,omitempty"`
}

// SearchResult is a set of issues plus the strategy that produced
// them, so callers can tell degraded results from first-choice ones.
type SearchResult struct {
	Issues   []Issue `json:"issues"`
	Strategy string  `json:"strategy"`
}

// Comment is a newly created issue comment.
type Comment struct {
	ID      string `json:"id"`
	Created string `json:"created,omitempty"`
}

// Transition is a workflow transition available on an issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   string `json:"to,omitempty"`
}

// CreateIssueParams are the fields for creating an issue.
type CreateIssueParams struct {
	Project     string
	Summary     string
	Description string
	Type        string
}

// issueWire is the tracker's issue representation on the wire.
type issueWire struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Labels []string `json:"labels"`
	} `json:"fields"`
	RenderedFields struct {
		Description string `json:"description"`
	} `json:"renderedFields"`
}
