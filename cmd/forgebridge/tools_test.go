// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/forgebridge/forgebridge/lib/config"
)

func testBackend() *config.BackendConfig {
	return &config.BackendConfig{
		BaseURL:    "https://example.atlassian.net",
		Email:      "agent@example.com",
		APIToken:   "tok",
		Deployment: "cloud",
		CacheTTL:   time.Minute,
	}
}

func TestBuildRegistryFullConfig(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "info",
		Tracker:  testBackend(),
		Wiki:     testBackend(),
	}

	registry, err := buildRegistry(cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}

	want := []string{
		"tracker_issue_get",
		"tracker_issue_search",
		"tracker_issue_create",
		"tracker_issue_comment",
		"tracker_issue_transitions",
		"tracker_issue_transition",
		"wiki_page_get",
		"wiki_page_search",
		"wiki_page_create",
		"wiki_page_update",
		"wiki_space_list",
	}
	tools := registry.Tools()
	if len(tools) != len(want) {
		t.Fatalf("registered %d tools, want %d", len(tools), len(want))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Errorf("tool[%d] = %q, want %q", i, tools[i].Name, name)
		}
	}
}

func TestBuildRegistryTrackerOnly(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "info",
		Tracker:  testBackend(),
	}

	registry, err := buildRegistry(cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}

	if _, ok := registry.Lookup("wiki_page_get"); ok {
		t.Fatal("wiki tools should not be registered without a wiki backend")
	}
	for _, registered := range registry.Tools() {
		if !strings.HasPrefix(registered.Name, "tracker_") {
			t.Errorf("unexpected tool %q", registered.Name)
		}
	}
}

func TestBuildRegistryReadOnlyFlags(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "info",
		Tracker:  testBackend(),
		Wiki:     testBackend(),
	}
	registry, err := buildRegistry(cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}

	readOnly := map[string]bool{
		"tracker_issue_get":         true,
		"tracker_issue_search":      true,
		"tracker_issue_transitions": true,
		"wiki_page_get":             true,
		"wiki_page_search":          true,
		"wiki_space_list":           true,
	}
	for _, registered := range registry.Tools() {
		if registered.ReadOnly != readOnly[registered.Name] {
			t.Errorf("tool %q ReadOnly = %v", registered.Name, registered.ReadOnly)
		}
	}
}

func TestBuildRegistryUnknownDeployment(t *testing.T) {
	backend := testBackend()
	backend.Deployment = "mainframe"
	cfg := &config.Config{LogLevel: "info", Tracker: backend}

	if _, err := buildRegistry(cfg, slog.Default()); err == nil {
		t.Fatal("expected error for unknown deployment")
	}
}
