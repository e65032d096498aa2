// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forgebridge/forgebridge/lib/clock"
	"github.com/forgebridge/forgebridge/lib/profile"
	"github.com/forgebridge/forgebridge/lib/search"
	"github.com/forgebridge/forgebridge/lib/tool"
)

var testProfile = profile.Profile{
	Deployment:        "cloud",
	TrackerAPIPrefix:  "/rest/api/3",
	TrackerSearchPath: "/rest/api/3/search/jql",
	WikiAPIPrefix:     "/wiki/rest/api",
	WikiSearchPath:    "/wiki/rest/api/content/search",
}

func newTestClient(t *testing.T, server *httptest.Server, clk clock.Clock, ttl time.Duration) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		Email:      "agent@example.com",
		APIToken:   "test-token",
		Profile:    testProfile,
		CacheTTL:   ttl,
		HTTPClient: server.Client(),
		Clock:      clk,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func pageBody(id, title, storage string, version int) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":      id,
		"title":   title,
		"space":   map[string]any{"key": "DOCS"},
		"version": map[string]any{"number": version},
		"body": map[string]any{
			"storage": map[string]any{"value": storage},
		},
	})
	return body
}

func TestNewClientHTTPSEnforcement(t *testing.T) {
	_, err := NewClient(Config{
		BaseURL:  "http://wiki.example.com",
		Email:    "agent@example.com",
		APIToken: "tok",
		Profile:  testProfile,
	})
	if err == nil {
		t.Fatal("expected error for HTTP URL")
	}
}

func TestGetPageNormalizesStorageBody(t *testing.T) {
	storage := `<h1>Runbook</h1><p>Restart the <b>ingest</b> service.</p><ac:structured-macro ac:name="jira"><ac:parameter ac:name="key">OPS-12</ac:parameter></ac:structured-macro>`
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/wiki/rest/api/content/12345" {
			t.Errorf("unexpected path %s", request.URL.Path)
		}
		writer.Write(pageBody("12345", "Runbook", storage, 4))
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real(), 0)
	page, err := client.GetPage(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}

	if page.Title != "Runbook" || page.Space != "DOCS" || page.Version != 4 {
		t.Errorf("page = %+v", page)
	}
	if strings.Contains(page.Body, "<") {
		t.Errorf("body not normalized: %q", page.Body)
	}
	if !strings.Contains(page.Body, "Restart the ingest service.") {
		t.Errorf("body lost content: %q", page.Body)
	}
	if !strings.Contains(page.Body, "[issue: OPS-12]") {
		t.Errorf("issue macro not replaced with marker: %q", page.Body)
	}
}

func TestGetPageNotFound(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(404)
		writer.Write([]byte(`{"statusCode":404,"message":"No content found with id: 999"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real(), 0)
	_, err := client.GetPage(context.Background(), "999")

	var toolError *tool.Error
	if !errors.As(err, &toolError) || toolError.Category != tool.CategoryNotFound {
		t.Errorf("error = %v, want not_found category", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should see through the tool error wrapper")
	}
}

func TestRateLimitRetry(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if requests.Add(1) == 1 {
			writer.Header().Set("Retry-After", "1")
			writer.WriteHeader(429)
			return
		}
		writer.Write(pageBody("12345", "Runbook", "<p>ok</p>", 4))
	}))
	defer server.Close()

	fake := clock.Fake(time.Unix(1700000000, 0))
	client := newTestClient(t, server, fake, 0)

	// Drive the fake clock forward until the backoff waiter fires.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				fake.Advance(time.Second)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	page, err := client.GetPage(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.ID != "12345" {
		t.Errorf("page = %+v", page)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2 (one retry)", got)
	}
}

func TestSearchPagesStructuredStrategy(t *testing.T) {
	var receivedCQL string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		receivedCQL = request.URL.Query().Get("cql")
		body, _ := json.Marshal(map[string]any{
			"results": []any{
				map[string]any{"id": "12345", "title": "Runbook"},
			},
		})
		writer.Write(body)
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real(), 0)
	result, err := client.SearchPages(context.Background(), `space=DOCS AND title ~ "runbook"`, 10)
	if err != nil {
		t.Fatalf("SearchPages: %v", err)
	}

	if result.Strategy != search.StrategyStructured {
		t.Errorf("strategy = %q, want structured", result.Strategy)
	}
	if len(result.Pages) != 1 || result.Pages[0].ID != "12345" {
		t.Errorf("pages = %+v", result.Pages)
	}
	// Operator whitespace is normalized before the backend sees the query.
	if receivedCQL != `space = DOCS AND title ~ "runbook"` {
		t.Errorf("cql = %q", receivedCQL)
	}
}

func TestCreatePageConvertsMarkdown(t *testing.T) {
	var receivedBody map[string]any
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/wiki/rest/api/content" {
			t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
		}
		json.NewDecoder(request.Body).Decode(&receivedBody)
		writer.Write(pageBody("777", "New Page", "", 1))
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real(), 0)
	page, err := client.CreatePage(context.Background(), "DOCS", "New Page", "# Heading\n\n- first\n- second\n")
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if page.ID != "777" {
		t.Errorf("page = %+v", page)
	}

	storage := receivedBody["body"].(map[string]any)["storage"].(map[string]any)
	value := storage["value"].(string)
	if !strings.Contains(value, "<h1>") || !strings.Contains(value, "<li>first</li>") {
		t.Errorf("markdown not converted to storage HTML: %q", value)
	}
	if storage["representation"] != "storage" {
		t.Errorf("representation = %v", storage["representation"])
	}
}

func TestUpdatePageIncrementsLiveVersion(t *testing.T) {
	var updated map[string]any
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.Method {
		case http.MethodGet:
			writer.Write(pageBody("12345", "Runbook", "", 7))
		case http.MethodPut:
			json.NewDecoder(request.Body).Decode(&updated)
			writer.Write(pageBody("12345", "Runbook v2", "", 8))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, clock.Real(), 0)
	page, err := client.UpdatePage(context.Background(), "12345", "Runbook v2", "updated body")
	if err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}
	if page.Version != 8 {
		t.Errorf("version = %d, want 8", page.Version)
	}

	version := updated["version"].(map[string]any)
	if version["number"] != float64(8) {
		t.Errorf("sent version = %v, want 8", version["number"])
	}
}

func TestListSpacesCached(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requests.Add(1)
		writer.Write([]byte(`{"results":[{"key":"DOCS","name":"Documentation"}]}`))
	}))
	defer server.Close()

	fake := clock.Fake(time.Unix(1700000000, 0))
	client := newTestClient(t, server, fake, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		spaces, err := client.ListSpaces(ctx)
		if err != nil {
			t.Fatalf("ListSpaces: %v", err)
		}
		if len(spaces) != 1 || spaces[0].Key != "DOCS" {
			t.Errorf("spaces = %+v", spaces)
		}
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}
