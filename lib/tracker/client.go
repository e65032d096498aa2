// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracker is a typed client for the issue tracker REST API.
// It layers a TTL response cache over read operations and runs
// searches through the degrading strategy chain. Rendered HTML fields
// are normalized to bounded plain text before leaving the package.
package tracker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/forgebridge/forgebridge/lib/cache"
	"github.com/forgebridge/forgebridge/lib/clock"
	"github.com/forgebridge/forgebridge/lib/httpx"
	"github.com/forgebridge/forgebridge/lib/profile"
	"github.com/forgebridge/forgebridge/lib/search"
)

// Config holds configuration for creating a tracker Client.
type Config struct {
	// BaseURL is the site root. Must use HTTPS.
	BaseURL string

	// Email and APIToken authenticate every request via HTTP basic
	// auth. Both are required.
	Email    string
	APIToken string

	// Profile selects the REST path layout. Obtain via
	// profile.Lookup.
	Profile profile.Profile

	// CacheTTL is how long read responses stay fresh. Zero disables
	// caching.
	CacheTTL time.Duration

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	// Inject clock.Fake() in tests for deterministic behavior.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed issue tracker REST client with authentication,
// response caching, rate-limit backoff, and structured errors.
type Client struct {
	baseURL    string
	profile    profile.Profile
	authHeader string
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
	cache      *cache.Cache
	chain      *search.Chain[Issue]
}

// NewClient creates a tracker client from the given configuration.
// Returns an error if the configuration is invalid (missing
// credentials, non-HTTPS URL).
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("tracker: API client requires HTTPS (got %q)", config.BaseURL)
	}
	if config.Email == "" || config.APIToken == "" {
		return nil, fmt.Errorf("tracker: email and API token are required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(config.Email + ":" + config.APIToken))

	client := &Client{
		baseURL:    baseURL,
		profile:    config.Profile,
		authHeader: "Basic " + credentials,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
	}
	if config.CacheTTL > 0 {
		client.cache = cache.New(config.CacheTTL, clk)
	}
	client.chain = search.NewChain(client.searchOnce, func(issue Issue) string { return issue.Key }, IsServerError, logger)
	return client, nil
}

// do executes an authenticated tracker API request. The path should be
// absolute (e.g. "/rest/api/3/issue/OPS-1"). On non-2xx responses,
// returns an *APIError. A 429 response is retried once after the
// server's Retry-After delay.
func (client *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	return client.doWithRetry(ctx, method, path, requestBody, false)
}

func (client *Client) doWithRetry(ctx context.Context, method, path string, requestBody any, isRetry bool) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("tracker: encoding request body: %w", err)
		}
		bodyReader = strings.NewReader(string(encoded))
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("tracker: creating request: %w", err)
	}
	request.Header.Set("Authorization", client.authHeader)
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("tracker: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	body, err := httpx.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("tracker: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		apiError := parseAPIError(response.StatusCode, body)
		if !isRetry && IsRateLimited(apiError) {
			retryDuration := httpx.RetryAfter(response.Header)
			if retryDuration > 0 && retryDuration <= httpx.MaxRetryAfter {
				client.logger.Info("rate limited, backing off",
					"duration", retryDuration,
					"method", method,
					"path", path,
				)
				select {
				case <-client.clock.After(retryDuration):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				return client.doWithRetry(ctx, method, path, requestBody, true)
			}
		}
		return nil, apiError
	}

	return body, nil
}

// get is a convenience method for GET requests that return a single
// JSON object. Decodes the response into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	body, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

// post is a convenience method for POST requests. Pass nil result for
// endpoints that return no body.
func (client *Client) post(ctx context.Context, path string, requestBody any, result any) error {
	body, err := client.do(ctx, http.MethodPost, path, requestBody)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}
