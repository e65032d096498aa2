// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package wiki is a typed client for the wiki REST API. Page bodies
// arrive in storage-format HTML and leave this package as bounded
// plain text; markdown submitted for create and update is converted
// to storage HTML first.
package wiki

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
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
	"github.com/forgebridge/forgebridge/lib/tool"
)

// Config holds configuration for creating a wiki Client.
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
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed wiki REST client.
type Client struct {
	baseURL    string
	profile    profile.Profile
	authHeader string
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
	cache      *cache.Cache
	chain      *search.Chain[Page]
}

// NewClient creates a wiki client from the given configuration.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("wiki: API client requires HTTPS (got %q)", config.BaseURL)
	}
	if config.Email == "" || config.APIToken == "" {
		return nil, fmt.Errorf("wiki: email and API token are required")
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
	client.chain = search.NewChain(client.searchOnce, func(page Page) string { return page.ID }, IsServerError, logger)
	return client, nil
}

// APIError represents a non-2xx response from the wiki REST API. The
// wiki returns a single message per error, unlike the tracker's
// message list.
type APIError struct {
	StatusCode int
	Message    string
}

func (err *APIError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("wiki: HTTP %d", err.StatusCode)
	}
	return fmt.Sprintf("wiki: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsNotFound reports whether err is a wiki API 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsRateLimited reports whether err is a wiki API 429 response.
func IsRateLimited(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 429
}

// IsServerError reports whether err is a wiki-side failure (5xx or
// rate limiting) rather than a rejection of the request itself.
func IsServerError(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode >= 500 || apiError.StatusCode == 429
}

// do executes an authenticated wiki API request. On non-2xx
// responses, returns an *APIError. A 429 response is retried once
// after the server's Retry-After delay.
func (client *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	return client.doWithRetry(ctx, method, path, requestBody, false)
}

func (client *Client) doWithRetry(ctx context.Context, method, path string, requestBody any, isRetry bool) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("wiki: encoding request body: %w", err)
		}
		bodyReader = strings.NewReader(string(encoded))
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("wiki: creating request: %w", err)
	}
	request.Header.Set("Authorization", client.authHeader)
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("wiki: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	body, err := httpx.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("wiki: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		apiError := &APIError{StatusCode: response.StatusCode}
		var wireError struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
			apiError.Message = wireError.Message
		} else if len(body) > 0 {
			apiError.Message = string(body)
		}
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

func (client *Client) get(ctx context.Context, path string, result any) error {
	body, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

func (client *Client) send(ctx context.Context, method, path string, requestBody any, result any) error {
	body, err := client.do(ctx, method, path, requestBody)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}

// asToolError maps a backend failure onto the tool error taxonomy.
func asToolError(err error) error {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return tool.Internal("%w", err)
	}
	switch {
	case apiError.StatusCode == 404:
		return tool.NotFound("%w", err)
	case apiError.StatusCode == 401 || apiError.StatusCode == 403:
		return tool.Forbidden("%w", err)
	case apiError.StatusCode == 409:
		return tool.Conflict("%w", err)
	case apiError.StatusCode == 429 || apiError.StatusCode >= 500:
		return tool.Transient("%w", err)
	case apiError.StatusCode >= 400:
		return tool.Validation("%w", err)
	}
	return tool.Internal("%w", err)
}
