// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/forgebridge/forgebridge/lib/tool"
)

// APIError represents a non-2xx response from the tracker REST API.
// The tracker returns structured JSON error bodies with a list of
// top-level messages and optional field-level errors.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Messages are the top-level error descriptions.
	Messages []string

	// FieldErrors maps field names to validation messages. Present on
	// 400 responses for malformed create and transition payloads.
	FieldErrors map[string]string
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "tracker: HTTP %d", err.StatusCode)
	if len(err.Messages) > 0 {
		fmt.Fprintf(&builder, ": %s", strings.Join(err.Messages, "; "))
	}
	for field, message := range err.FieldErrors {
		fmt.Fprintf(&builder, "; %s: %s", field, message)
	}
	return builder.String()
}

// parseAPIError builds an APIError from a status code and response
// body. Unparseable bodies become a single raw message.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if json.Unmarshal(body, &wireError) == nil && (len(wireError.ErrorMessages) > 0 || len(wireError.Errors) > 0) {
		apiError.Messages = wireError.ErrorMessages
		apiError.FieldErrors = wireError.Errors
	} else if len(body) > 0 {
		apiError.Messages = []string{string(body)}
	}

	return apiError
}

// IsNotFound reports whether err is a tracker API 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsRateLimited reports whether err is a tracker API 429 response.
func IsRateLimited(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 429
}

// IsServerError reports whether err is a tracker-side failure (5xx or
// rate limiting) rather than a rejection of the request itself. The
// search strategy chain falls through to the next strategy only on
// this class of error.
func IsServerError(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode >= 500 || apiError.StatusCode == 429
}

// asToolError maps a backend failure onto the tool error taxonomy so
// the protocol layer can report category and retryability.
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
