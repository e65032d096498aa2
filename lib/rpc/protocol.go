// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import "encoding/json"

// protocolVersion is the protocol version reported during the
// capability handshake. The server always responds with its own
// version; the client decides whether it can proceed.
const protocolVersion = "2025-11-25"

// notificationPrefix is the reserved notification namespace. Messages
// whose method lives under it are processed with no reply, id or not.
const notificationPrefix = "notifications/"

// initializedNotification is the handshake acknowledgment sent by the
// client after initialize. Processed with no reply.
const initializedNotification = "notifications/initialized"

// JSON-RPC 2.0 error codes. codeToolError is the implementation-
// defined code for a dispatched backend call that failed.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeToolError      = -32000
)

// request is a JSON-RPC 2.0 request or notification. Notifications
// are distinguished by having no ID field.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification returns true if this request has no ID, indicating
// it is a JSON-RPC 2.0 notification that expects no response.
func (r *request) isNotification() bool {
	return len(r.ID) == 0
}

// response is a JSON-RPC 2.0 response. Exactly one of Result or Error
// is set. Result uses omitempty so it is absent in error responses.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is a JSON-RPC 2.0 error object. Data carries structured
// error metadata (category, retryability, original detail) for tool
// execution failures.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// errorData is the structured payload in a tool execution error.
type errorData struct {
	// Detail is the original failure text from the backend call.
	Detail string `json:"detail"`

	// Category classifies the error. One of: validation, not_found,
	// forbidden, conflict, transient, internal.
	Category string `json:"category"`

	// Retryable indicates whether repeating the same call might
	// succeed. True for transient errors (network, timeout, rate
	// limit); false otherwise.
	Retryable bool `json:"retryable"`
}

// initializeResult is the server's capability-handshake response:
// protocol version, declared capabilities, identity. Static and
// side-effect free.
type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      serverInfo         `json:"serverInfo"`
}

// serverCapabilities declares what the server supports.
type serverCapabilities struct {
	Tools *toolCapability `json:"tools,omitempty"`
}

// toolCapability indicates the server supports tool operations.
type toolCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// serverInfo identifies the server.
type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// toolsListResult is the result for tools/list.
type toolsListResult struct {
	Tools []toolDescription `json:"tools"`
}

// toolDescription describes a single tool for the tools/list
// response, rendered verbatim from the registry.
type toolDescription struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// toolsCallParams is the client's tools/call request parameters.
type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// toolsCallResult is the server's tools/call response. The handler's
// structured result rides in StructuredContent; its serialized JSON
// is also included as a text content block for clients that only
// render text.
type toolsCallResult struct {
	Content           []contentBlock `json:"content"`
	StructuredContent any            `json:"structuredContent,omitempty"`
}

// contentBlock is a content block within a tool result.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
