// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc implements the self-built protocol runtime: a
// newline-delimited JSON-RPC 2.0 framer and dispatcher over a
// continuous byte stream (normally stdio).
//
// Each complete input line is one request. The dispatcher routes by
// method: the capability handshake and tool listing answer inline,
// while tool invocations run asynchronously — messages decoded from
// the same chunk may have backend calls in flight concurrently, and
// replies are emitted as invocations complete, correlated by id
// rather than by arrival order. Every failure raised while handling
// one message becomes a structured error reply; no single message can
// terminate the server.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/forgebridge/forgebridge/lib/tool"
	"github.com/forgebridge/forgebridge/lib/version"
)

// nullID is the correlation id used when no id is recoverable from
// malformed input.
var nullID = json.RawMessage("null")

// Server dispatches framed JSON-RPC requests against a tool registry.
type Server struct {
	registry *tool.Registry
	logger   *slog.Logger

	// writeMu serializes response lines: concurrent invocations must
	// not interleave bytes within a line.
	writeMu sync.Mutex
	output  io.Writer

	// inflight tracks asynchronous tool invocations. Run does not
	// drain them at stream end; tests do.
	inflight sync.WaitGroup
}

// NewServer creates a dispatcher over the given registry. A nil
// logger defaults to slog.Default().
func NewServer(registry *tool.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{registry: registry, logger: logger}
}

// Serve runs the server on stdin/stdout. This is the entry point for
// the forgebridge binary.
func (s *Server) Serve(ctx context.Context) error {
	return s.Run(ctx, os.Stdin, os.Stdout)
}

// Run processes newline-delimited JSON-RPC requests from input and
// writes responses to output until input reaches end of stream. A
// buffered partial line at stream end is discarded; in-flight tool
// invocations are not drained (the process is about to exit).
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	s.output = output

	var f framer
	buffer := make([]byte, 64*1024)
	for {
		n, err := input.Read(buffer)
		if n > 0 {
			lines, dropped := f.push(buffer[:n])
			for _, line := range lines {
				s.handleLine(ctx, line)
			}
			// An oversized line is unparseable by construction; no id
			// is recoverable from input we refused to buffer.
			for i := 0; i < dropped; i++ {
				s.writeError(nullID, codeParseError, "parse error: line exceeds maximum length", nil)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input stream: %w", err)
		}
	}
}

// handleLine decodes and dispatches one framed message.
func (s *Server) handleLine(ctx context.Context, line []byte) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		// No id is recoverable from malformed input.
		s.writeError(nullID, codeParseError, "parse error: "+err.Error(), nil)
		return
	}

	// Notifications receive no reply: absent id, the reserved
	// notification namespace, and the handshake acknowledgment.
	if req.isNotification() || isNotificationMethod(req.Method) {
		return
	}

	switch req.Method {
	case "initialize":
		s.writeResult(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: serverCapabilities{
				Tools: &toolCapability{},
			},
			ServerInfo: serverInfo{
				Name:    "forgebridge",
				Version: version.Short(),
			},
		})
	case "ping":
		s.writeResult(req.ID, map[string]any{})
	case "tools/list":
		s.handleToolsList(&req)
	case "tools/call":
		s.handleToolsCall(ctx, &req)
	default:
		s.writeError(req.ID, codeMethodNotFound, "unknown method: "+req.Method, nil)
	}
}

// isNotificationMethod reports whether method lives in the reserved
// notification namespace or is the handshake acknowledgment.
func isNotificationMethod(method string) bool {
	return method == initializedNotification || strings.HasPrefix(method, notificationPrefix)
}

// handleToolsList returns the registry contents verbatim, in
// declaration order.
func (s *Server) handleToolsList(req *request) {
	tools := s.registry.Tools()
	descriptions := make([]toolDescription, 0, len(tools))
	for _, t := range tools {
		descriptions = append(descriptions, toolDescription{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema(),
		})
	}
	s.writeResult(req.ID, toolsListResult{Tools: descriptions})
}

// handleToolsCall resolves and validates a tool invocation, then runs
// the handler asynchronously. Routing and validation failures reply
// inline with no backend call; handler failures become tool execution
// errors carrying the original detail.
func (s *Server) handleToolsCall(ctx context.Context, req *request) {
	if len(req.Params) == 0 {
		s.writeError(req.ID, codeInvalidParams, "params required for tools/call", nil)
		return
	}
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error(), nil)
		return
	}

	t, ok := s.registry.Lookup(params.Name)
	if !ok {
		s.writeError(req.ID, codeMethodNotFound, "unknown tool: "+params.Name, nil)
		return
	}

	args, err := t.Validate(params.Arguments)
	if err != nil {
		s.writeError(req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	// Asynchronous per message: invocations from the same input burst
	// may run concurrently and reply out of arrival order. There is
	// deliberately no concurrency cap and no cancellation mid-flight.
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.invoke(ctx, req.ID, t, args)
	}()
}

// invoke runs a validated tool invocation and writes its reply.
func (s *Server) invoke(ctx context.Context, id json.RawMessage, t *tool.Tool, args map[string]any) {
	result, err := t.Handler(ctx, args)
	if err != nil {
		s.logger.Warn("tool execution failed",
			"tool", t.Name,
			"error", err,
		)
		data := classifyError(err)
		s.writeError(id, codeToolError, "tool execution failed: "+t.Name, data)
		return
	}

	serialized, err := json.Marshal(result)
	if err != nil {
		// The handler produced a value its own types cannot marshal —
		// a bug in the tool, not a runtime condition.
		s.writeError(id, codeInternalError, "encoding tool result: "+err.Error(), nil)
		return
	}

	s.writeResult(id, toolsCallResult{
		Content:           []contentBlock{{Type: "text", Text: string(serialized)}},
		StructuredContent: result,
	})
}

// classifyError extracts structured error metadata from a handler
// failure. Categorized tool errors carry their own class; context
// expiry maps to transient; everything else is internal.
func classifyError(err error) *errorData {
	var toolErr *tool.Error
	if errors.As(err, &toolErr) {
		return &errorData{
			Detail:    toolErr.Error(),
			Category:  string(toolErr.Category),
			Retryable: toolErr.Category == tool.CategoryTransient,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &errorData{Detail: err.Error(), Category: string(tool.CategoryTransient), Retryable: true}
	}
	return &errorData{Detail: err.Error(), Category: string(tool.CategoryInternal), Retryable: false}
}

// writeResult emits a JSON-RPC 2.0 success response line.
func (s *Server) writeResult(id json.RawMessage, result any) {
	s.writeResponse(response{JSONRPC: "2.0", ID: id, Result: result})
}

// writeError emits a JSON-RPC 2.0 error response line.
func (s *Server) writeError(id json.RawMessage, code int, message string, data any) {
	s.writeResponse(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message, Data: data}})
}

// writeResponse marshals a response and writes it as one newline-
// terminated line under the write lock, so replies emitted by
// concurrent invocations never interleave.
func (s *Server) writeResponse(resp response) {
	line, err := json.Marshal(resp)
	if err != nil {
		// Responses are built from marshalable types; a failure here
		// is a programming error. Log and drop rather than crash the
		// dispatch loop.
		s.logger.Error("encoding response", "error", err)
		return
	}
	line = append(line, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.output.Write(line); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

// drain blocks until every in-flight invocation has written its
// reply. Tests call this after Run returns; the production exit path
// does not — shutdown discards in-flight work.
func (s *Server) drain() {
	s.inflight.Wait()
}
