// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package tool defines the declarative tool registry consulted by the
// JSON-RPC dispatcher. A registry is a static, ordered table of tools:
// each entry has a unique name, a description, a parameter schema
// distinguishing required fields from optional fields with defaults,
// and a handler implementing the tool's behavior against a backend.
//
// The registry itself has no behavior beyond lookup and description.
// Argument validation happens once at the dispatch boundary, before a
// handler body runs: missing required parameters are rejected with no
// backend call, and optional parameters are resolved to their declared
// defaults so handler bodies never see an absent argument.
package tool

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Handler executes a tool against its backend with validated,
// default-resolved arguments. A returned error is reported to the
// client as a tool execution failure; it never terminates the server.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Type is the JSON Schema type of a parameter.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
)

// Param declares one tool parameter. Required parameters have no
// default; optional parameters carry an explicit default that is
// resolved at the validation boundary.
type Param struct {
	// Name is the JSON argument key.
	Name string

	// Type is the expected JSON type of the argument value.
	Type Type

	// Description is the human-readable parameter documentation.
	Description string

	// Required marks the parameter as mandatory. Required and Default
	// are mutually exclusive.
	Required bool

	// Default is the value resolved for an optional parameter the
	// caller omitted. Nil means the parameter stays absent when
	// omitted (handlers must tolerate that only for nil-default
	// optionals).
	Default any
}

// Tool is one registry entry: a named backend operation with its
// parameter schema and handler.
type Tool struct {
	// Name uniquely identifies the tool (e.g. "tracker_issue_get").
	Name string

	// Description is the human-readable tool documentation returned
	// by the list-operations method.
	Description string

	// Params is the ordered parameter schema.
	Params []Param

	// ReadOnly marks tools that perform no mutation. Read-only tools
	// are the only ones eligible for response caching in handlers.
	ReadOnly bool

	// Handler executes the tool. Invoked only after Validate succeeds.
	Handler Handler
}

// Registry is an ordered, immutable table of tools.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool
}

// NewRegistry builds a registry from the given tools, preserving
// order. Returns an error on duplicate names or schema declaration
// bugs (a required parameter with a default, a default of the wrong
// type) — these indicate programming errors in the tool table, not
// runtime conditions.
func NewRegistry(tools ...*Tool) (*Registry, error) {
	registry := &Registry{
		tools:  tools,
		byName: make(map[string]*Tool, len(tools)),
	}
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := registry.byName[t.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", t.Name)
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("tool %q has no handler", t.Name)
		}
		for _, param := range t.Params {
			if param.Required && param.Default != nil {
				return nil, fmt.Errorf("tool %q parameter %q is required but declares a default", t.Name, param.Name)
			}
			if param.Default != nil {
				if _, err := coerce(param.Type, param.Default); err != nil {
					return nil, fmt.Errorf("tool %q parameter %q default: %w", t.Name, param.Name, err)
				}
			}
		}
		registry.byName[t.Name] = t
	}
	return registry, nil
}

// Lookup returns the tool with the given name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns the registry contents in declaration order.
func (r *Registry) Tools() []*Tool {
	return r.tools
}

// Schema is the JSON Schema object describing a tool's parameters,
// rendered for the list-operations response.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes one parameter in a Schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// InputSchema renders the tool's parameter table as a JSON Schema
// object. Required parameter names are sorted for stable output.
func (t *Tool) InputSchema() Schema {
	schema := Schema{
		Type:       "object",
		Properties: make(map[string]Property, len(t.Params)),
	}
	for _, param := range t.Params {
		schema.Properties[param.Name] = Property{
			Type:        string(param.Type),
			Description: param.Description,
			Default:     param.Default,
		}
		if param.Required {
			schema.Required = append(schema.Required, param.Name)
		}
	}
	sort.Strings(schema.Required)
	return schema
}

// Validate checks args against the tool's parameter schema and returns
// a resolved argument map: required parameters verified present,
// optional parameters filled with their defaults, values coerced to
// their declared types. The input map is not modified.
//
// All failures are validation-category errors; the dispatcher reports
// them without invoking the handler.
func (t *Tool) Validate(args map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(t.Params))

	declared := make(map[string]*Param, len(t.Params))
	for i := range t.Params {
		declared[t.Params[i].Name] = &t.Params[i]
	}

	for name := range args {
		if _, ok := declared[name]; !ok {
			return nil, Validation("unknown parameter %q for tool %s", name, t.Name)
		}
	}

	for _, param := range t.Params {
		value, present := args[param.Name]
		if !present {
			if param.Required {
				return nil, Validation("missing required parameter %q for tool %s", param.Name, t.Name)
			}
			if param.Default != nil {
				resolved[param.Name] = param.Default
			}
			continue
		}
		coerced, err := coerce(param.Type, value)
		if err != nil {
			return nil, Validation("parameter %q for tool %s: %v", param.Name, t.Name, err)
		}
		resolved[param.Name] = coerced
	}

	return resolved, nil
}

// coerce checks a decoded JSON value against a declared parameter type
// and normalizes it: JSON numbers arrive as float64, so integer
// parameters are converted to int after verifying integrality.
func coerce(paramType Type, value any) (any, error) {
	switch paramType {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return s, nil
	case TypeInteger:
		switch v := value.(type) {
		case int:
			return v, nil
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("expected integer, got %v", v)
			}
			return int(v), nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", value)
		}
	case TypeNumber:
		switch v := value.(type) {
		case int:
			return float64(v), nil
		case float64:
			return v, nil
		default:
			return nil, fmt.Errorf("expected number, got %T", value)
		}
	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", value)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", paramType)
	}
}
