// Package ops defines schema-described operations and the registry that
// advertises them. An operation is one named unit of work a bridge exposes:
// a description, a typed parameter table, and a handler. Registries are
// populated once at startup and read-only afterwards.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Handler executes an operation with validated arguments and returns a
// structured payload. Errors are captured by the dispatcher; handlers never
// need to produce envelopes themselves.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// ParamType enumerates the value types a parameter may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
)

// Param describes one named parameter in an operation's input schema.
type Param struct {
	Type        ParamType
	Description string
	Required    bool
	Default     any // Applied when the parameter is absent; ignored if Required.
}

// Spec describes an executable operation. Immutable once registered.
//
// Params is the declared input schema. RawSchema, when set, is a
// pre-rendered JSON Schema used verbatim for advertisement; it marks an
// operation whose arguments are validated by a remote peer (e.g. an
// imported MCP tool), so local validation passes arguments through.
type Spec struct {
	Name        string
	Description string
	Params      map[string]Param
	RawSchema   json.RawMessage
	Handler     Handler
}

// schemaProperty is the JSON Schema rendering of one Param.
type schemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// JSONSchema renders the parameter table as a JSON Schema object. This is
// the advertisement format consumed by model backends and MCP peers. When
// RawSchema is set it is returned unchanged.
func (s Spec) JSONSchema() json.RawMessage {
	if s.RawSchema != nil {
		return s.RawSchema
	}

	props := make(map[string]schemaProperty, len(s.Params))
	var required []string

	for name, p := range s.Params {
		props[name] = schemaProperty{
			Type:        string(p.Type),
			Description: p.Description,
			Default:     p.Default,
		}
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	doc := struct {
		Type       string                    `json:"type"`
		Properties map[string]schemaProperty `json:"properties"`
		Required   []string                  `json:"required,omitempty"`
	}{
		Type:       "object",
		Properties: props,
		Required:   required,
	}

	out, err := json.Marshal(doc)
	if err != nil {
		// The schema is built from plain maps and strings; marshalling
		// cannot fail unless a Default holds an unserializable value.
		return json.RawMessage(fmt.Sprintf(`{"type":"object","error":%q}`, err.Error()))
	}

	return out
}

// paramNames returns the declared parameter names in sorted order, so that
// validation reports errors deterministically.
func (s Spec) paramNames() []string {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
