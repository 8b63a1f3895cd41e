// Package bridge dispatches invocation requests against an operation
// registry and captures every outcome, success or failure, into one
// normalized envelope. Nothing escapes the dispatcher unstructured: unknown
// names, invalid arguments, handler errors, handler panics, and timeouts
// all come back as a Failure with a taxonomy kind.
package bridge

import (
	"encoding/json"
	"fmt"
)

// FailureKind classifies a Failure envelope.
type FailureKind string

const (
	KindUnknownOperation FailureKind = "unknown_operation"
	KindValidationError  FailureKind = "validation_error"
	KindHandlerError     FailureKind = "handler_error"
	KindMalformedRequest FailureKind = "malformed_request"
	KindTimeout          FailureKind = "timeout"
)

// Request is one invocation of a named operation.
type Request struct {
	Operation string         `json:"operation"`
	Arguments map[string]any `json:"arguments"`
}

// Result is the normalized outcome envelope of one dispatch. Exactly one of
// the two shapes is populated: a success carries Payload, a failure carries
// Kind and Message.
type Result struct {
	OK      bool
	Payload any
	Kind    FailureKind
	Message string
}

// Success wraps a handler payload as a success envelope.
func Success(payload any) Result {
	return Result{OK: true, Payload: payload}
}

// Failure builds a failure envelope of the given kind.
func Failure(kind FailureKind, format string, args ...any) Result {
	return Result{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wireResult is the serialized form of Result:
//
//	{"status":"ok","payload":...}
//	{"status":"error","kind":"...","message":"..."}
type wireResult struct {
	Status  string      `json:"status"`
	Payload any         `json:"payload,omitempty"`
	Kind    FailureKind `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
}

// MarshalJSON renders the wire shape.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(wireResult{Status: "ok", Payload: r.Payload})
	}

	return json.Marshal(wireResult{Status: "error", Kind: r.Kind, Message: r.Message})
}

// UnmarshalJSON parses the wire shape.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Status {
	case "ok":
		*r = Result{OK: true, Payload: w.Payload}
	case "error":
		*r = Result{Kind: w.Kind, Message: w.Message}
	default:
		return fmt.Errorf("bridge: unknown result status %q", w.Status)
	}

	return nil
}

// OpInfo is one entry in the operation advertisement consumed by callers
// building a tool menu.
type OpInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}
