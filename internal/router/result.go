package router

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Failure is the error branch of a Result.
type Failure struct {
	Kind    Kind
	Message string
}

// Result is the tagged outcome of a router operation: exactly one of a
// value or a Failure.
//
// JSON encoding flattens it into the envelope consumed by clients:
//
//	{"success": true, "userId": 7}
//	{"success": false, "error": "...", "kind": "ConstraintViolation"}
//
// A value must encode as a JSON object; its fields are merged next to
// "success". Any other encoding is placed under "data".
type Result[T any] struct {
	value   T
	failure *Failure
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps a failure.
func Fail[T any](kind Kind, message string) Result[T] {
	return Result[T]{failure: &Failure{Kind: kind, Message: message}}
}

// OK reports whether r holds a value.
func (r Result[T]) OK() bool {
	return r.failure == nil
}

// Value returns the value and true, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	if r.failure != nil {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Failure returns the failure, or nil on success.
func (r Result[T]) Failure() *Failure {
	return r.failure
}

// MarshalJSON implements json.Marshaler.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.failure != nil {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
			Kind    Kind   `json:"kind"`
		}{false, r.failure.Message, r.failure.Kind})
	}

	data, err := json.Marshal(r.value)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) < 2 || trimmed[0] != '{' {
		return json.Marshal(struct {
			Success bool            `json:"success"`
			Data    json.RawMessage `json:"data"`
		}{true, trimmed})
	}

	inner := bytes.TrimSpace(trimmed[1 : len(trimmed)-1])
	var buf bytes.Buffer
	buf.WriteString(`{"success":true`)
	if len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Envelope is the type-erased Result returned by Router.Dispatch.
type Envelope interface {
	json.Marshaler
	OK() bool
	Failure() *Failure
}

var _ Envelope = Result[struct{}]{}
