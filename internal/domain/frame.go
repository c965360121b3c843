package domain

import (
	"encoding/json"
	"fmt"
)

// Frame is one complete JSON object received from the transport.
// It is built right before dispatch and discarded afterwards.
type Frame struct {
	// Raw is the exact object text as reconstructed by the framer.
	Raw string

	fields map[string]json.RawMessage
}

// ParseFrame decodes the top level of a JSON object.
func ParseFrame(text string) (Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Frame{}, fmt.Errorf("parse frame: %w", err)
	}
	if fields == nil {
		return Frame{}, ErrNotObject
	}
	return Frame{Raw: text, fields: fields}, nil
}

// Field returns the raw JSON of a top-level member.
func (f Frame) Field(key string) (json.RawMessage, bool) {
	v, ok := f.fields[key]
	return v, ok
}

// String returns a top-level member that holds a JSON string.
// Members that are absent or of another type report ok=false.
func (f Frame) String(key string) (string, bool) {
	raw, ok := f.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// RequestID returns the request_id member, or "" when absent.
func (f Frame) RequestID() string {
	id, _ := f.String("request_id")
	return id
}
