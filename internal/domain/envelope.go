package domain

import (
	"bytes"
	"encoding/json"
	"io"
)

// Error codes carried in ResponseEnvelope.Error.Code.
const (
	CodeOK            = 0
	CodeFailure       = 1
	CodeModelNotFound = 2
	CodeNotSupported  = 3
)

// Object tags used in replies.
const (
	ObjectNone   = "None"
	ObjectSetup  = "llm.setup"
	ObjectStream = "llm.utf-8.stream"
)

// ErrorRecord is the error member of every envelope. Code 0 means success.
type ErrorRecord struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// InferenceData carries one streamed delta.
type InferenceData struct {
	Delta  string `json:"delta"`
	Index  int    `json:"index"`
	Finish bool   `json:"finish"`
}

// ResponseEnvelope is the reply object sent back over the transport.
type ResponseEnvelope struct {
	RequestID     string
	WorkID        string
	Object        string
	Error         ErrorRecord
	InferenceData InferenceData
}

// wireEnvelope fixes the canonical member order.
type wireEnvelope struct {
	RequestID string         `json:"request_id"`
	WorkID    string         `json:"work_id"`
	Object    string         `json:"object"`
	Data      *InferenceData `json:"data,omitempty"`
	Error     ErrorRecord    `json:"error"`
}

// HasData reports whether the data member is serialized.
func (e ResponseEnvelope) HasData() bool {
	return e.InferenceData.Delta != "" || e.InferenceData.Finish
}

// MarshalJSON renders the canonical outbound shape. The data member is
// omitted when the delta is empty and finish is false.
func (e ResponseEnvelope) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.encode(&buf); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteTo writes the envelope followed by a newline.
func (e ResponseEnvelope) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := e.encode(&buf); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

func (e ResponseEnvelope) encode(buf *bytes.Buffer) error {
	wire := wireEnvelope{
		RequestID: e.RequestID,
		WorkID:    e.WorkID,
		Object:    e.Object,
		Error:     e.Error,
	}
	if e.HasData() {
		data := e.InferenceData
		wire.Data = &data
	}
	enc := json.NewEncoder(buf)
	// Deltas are model text; keep <, > and & readable for the peer.
	enc.SetEscapeHTML(false)
	return enc.Encode(wire)
}

// Success builds a zero-error envelope.
func Success(requestID, workID, object string) ResponseEnvelope {
	return ResponseEnvelope{RequestID: requestID, WorkID: workID, Object: object}
}

// Failure builds an error envelope.
func Failure(requestID, workID, object string, code int, message string) ResponseEnvelope {
	return ResponseEnvelope{
		RequestID: requestID,
		WorkID:    workID,
		Object:    object,
		Error:     ErrorRecord{Code: code, Message: message},
	}
}
