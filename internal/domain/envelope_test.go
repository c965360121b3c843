package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestResponseEnvelope_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		env  ResponseEnvelope
		want string
	}{
		{
			name: "no data member when delta empty and not finished",
			env:  Success("X", "sys", ObjectNone),
			want: `{"request_id":"X","work_id":"sys","object":"None","error":{"code":0,"message":""}}`,
		},
		{
			name: "delta present",
			env: ResponseEnvelope{
				RequestID:     "llm_inference",
				WorkID:        "llm_123",
				Object:        ObjectStream,
				InferenceData: InferenceData{Delta: "Hi", Index: 2},
			},
			want: `{"request_id":"llm_inference","work_id":"llm_123","object":"llm.utf-8.stream","data":{"delta":"Hi","index":2,"finish":false},"error":{"code":0,"message":""}}`,
		},
		{
			name: "finish with empty delta keeps data",
			env: ResponseEnvelope{
				RequestID:     "llm_inference",
				WorkID:        "llm_123",
				Object:        ObjectStream,
				InferenceData: InferenceData{Index: 3, Finish: true},
			},
			want: `{"request_id":"llm_inference","work_id":"llm_123","object":"llm.utf-8.stream","data":{"delta":"","index":3,"finish":true},"error":{"code":0,"message":""}}`,
		},
		{
			name: "error record",
			env:  Failure("setup", "llm", ObjectNone, CodeModelNotFound, "Model not found"),
			want: `{"request_id":"setup","work_id":"llm","object":"None","error":{"code":2,"message":"Model not found"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.env)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestResponseEnvelope_DeltaEscaping(t *testing.T) {
	delta := "a\\b \"quoted\"\nline\r\ttab <tag> & more"
	env := ResponseEnvelope{
		RequestID:     "llm_inference",
		WorkID:        "llm_1",
		Object:        ObjectStream,
		InferenceData: InferenceData{Delta: delta},
	}

	var buf bytes.Buffer
	if _, err := env.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	line := buf.String()
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("envelope not newline terminated: %q", line)
	}
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("raw newline leaked into envelope: %q", line)
	}
	if !strings.Contains(line, `<tag> & more`) {
		t.Errorf("html characters escaped: %q", line)
	}

	var decoded struct {
		Data InferenceData `json:"data"`
	}
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if decoded.Data.Delta != delta {
		t.Errorf("delta = %q, want %q", decoded.Data.Delta, delta)
	}
}
