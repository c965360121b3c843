package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.Client(), nil)
}

func TestVersion(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"version":"0.1.32"}`)
	})

	code, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if code != http.StatusOK {
		t.Errorf("code = %d, want 200", code)
	}
}

func TestVersion_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	code, err := NewClient(url, nil, nil).Version(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
}

func TestHasModel(t *testing.T) {
	tags := `{"models":[{"name":"llama3:latest"},{"model":"qwen2:0.5b"},{"name":"a","model":"b"}]}`
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, tags)
	})

	tests := []struct {
		name     string
		model    string
		notFound bool
	}{
		{name: "match on name", model: "llama3:latest"},
		{name: "match on model", model: "qwen2:0.5b"},
		{name: "either field", model: "b"},
		{name: "prefix is not a match", model: "llama3", notFound: true},
		{name: "absent", model: "mistral", notFound: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.HasModel(context.Background(), tt.model)
			if tt.notFound {
				if !errors.Is(err, ErrModelNotFound) {
					t.Errorf("err = %v, want ErrModelNotFound", err)
				}
				return
			}
			if err != nil {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestHasModel_ServerError(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := c.HasModel(context.Background(), "llama3")
	if err == nil || errors.Is(err, ErrModelNotFound) {
		t.Fatalf("err = %v, want non-not-found error", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Errorf("err = %#v, want StatusError 500", err)
	}
}

func TestGenerate(t *testing.T) {
	var got GenerateRequest
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = io.WriteString(w, "{\"response\":\"hi\",\"done\":false}\n{\"done\":true}\n")
	})

	body, err := c.Generate(context.Background(), "llama3", "say \"hi\"")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if want := "{\"response\":\"hi\",\"done\":false}\n{\"done\":true}\n"; string(data) != want {
		t.Errorf("body = %q", data)
	}
	if got.Model != "llama3" || got.Prompt != "say \"hi\"" || !got.Stream {
		t.Errorf("request = %+v", got)
	}
}

func TestGenerate_NonOK(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	})

	body, err := c.Generate(context.Background(), "nope", "x")
	if body != nil {
		t.Error("expected nil body")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Body != `{"error":"model not found"}` {
		t.Errorf("StatusError = %+v", se)
	}
}
