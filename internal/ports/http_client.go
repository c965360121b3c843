package ports

import "github.com/bft-labs/llmbridge/pkg/ollama"

// HTTPClient executes backend and forward requests. It is the same
// interface the Ollama client accepts, so one client serves both.
type HTTPClient = ollama.HTTPClient
