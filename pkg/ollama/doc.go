// Package ollama is a small client for an Ollama-style generation backend.
//
// It covers the three endpoints the bridge needs:
//
//   - GET  /api/version  liveness probe
//   - GET  /api/tags     installed model list
//   - POST /api/generate streaming text generation
//
// # Usage
//
//	client := ollama.NewClient("http://localhost:11434", http.DefaultClient, logger)
//
//	if err := client.HasModel(ctx, "llama3"); err != nil {
//	    return err
//	}
//
//	body, err := client.Generate(ctx, "llama3", "hello")
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//
// The generate body is newline-delimited JSON; decode it with pkg/stream.
package ollama
