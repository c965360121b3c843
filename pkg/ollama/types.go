package ollama

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// Model is one entry of the /api/tags listing. Older servers fill only one
// of Name and Model.
type Model struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Size  int64  `json:"size,omitempty"`
}

// Matches reports whether the entry is the named model.
func (m Model) Matches(name string) bool {
	return m.Name == name || m.Model == name
}

// TagsResponse is the body of GET /api/tags.
type TagsResponse struct {
	Models []Model `json:"models"`
}

// VersionResponse is the body of GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}
