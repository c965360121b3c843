package domain

// ModelStatus is the outcome of validating a model name against the backend.
type ModelStatus int

const (
	ModelOK ModelStatus = iota
	ModelUnavailable
	ModelNotFound
)

func (s ModelStatus) String() string {
	switch s {
	case ModelOK:
		return "ok"
	case ModelUnavailable:
		return "unavailable"
	case ModelNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
