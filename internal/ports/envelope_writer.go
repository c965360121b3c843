package ports

import "github.com/bft-labs/llmbridge/internal/domain"

// EnvelopeWriter sends one reply to the device.
type EnvelopeWriter interface {
	WriteEnvelope(env domain.ResponseEnvelope) error
}
