package ports

import "context"

// FrameForwarder relays raw inbound frame text to a secondary sink.
// Failures are logged by the caller and never affect the reply.
type FrameForwarder interface {
	Forward(ctx context.Context, raw string) error
}
