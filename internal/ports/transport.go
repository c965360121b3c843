package ports

import (
	"context"
	"io"
)

// Transport is an open byte link to the device. Read blocks until bytes
// are available. Writes carry whole envelopes.
type Transport interface {
	io.ReadWriteCloser
}

// TransportOpener opens a Transport. The bridge calls Open again after a
// read failure.
type TransportOpener interface {
	Open(ctx context.Context) (Transport, error)

	// Name describes the link for logs, e.g. "serial:/dev/ttyUSB0".
	Name() string
}
