// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Transport]: the byte link to the device (serial, TCP, stdio)
//   - [TransportOpener]: opens and reopens a Transport
//   - [Backend]: model validation and streaming generation
//   - [FrameForwarder]: secondary sink for accepted setup frames
//   - [EnvelopeWriter]: writes response envelopes back to the device
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with serial
// ports, net/http, NATS and zerolog.
package ports
