// Package domain contains the core types of the bridge: inbound frames,
// outbound response envelopes, and the correlation session shared by the
// dispatcher and the inference streamer.
//
// # Entities
//
//   - [Frame]: one complete JSON object reconstructed from the transport
//   - [ResponseEnvelope]: the reply object written back to the transport
//   - [Session]: the active work id and selected model
//
// The package has no dependencies on transports, HTTP or logging.
package domain
