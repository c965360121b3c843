// Package forward implements the secondary sinks that receive the raw text
// of accepted setup frames.
package forward
