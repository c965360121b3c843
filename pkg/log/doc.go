// Package log provides the logging abstraction used by llmbridge components.
//
// Components accept a Logger and never talk to a concrete logging library
// directly. A zerolog-backed implementation and a no-op implementation are
// provided:
//
//	logger := log.NewZerologAdapter()
//	quiet := log.NewNoopLogger()
//
// Fields are built with the typed helpers (String, Int, Err, ...) so the
// adapter can map them onto the underlying library without reflection.
package log
