// Package stream decodes a newline-delimited JSON response body, such as
// the body of a streaming /api/generate call, into inference delta events.
//
// Each line is one self-contained record. The decoder keeps at most
// MaxLineBuffer bytes of an unterminated line; when a line grows past that
// bound only the newest RetainBytes are kept. A body that stays silent for
// IdleTimeout fails the whole decode with ErrIdleTimeout.
package stream
