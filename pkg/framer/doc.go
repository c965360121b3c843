// Package framer reconstructs complete JSON objects from an unbounded byte
// stream that carries no length prefix or checksum.
//
// Message boundaries are derived from brace balance alone: a frame ends
// when the outermost '{' is closed outside of any string literal. The
// accumulation buffer has a fixed capacity; every failure mode (timeout,
// overflow, unbalanced input, malformed JSON) is recovered by resetting
// the reader so the next well-formed object parses cleanly.
//
// # Usage
//
//	r := framer.New(framer.DefaultConfig())
//	for {
//	    r.Tick()
//	    out, n, ok := r.FeedBytes(pending)
//	    pending = pending[n:]
//	    if ok && out.Kind == framer.KindComplete {
//	        handle(out.Text)
//	    }
//	}
//
// A Reader is not safe for concurrent use.
package framer
