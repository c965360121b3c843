// Package bridge embeds the serial-to-LLM bridge in another program.
//
// A Bridge owns one device link. Complete JSON frames read from the link
// are routed to a local reply (ping, reset), to model selection against
// the backend, or to a streaming generation whose deltas are written back
// as envelopes while the backend is still producing them.
//
// # Usage
//
//	cfg := bridge.DefaultConfig()
//	cfg.Device = "/dev/ttyACM0"
//	cfg.DefaultModel = "llama3"
//
//	b, err := bridge.New(cfg, bridge.WithLogger(log.NewZerologAdapter()))
//	if err != nil {
//	    return err
//	}
//	if err := b.Start(ctx); err != nil {
//	    return err
//	}
//	defer b.Stop()
//
// # Lifecycle
//
// New returns a bridge in StateStopped. Start moves it through
// StateStarting to StateRunning; Stop cancels the loop and waits for an
// open streaming session to unwind. A loop that fails ends in StateFailed
// and may be started again. When the transport input ends for good (stdin
// at EOF), Wait returns nil and the caller should Stop.
package bridge
