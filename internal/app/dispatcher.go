package app

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/bft-labs/llmbridge/internal/domain"
	"github.com/bft-labs/llmbridge/internal/metrics"
	"github.com/bft-labs/llmbridge/internal/ports"
	"github.com/bft-labs/llmbridge/pkg/stream"
)

// Routing constants of the device protocol.
const (
	WorkIDSys = "sys"
	WorkIDLLM = "llm"

	ActionPing      = "ping"
	ActionReset     = "reset"
	ActionReboot    = "reboot"
	ActionVersion   = "version"
	ActionSetup     = "setup"
	ActionInference = "inference"

	InferenceRequestID = "llm_inference"

	resetAckRequestID  = "sys_reset"
	resetDoneRequestID = "0"
)

// DefaultResetDelay separates the two sys.reset replies.
const DefaultResetDelay = 100 * time.Millisecond

// DispatcherConfig contains configuration for the dispatcher.
type DispatcherConfig struct {
	ResetDelay   time.Duration
	DefaultModel string
	Stream       stream.Config

	// Now is the clock used for work ids. Defaults to time.Now.
	Now func() time.Time
}

// Dispatcher routes complete frames and writes the replies. It is driven
// from a single goroutine and blocks for the whole of each backend call.
type Dispatcher struct {
	config    DispatcherConfig
	session   *domain.Session
	backend   ports.Backend
	out       ports.EnvelopeWriter
	forwarder ports.FrameForwarder
	decoder   *stream.Decoder
	logger    ports.Logger
}

// NewDispatcher creates a dispatcher. forwarder may be nil.
func NewDispatcher(
	config DispatcherConfig,
	session *domain.Session,
	backend ports.Backend,
	out ports.EnvelopeWriter,
	forwarder ports.FrameForwarder,
	logger ports.Logger,
) *Dispatcher {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.ResetDelay < 0 {
		config.ResetDelay = 0
	}
	decoder := stream.NewDecoder(config.Stream,
		stream.WithLogger(logger),
		stream.WithTruncateHook(func(int) { metrics.StreamTruncations.Inc() }),
	)
	return &Dispatcher{
		config:    config,
		session:   session,
		backend:   backend,
		out:       out,
		forwarder: forwarder,
		decoder:   decoder,
		logger:    logger,
	}
}

// SetDefaultModel changes the model used when no setup has selected one.
func (d *Dispatcher) SetDefaultModel(model string) {
	d.config.DefaultModel = model
}

// Dispatch handles one frame. Protocol errors become error envelopes;
// nothing is returned to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, frame domain.Frame) {
	workID, okWork := frame.String("work_id")
	action, okAction := frame.String("action")
	if !okWork || !okAction {
		d.logger.Debug("frame ignored: missing work_id or action", ports.String("frame", frame.Raw))
		return
	}

	metrics.FramesDispatched.WithLabelValues(workIDLabel(workID), actionLabel(action)).Inc()

	switch {
	case workID == WorkIDSys:
		d.handleSys(ctx, frame, action)
	case workID == WorkIDLLM && action == ActionSetup:
		d.handleSetup(ctx, frame)
	case action == ActionInference:
		d.handleInference(ctx, frame, workID)
	default:
		d.logger.Debug("frame ignored: unhandled action",
			ports.String("work_id", workID),
			ports.String("action", action),
		)
	}
}

func (d *Dispatcher) handleSys(ctx context.Context, frame domain.Frame, action string) {
	switch action {
	case ActionPing:
		d.send(domain.Success(frame.RequestID(), WorkIDSys, domain.ObjectNone))

	case ActionReset:
		d.send(domain.Success(resetAckRequestID, WorkIDSys, domain.ObjectNone))
		d.session.Reset()
		if d.config.ResetDelay > 0 {
			timer := time.NewTimer(d.config.ResetDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		d.send(domain.Success(resetDoneRequestID, WorkIDSys, domain.ObjectNone))
		d.logger.Info("session reset")

	case ActionReboot, ActionVersion:
		d.logger.Info("sys request acknowledged", ports.String("action", action))

	default:
		d.logger.Warn("unknown sys action", ports.String("action", action))
	}
}

func (d *Dispatcher) handleSetup(ctx context.Context, frame domain.Frame) {
	requestID := frame.RequestID()

	model := dataString(frame, "model")
	if model == "" {
		d.send(domain.Failure(requestID, WorkIDLLM, domain.ObjectSetup, domain.CodeFailure, "Model name not specified"))
		return
	}

	switch status := d.backend.CheckModel(ctx, model); status {
	case domain.ModelOK:
	case domain.ModelNotFound:
		d.logger.Warn("model not found", ports.String("model", model))
		d.send(domain.Failure(requestID, WorkIDLLM, domain.ObjectSetup, domain.CodeModelNotFound, "Model not found"))
		return
	default:
		d.logger.Warn("model check failed", ports.String("model", model), ports.String("status", status.String()))
		d.send(domain.Failure(requestID, WorkIDLLM, domain.ObjectSetup, domain.CodeFailure, "Model check failed"))
		return
	}

	workID := d.session.Select(model, d.config.Now())
	d.logger.Info("model selected", ports.String("model", model), ports.String("work_id", workID))
	d.send(domain.Success(requestID, workID, domain.ObjectSetup))

	if d.forwarder != nil {
		if err := d.forwarder.Forward(ctx, frame.Raw); err != nil {
			metrics.ForwardErrors.Inc()
			d.logger.Warn("forward failed", ports.Err(err))
		}
	}
}

func (d *Dispatcher) handleInference(ctx context.Context, frame domain.Frame, workID string) {
	requestID := frame.RequestID()
	if requestID != InferenceRequestID {
		d.logger.Warn("inference ignored: unexpected request_id", ports.String("request_id", requestID))
		return
	}

	object, _ := frame.String("object")
	if object != domain.ObjectStream {
		d.send(domain.Failure(requestID, workID, object, domain.CodeNotSupported, "Non-streaming inference not supported"))
		return
	}

	prompt := dataString(frame, "delta")
	if prompt == "" {
		d.send(domain.Failure(requestID, workID, domain.ObjectStream, domain.CodeFailure, "Prompt not specified"))
		return
	}

	model := d.session.ModelName
	if model == "" {
		model = d.config.DefaultModel
	}
	if model == "" {
		d.send(domain.Failure(requestID, workID, domain.ObjectStream, domain.CodeFailure, "Model not selected"))
		return
	}

	if err := d.runStream(ctx, requestID, model, prompt); err != nil {
		metrics.StreamSessions.WithLabelValues(model, streamResult(err)).Inc()
		d.logger.Error("inference failed", ports.String("model", model), ports.Err(err))
		if ctx.Err() != nil {
			return
		}
		d.send(domain.Failure(requestID, d.session.EnsureWorkID(d.config.Now()), domain.ObjectStream, domain.CodeFailure, "Inference failed"))
		return
	}
	metrics.StreamSessions.WithLabelValues(model, "ok").Inc()
}

// runStream relays one generation as envelopes, in decode order, with the
// finish envelope last.
func (d *Dispatcher) runStream(ctx context.Context, requestID, model, prompt string) error {
	body, err := d.backend.Generate(ctx, model, prompt)
	if err != nil {
		return err
	}
	defer body.Close()

	var (
		workID string
		index  int
	)
	start := d.config.Now()
	err = d.decoder.Decode(ctx, body, func(ev stream.Event) error {
		if workID == "" {
			workID = d.session.EnsureWorkID(d.config.Now())
		}
		env := domain.ResponseEnvelope{
			RequestID: requestID,
			WorkID:    workID,
			Object:    domain.ObjectStream,
			InferenceData: domain.InferenceData{
				Delta:  ev.Text,
				Index:  index,
				Finish: ev.Final,
			},
		}
		if !ev.Final {
			index++
			metrics.StreamDeltas.Inc()
		}
		return d.send(env)
	})
	if err != nil {
		return err
	}
	d.logger.Info("inference complete",
		ports.String("model", model),
		ports.Int("deltas", index),
		ports.Duration("duration", d.config.Now().Sub(start)),
	)
	return nil
}

func (d *Dispatcher) send(env domain.ResponseEnvelope) error {
	if err := d.out.WriteEnvelope(env); err != nil {
		d.logger.Error("envelope write failed",
			ports.String("request_id", env.RequestID),
			ports.Err(err),
		)
		return err
	}
	metrics.EnvelopesSent.WithLabelValues(objectLabel(env.Object), strconv.Itoa(env.Error.Code)).Inc()
	d.logger.Debug("envelope sent",
		ports.String("request_id", env.RequestID),
		ports.String("work_id", env.WorkID),
		ports.String("object", env.Object),
		ports.Int("code", env.Error.Code),
	)
	return nil
}

// dataString reads a string either from data.<key> or from a bare string
// data member.
func dataString(frame domain.Frame, key string) string {
	raw, ok := frame.Field("data")
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if err := json.Unmarshal(obj[key], &s); err != nil {
		return ""
	}
	return s
}

func workIDLabel(workID string) string {
	switch workID {
	case WorkIDSys, WorkIDLLM:
		return workID
	default:
		return "session"
	}
}

// actionLabel and objectLabel keep device-supplied strings out of metric
// labels.
func actionLabel(action string) string {
	switch action {
	case ActionPing, ActionReset, ActionReboot, ActionVersion, ActionSetup, ActionInference:
		return action
	default:
		return "other"
	}
}

func objectLabel(object string) string {
	switch object {
	case domain.ObjectNone, domain.ObjectSetup, domain.ObjectStream:
		return object
	default:
		return "other"
	}
}

func streamResult(err error) string {
	var upstream *stream.UpstreamError
	switch {
	case errors.Is(err, stream.ErrIdleTimeout):
		return "idle_timeout"
	case errors.Is(err, stream.ErrIncomplete):
		return "incomplete"
	case errors.As(err, &upstream):
		return "upstream_error"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
