package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/director"
	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/finalize"
	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/observe"
	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/realtime"
	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/transcript"
	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/vad"
	"github.com/winmachacker-tech/atlas-command-voice-bridge/pkg/audio"
)

// finalizeTimeout bounds the summary request and call-log post after the
// telephony socket is gone. Without it an unresponsive sink would leak the
// session goroutine.
const finalizeTimeout = 45 * time.Second

// state is the session lifecycle phase.
type state int

const (
	stateInit state = iota
	stateConfiguring
	stateActive
	stateFinalizing
	stateClosed
)

// RealtimeLink is the subset of the realtime client the session drives.
// Satisfied by [realtime.Client]; faked in tests.
type RealtimeLink interface {
	UpdateSession(ctx context.Context, params realtime.SessionParams) error
	CreateResponse(ctx context.Context, instructions string) error
	AppendAudio(ctx context.Context, pcm []byte) error
	Events() <-chan realtime.Event
	Close() error
}

// DialFunc opens the realtime link for a call. Injected so tests can supply a
// fake link.
type DialFunc func(ctx context.Context) (RealtimeLink, error)

// SendFunc delivers one outbound frame to the telephony peer.
type SendFunc func(ctx context.Context, frame []byte) error

// SessionConfig is the per-process wiring shared by all sessions plus the
// per-connection send path.
type SessionConfig struct {
	ConnectionID string

	BasePrompt         string
	Voice              string
	TranscriptionModel string
	SummaryModel       string

	VADThreshold int
	VADHangover  time.Duration

	Dial      DialFunc
	Send      SendFunc
	Finalizer *finalize.Finalizer
	Log       *slog.Logger
	Metrics   *observe.Metrics
}

// Session is the per-call orchestrator. All mutable state is owned by the
// goroutine running [Session.Run]; nothing here needs a lock.
type Session struct {
	cfg SessionConfig
	log *slog.Logger

	state state

	streamID      string
	callID        string
	correlationID string
	call          director.CallContext
	toNumber      string
	fromNumber    string

	rt       RealtimeLink
	rtEvents <-chan realtime.Event
	ready    bool

	vad        *vad.Detector
	transcript transcript.Builder

	startedAt time.Time
	finalized bool

	// now is swappable in tests.
	now func() time.Time
}

// NewSession creates a session for one accepted telephony connection.
func NewSession(cfg SessionConfig) *Session {
	return &Session{
		cfg: cfg,
		log: cfg.Log.With("connection_id", cfg.ConnectionID),
		vad: vad.New(cfg.VADThreshold, cfg.VADHangover),
		now: time.Now,
	}
}

// Run drives the session until the telephony peer stops, the frame channel
// closes, or ctx is cancelled. It always finalizes exactly once on the way
// out, best-effort on abnormal termination.
func (s *Session) Run(ctx context.Context, frames <-chan telephonyFrame) {
	s.startedAt = s.now()
	s.cfg.Metrics.ActiveCalls.Add(ctx, 1)
	defer s.cfg.Metrics.ActiveCalls.Add(context.WithoutCancel(ctx), -1)
	defer s.finalizeAndClose(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("session cancelled", "correlation_id", s.correlationID)
			return

		case f, ok := <-frames:
			if !ok {
				s.log.Info("telephony peer gone", "correlation_id", s.correlationID)
				return
			}
			if done := s.handleTelephonyFrame(ctx, f); done {
				return
			}

		case evt, ok := <-s.rtEvents:
			if !ok {
				// The realtime link died. The session drains telephony
				// traffic until stop; audio is dropped from here on.
				s.log.Warn("realtime link closed mid-call", "correlation_id", s.correlationID)
				s.rtEvents = nil
				s.ready = false
				continue
			}
			s.handleRealtimeEvent(ctx, evt)
		}
	}
}

// handleTelephonyFrame processes one inbound frame. It reports true when the
// session is done.
func (s *Session) handleTelephonyFrame(ctx context.Context, f telephonyFrame) bool {
	switch f.Event {
	case eventStart:
		s.handleStart(ctx, f.Start)

	case eventMedia:
		s.handleMedia(ctx, f.Media)

	case eventMark:
		if f.Mark != nil {
			s.log.Debug("mark", "name", f.Mark.Name, "correlation_id", s.correlationID)
		}

	case eventStop:
		s.log.Info("telephony stop", "correlation_id", s.correlationID)
		return true

	case eventConnected:
		// Handshake preamble, nothing to do.

	default:
		s.log.Debug("unknown telephony event", "event", f.Event)
	}
	return false
}

// handleStart captures call metadata, dials the realtime peer, and configures
// the session. Message ordering is enforced here by doing everything
// synchronously on the session goroutine: session.update, then
// response.create, and only then is ready set so audio can flow.
func (s *Session) handleStart(ctx context.Context, start *startFrame) {
	if start == nil {
		s.log.Warn("start frame without start payload")
		return
	}
	if s.state != stateInit {
		s.log.Warn("duplicate start frame ignored", "correlation_id", s.correlationID)
		return
	}
	s.state = stateConfiguring

	s.streamID = start.StreamSid
	s.callID = start.CallSid
	s.correlationID = firstNonEmpty(s.callID, s.streamID, s.cfg.ConnectionID)

	params := start.CustomParameters
	s.call = director.CallContext{
		Direction:      director.ParseDirection(params[paramDirection]),
		CallType:       director.ParseCallType(params[paramCallType]),
		LastSummary:    params[paramLastSummary],
		LastTranscript: params[paramLastTranscript],
	}
	s.toNumber = params[paramToNumber]
	s.fromNumber = params[paramFromNumber]

	log := s.log.With("correlation_id", s.correlationID)
	log.Info("call started",
		"direction", s.call.Direction,
		"call_type", s.call.CallType)

	rt, err := s.cfg.Dial(ctx)
	if err != nil {
		log.Error("realtime dial failed, draining call without agent", "error", err)
		return
	}
	s.rt = rt
	s.rtEvents = rt.Events()

	instructions := director.Instructions(s.cfg.BasePrompt, s.call)
	if err := rt.UpdateSession(ctx, director.SessionParams(s.cfg.Voice, s.cfg.TranscriptionModel, instructions)); err != nil {
		log.Error("session.update failed", "error", err)
		return
	}
	if err := rt.CreateResponse(ctx, director.OpeningDirective(s.call)); err != nil {
		log.Error("response.create failed", "error", err)
		return
	}

	s.ready = true
	s.state = stateActive
}

// handleMedia decodes one inbound audio chunk, feeds the VAD, and forwards
// the upsampled PCM to the realtime peer.
func (s *Session) handleMedia(ctx context.Context, media *mediaFrame) {
	if media == nil {
		return
	}
	s.cfg.Metrics.TelephonyFrames.Add(ctx, 1)

	if !s.ready {
		s.cfg.Metrics.RecordDroppedFrame(ctx, observe.DropNotReady)
		return
	}

	ulaw, err := base64.StdEncoding.DecodeString(media.Payload)
	if err != nil || len(ulaw) == 0 {
		s.log.Debug("undecodable media payload", "correlation_id", s.correlationID)
		return
	}

	pcm8k := audio.DecodeMuLaw(ulaw)
	s.vad.ObserveFrame(pcm8k, s.now())

	if err := s.rt.AppendAudio(ctx, audio.Upsample8kTo16k(pcm8k)); err != nil {
		s.log.Warn("audio append failed", "error", err, "correlation_id", s.correlationID)
		s.cfg.Metrics.RecordDroppedFrame(ctx, observe.DropLinkClosed)
	}
}

// handleRealtimeEvent processes one event from the realtime peer.
func (s *Session) handleRealtimeEvent(ctx context.Context, evt realtime.Event) {
	switch evt.Type {
	case realtime.EventSpeechStarted:
		s.vad.PeerSpeechStarted(s.now())

	case realtime.EventSpeechStopped:
		s.vad.PeerSpeechStopped()

	case realtime.EventAudioDelta:
		s.forwardAgentAudio(ctx, evt.Audio)

	case realtime.EventTextDelta:
		s.transcript.AppendAgentDelta(evt.Text)

	case realtime.EventResponseCompleted:
		s.transcript.CommitAgent()

	case realtime.EventInputTranscript:
		s.transcript.AppendCaller(evt.Transcript)

	case realtime.EventError:
		s.log.Warn("realtime peer error", "message", evt.ErrorMessage, "correlation_id", s.correlationID)
	}
}

// forwardAgentAudio sends one agent audio chunk to the telephony peer unless
// the human is speaking. Dropped chunks are gone for good; the model's
// server-side VAD will cut the response anyway.
func (s *Session) forwardAgentAudio(ctx context.Context, ulaw []byte) {
	if s.vad.Speaking() {
		s.cfg.Metrics.RecordDroppedFrame(ctx, observe.DropBargeIn)
		return
	}

	frame, err := json.Marshal(outboundMediaFrame{
		Event:     eventMedia,
		StreamSid: s.streamID,
		Media:     mediaPayload{Payload: base64.StdEncoding.EncodeToString(ulaw)},
	})
	if err != nil {
		s.log.Error("marshal outbound media", "error", err)
		return
	}
	if err := s.cfg.Send(ctx, frame); err != nil {
		s.log.Warn("telephony send failed", "error", err, "correlation_id", s.correlationID)
		s.cfg.Metrics.RecordDroppedFrame(ctx, observe.DropLinkClosed)
		return
	}
	s.cfg.Metrics.AgentAudioFrames.Add(ctx, 1)
}

// finalizeAndClose runs the end-of-call pipeline exactly once, then closes
// the realtime link. The pipeline runs on a detached context so an abnormal
// telephony close still finalizes, bounded by finalizeTimeout.
func (s *Session) finalizeAndClose(ctx context.Context) {
	if s.finalized {
		return
	}
	s.finalized = true
	s.state = stateFinalizing

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	ended := s.now()
	s.cfg.Finalizer.Finalize(fctx, finalize.CallRecord{
		CallID:     s.callID,
		Direction:  string(s.call.Direction),
		ToNumber:   s.toNumber,
		FromNumber: s.fromNumber,
		Transcript: s.transcript.Final(),
		StartedAt:  s.startedAt,
		EndedAt:    ended,
		Model:      s.cfg.SummaryModel,
	})

	if s.rt != nil {
		_ = s.rt.Close()
	}

	s.cfg.Metrics.CallDuration.Record(fctx, ended.Sub(s.startedAt).Seconds())
	s.state = stateClosed
	s.log.Info("session closed", "correlation_id", s.correlationID)
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
