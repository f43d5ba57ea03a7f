package finalize

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/observe"
)

// CallRecord carries everything the finalizer needs from a finished call.
type CallRecord struct {
	// CallID is the telephony provider's call identifier. Finalization is
	// skipped without one: the sink keys records on it.
	CallID string

	// Direction is "INBOUND" or "OUTBOUND".
	Direction string

	// ToNumber and FromNumber are the dialed and originating numbers, when
	// the telephony start frame supplied them.
	ToNumber   string
	FromNumber string

	// Transcript is the serialized conversation, already trimmed.
	Transcript string

	// StartedAt and EndedAt bound the call.
	StartedAt time.Time
	EndedAt   time.Time

	// Model is the summarization model identifier recorded with the log.
	Model string
}

// Sink persists a finished call record. *CallLogClient is the production
// implementation.
type Sink interface {
	Post(ctx context.Context, rec CallRecord, summary *string) error
}

// Finalizer runs the end-of-call pipeline: summary first, then the call-log
// post. Callers guarantee at-most-once invocation per call (the session's
// finalized flag); Finalizer itself is stateless and safe for concurrent use
// across calls.
type Finalizer struct {
	summarizer Summarizer
	sink       Sink
	log        *slog.Logger
	metrics    *observe.Metrics
}

// New constructs a [Finalizer]. log and metrics must not be nil.
func New(summarizer Summarizer, sink Sink, log *slog.Logger, metrics *observe.Metrics) *Finalizer {
	return &Finalizer{
		summarizer: summarizer,
		sink:       sink,
		log:        log,
		metrics:    metrics,
	}
}

// Finalize runs the pipeline for rec. It returns only context errors;
// pipeline failures are logged and counted because the call is already over.
//
// Preconditions: a missing call id or an empty transcript skips the pipeline
// entirely (nothing useful to persist). A transcript shorter than the summary
// threshold skips only the summary step.
func (f *Finalizer) Finalize(ctx context.Context, rec CallRecord) {
	log := f.log.With("call_id", rec.CallID)

	transcript := strings.TrimSpace(rec.Transcript)
	if rec.CallID == "" || transcript == "" {
		log.Info("skipping finalization",
			"have_call_id", rec.CallID != "",
			"transcript_len", len(transcript))
		f.metrics.RecordFinalization(ctx, "skipped")
		return
	}
	rec.Transcript = transcript
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now()
	}

	var summary *string
	if len(transcript) >= minSummaryTranscript {
		begin := time.Now()
		text, err := f.summarizer.Summarize(ctx, transcript)
		f.metrics.SummaryDuration.Record(ctx, time.Since(begin).Seconds())
		if err != nil {
			log.Warn("summary failed, posting null summary", "error", err)
		} else {
			summary = &text
		}
	} else {
		log.Debug("transcript below summary threshold",
			"transcript_len", len(transcript))
	}

	if err := f.sink.Post(ctx, rec, summary); err != nil {
		log.Error("call-log post failed", "error", err)
		f.metrics.RecordFinalization(ctx, "failed")
		return
	}

	log.Info("call finalized",
		"summarized", summary != nil,
		"transcript_len", len(transcript))
	f.metrics.RecordFinalization(ctx, "completed")
}
