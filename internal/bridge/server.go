package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/finalize"
	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/observe"
)

// frameBuf is the inbound frame channel depth. Telephony media arrives every
// 20 ms; a slow session loop past this depth means the call is unsalvageable
// and frames are dropped rather than queued.
const frameBuf = 16

// HandlerConfig is the process-wide wiring for the telephony endpoint.
type HandlerConfig struct {
	BasePrompt         string
	Voice              string
	TranscriptionModel string
	SummaryModel       string

	VADThreshold int
	VADHangover  time.Duration

	Dial      DialFunc
	Finalizer *finalize.Finalizer
	Log       *slog.Logger
	Metrics   *observe.Metrics
}

// Handler accepts telephony media-stream WebSocket connections and runs one
// [Session] per connection.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler creates the telephony WebSocket handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// ServeHTTP upgrades the connection and runs the session to completion. The
// handler goroutine is the session goroutine; a separate reader goroutine
// feeds the frame channel and is torn down with the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.cfg.Log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	connectionID := uuid.NewString()
	log := h.cfg.Log.With("connection_id", connectionID)
	log.Info("telephony connection accepted", "remote", r.RemoteAddr)

	ctx := r.Context()
	frames := make(chan telephonyFrame, frameBuf)

	readCtx, stopRead := context.WithCancel(ctx)
	defer stopRead()
	go h.readLoop(readCtx, conn, frames, log)

	session := NewSession(SessionConfig{
		ConnectionID:       connectionID,
		BasePrompt:         h.cfg.BasePrompt,
		Voice:              h.cfg.Voice,
		TranscriptionModel: h.cfg.TranscriptionModel,
		SummaryModel:       h.cfg.SummaryModel,
		VADThreshold:       h.cfg.VADThreshold,
		VADHangover:        h.cfg.VADHangover,
		Dial:               h.cfg.Dial,
		Send: func(ctx context.Context, frame []byte) error {
			return conn.Write(ctx, websocket.MessageText, frame)
		},
		Finalizer: h.cfg.Finalizer,
		Log:       h.cfg.Log,
		Metrics:   h.cfg.Metrics,
	})

	session.Run(ctx, frames)

	conn.Close(websocket.StatusNormalClosure, "call ended")
}

// readLoop decodes inbound frames onto the channel. Frames are dropped, not
// queued, when the session loop falls behind. The channel closes when the
// peer disconnects so the session sees an abnormal termination.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, frames chan<- telephonyFrame, log *slog.Logger) {
	defer close(frames)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Debug("telephony read ended", "error", err)
			}
			return
		}

		var f telephonyFrame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Debug("undecodable telephony frame", "error", err)
			continue
		}

		select {
		case frames <- f:
		default:
			h.cfg.Metrics.RecordDroppedFrame(ctx, observe.DropSessionBusy)
		}
	}
}
