// Package realtime implements the outbound WebSocket link to the OpenAI
// Realtime API.
//
// One Client is dialed per call. Outgoing traffic is session.update,
// input_audio_buffer.append, and response.create messages; incoming traffic
// is a single stream of typed events surfaced on the channel returned by
// [Client.Events]. Unrecognized event types are dropped in the receive loop
// so the consumer only ever sees the events it handles.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

const (
	defaultBaseURL = "wss://api.openai.com/v1/realtime"

	// eventBuf is the buffer depth of the event channel. Audio deltas arrive
	// in bursts when the model flushes a response; the buffer absorbs a burst
	// without blocking the receive loop on a momentarily busy session.
	eventBuf = 64
)

// Config holds the per-dial settings of a realtime link.
type Config struct {
	// APIKey is the bearer token sent on the dial request.
	APIKey string

	// Model is appended to the dial URL as ?model=.
	Model string

	// BaseURL overrides the production endpoint, primarily for tests.
	BaseURL string
}

// Client is a live realtime link. Write methods may be called from one
// goroutine at a time; the event channel is owned by the receive loop and
// closes when the link dies.
type Client struct {
	conn   *websocket.Conn
	events chan Event

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu     sync.Mutex
	errVal error
}

// Dial opens the WebSocket to the realtime endpoint and starts the receive
// loop. The returned client is ready for session.update immediately.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	wsURL := fmt.Sprintf("%s?model=%s", base, cfg.Model)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + cfg.APIKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: dial: %w", err)
	}

	linkCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		events: make(chan Event, eventBuf),
		ctx:    linkCtx,
		cancel: cancel,
	}

	go c.receiveLoop()

	return c, nil
}

// UpdateSession sends a session.update event with the given parameters.
func (c *Client) UpdateSession(ctx context.Context, params SessionParams) error {
	return c.writeJSON(ctx, sessionUpdateMessage{Type: "session.update", Session: params})
}

// CreateResponse asks the model to produce a response following the given
// instructions. Used once per call for the opening utterance.
func (c *Client) CreateResponse(ctx context.Context, instructions string) error {
	return c.writeJSON(ctx, responseCreateMessage{
		Type:     "response.create",
		Response: responseParams{Instructions: instructions},
	})
}

// AppendAudio appends one PCM16 16 kHz chunk to the peer's input buffer.
func (c *Client) AppendAudio(ctx context.Context, pcm []byte) error {
	return c.writeJSON(ctx, appendAudioMessage{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
}

// Events returns the stream of decoded server events. The channel closes when
// the link dies or Close is called; check Err for the cause.
func (c *Client) Events() <-chan Event { return c.events }

// Err returns the first error that terminated the receive loop, or nil for a
// clean close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errVal
}

// Close tears the link down. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close(websocket.StatusNormalClosure, "call ended")
	})
	return nil
}

func (c *Client) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("realtime: marshal: %w", err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("realtime: write: %w", err)
	}
	return nil
}

// receiveLoop reads events from the WebSocket, decodes the ones the bridge
// handles, and delivers them on c.events. It owns the channel and closes it
// on exit.
func (c *Client) receiveLoop() {
	defer close(c.events)

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() == nil {
				c.setErr(err)
			}
			return
		}

		var raw serverEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}

		evt, ok := decodeEvent(&raw)
		if !ok {
			continue
		}

		select {
		case c.events <- evt:
		case <-c.ctx.Done():
			return
		}
	}
}

// decodeEvent maps a wire event onto an Event, reporting false for types the
// bridge does not handle or payloads that fail to decode.
func decodeEvent(raw *serverEvent) (Event, bool) {
	switch raw.Type {
	case EventSpeechStarted, EventSpeechStopped, EventResponseCompleted:
		return Event{Type: raw.Type}, true

	case EventAudioDelta:
		if raw.Delta == "" {
			return Event{}, false
		}
		payload, err := base64.StdEncoding.DecodeString(raw.Delta)
		if err != nil || len(payload) == 0 {
			return Event{}, false
		}
		return Event{Type: raw.Type, Audio: payload}, true

	case EventTextDelta:
		if raw.Delta == "" {
			return Event{}, false
		}
		return Event{Type: raw.Type, Text: raw.Delta}, true

	case EventInputTranscript:
		if raw.Transcript == "" {
			return Event{}, false
		}
		return Event{Type: raw.Type, Transcript: raw.Transcript}, true

	case EventError:
		msg := "unknown error"
		if raw.Error != nil && raw.Error.Message != "" {
			msg = raw.Error.Message
		}
		return Event{Type: raw.Type, ErrorMessage: msg}, true
	}

	return Event{}, false
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errVal == nil {
		c.errVal = err
	}
}
