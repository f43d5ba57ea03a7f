package realtime

// Server event types recognized by the bridge. Everything else on the wire is
// dropped by the receive loop.
const (
	EventSpeechStarted     = "input_audio_buffer.speech_started"
	EventSpeechStopped     = "input_audio_buffer.speech_stopped"
	EventAudioDelta        = "response.audio.delta"
	EventTextDelta         = "response.output_text.delta"
	EventResponseCompleted = "response.completed"
	EventInputTranscript   = "conversation.item.input_audio_transcription.completed"
	EventError             = "error"
)

// Event is one decoded server event. Only the fields relevant to the event's
// Type are populated.
type Event struct {
	Type string

	// Audio is the decoded µ-law payload of a response.audio.delta event.
	Audio []byte

	// Text is the fragment carried by a response.output_text.delta event.
	Text string

	// Transcript is the caller utterance of an input-transcription event.
	Transcript string

	// ErrorMessage describes an error event from the peer.
	ErrorMessage string
}

// serverEvent is the wire shape of an incoming Realtime API event. The same
// envelope is reused across event types; field presence depends on Type.
type serverEvent struct {
	Type       string             `json:"type"`
	Delta      string             `json:"delta,omitempty"`
	Transcript string             `json:"transcript,omitempty"`
	Error      *serverErrorDetail `json:"error,omitempty"`
}

// serverErrorDetail is the nested error object of an error event:
// {"type":"error","error":{"type":"...","code":"...","message":"..."}}.
type serverErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ── Outgoing message types ─────────────────────────────────────────────────────

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session SessionParams `json:"session"`
}

type appendAudioMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"` // base64-encoded PCM16
}

type responseCreateMessage struct {
	Type     string         `json:"type"`
	Response responseParams `json:"response"`
}

type responseParams struct {
	Instructions string `json:"instructions,omitempty"`
}

// SessionParams configures a realtime session via session.update.
type SessionParams struct {
	Modalities              []string             `json:"modalities,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	Instructions            string               `json:"instructions,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string               `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionParams `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetectionParams `json:"turn_detection,omitempty"`
}

// TranscriptionParams enables server-side transcription of input audio.
type TranscriptionParams struct {
	Model string `json:"model"`
}

// TurnDetectionParams configures the peer's server-side VAD.
type TurnDetectionParams struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}
