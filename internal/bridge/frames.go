package bridge

// Telephony frame event names as they appear on the wire.
const (
	eventConnected = "connected"
	eventStart     = "start"
	eventMedia     = "media"
	eventMark      = "mark"
	eventStop      = "stop"
)

// Custom parameter keys accepted on the start frame.
const (
	paramDirection      = "direction"
	paramCallType       = "call_type"
	paramLastSummary    = "last_summary"
	paramLastTranscript = "last_transcript"
	paramToNumber       = "to_number"
	paramFromNumber     = "from_number"
)

// telephonyFrame is the envelope of every inbound frame from the telephony
// provider. Field presence depends on Event.
type telephonyFrame struct {
	Event     string      `json:"event"`
	Start     *startFrame `json:"start,omitempty"`
	Media     *mediaFrame `json:"media,omitempty"`
	Mark      *markFrame  `json:"mark,omitempty"`
	StreamSid string      `json:"streamSid,omitempty"`
}

// startFrame carries the call identifiers and the caller metadata forwarded
// by the telephony provider as custom parameters.
type startFrame struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

// mediaFrame carries one base64 µ-law 8 kHz audio chunk.
type mediaFrame struct {
	Payload string `json:"payload"`
}

// markFrame is the provider's playback checkpoint.
type markFrame struct {
	Name string `json:"name"`
}

// outboundMediaFrame is the frame shape the bridge sends back to the
// telephony provider with agent audio.
type outboundMediaFrame struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}
