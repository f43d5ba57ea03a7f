// Package director builds the two messages that launch a realtime session:
// the session configuration and the opening-turn directive.
//
// Both are derived from the call metadata handed over by the telephony start
// event. The configuration must reach the peer before the directive, and both
// before any audio; the bridge session enforces that ordering, this package
// only produces the content.
package director

import (
	"fmt"
	"strings"

	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/realtime"
)

// Direction is who initiated the call.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// CallType distinguishes a first contact from a follow-up.
type CallType string

const (
	CallFirst    CallType = "FIRST"
	CallFollowup CallType = "FOLLOWUP"
)

// ParseDirection maps the telephony custom parameter onto a Direction.
// Unknown or empty values default to outbound.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(DirectionInbound)) {
		return DirectionInbound
	}
	return DirectionOutbound
}

// ParseCallType maps the telephony custom parameter onto a CallType.
// Unknown or empty values default to a first call.
func ParseCallType(s string) CallType {
	if strings.EqualFold(s, string(CallFollowup)) {
		return CallFollowup
	}
	return CallFirst
}

// CallContext is the metadata the configurator works from.
type CallContext struct {
	Direction      Direction
	CallType       CallType
	LastSummary    string
	LastTranscript string
}

// missingArtifact stands in for a prior-call artifact that was not supplied
// on a follow-up call.
const missingArtifact = "(not available)"

const firstCallNote = `This is the first conversation with this caller. You have no prior memory of them; treat them as first-time and do not refer to earlier calls.`

const followupTemplate = `You have spoken with this caller before. Do not repeat the baseline qualification questions from the first call; acknowledge the earlier conversation and build on it.

Summary of the previous call:
%s

Excerpt of the previous call transcript:
%s`

// Instructions composes the session instructions: the externally supplied
// base prompt followed by the first-call or follow-up context block.
func Instructions(basePrompt string, call CallContext) string {
	var block string
	switch call.CallType {
	case CallFollowup:
		summary := call.LastSummary
		if summary == "" {
			summary = missingArtifact
		}
		prior := call.LastTranscript
		if prior == "" {
			prior = missingArtifact
		}
		block = fmt.Sprintf(followupTemplate, summary, prior)
	default:
		block = firstCallNote
	}
	return basePrompt + "\n\n" + block
}

// Opening directives, keyed by (direction, call type). Short by design: they
// steer the first utterance only, everything else lives in the instructions.
var openingDirectives = map[Direction]map[CallType]string{
	DirectionOutbound: {
		CallFirst:    `Start the call: greet the person you are calling, introduce yourself as Dipsy, and briefly say why you are calling.`,
		CallFollowup: `Start the call: greet the person, remind them you are Dipsy and that you spoke before, and pick up where the last call left off.`,
	},
	DirectionInbound: {
		CallFirst:    `Answer the incoming call: welcome the caller, introduce yourself as Dipsy, and ask how you can help.`,
		CallFollowup: `Answer the incoming call: welcome the caller back, acknowledge your earlier conversation, and ask what has changed since.`,
	},
}

// OpeningDirective returns the first-turn instruction for the call.
func OpeningDirective(call CallContext) string {
	byType, ok := openingDirectives[call.Direction]
	if !ok {
		byType = openingDirectives[DirectionOutbound]
	}
	if d, ok := byType[call.CallType]; ok {
		return d
	}
	return byType[CallFirst]
}

// SessionParams assembles the session.update payload for a call: PCM16 in at
// 16 kHz, µ-law out at 8 kHz, input transcription, server VAD, and the
// composed instructions.
func SessionParams(voice, transcriptionModel, instructions string) realtime.SessionParams {
	return realtime.SessionParams{
		Modalities:              []string{"audio", "text"},
		Voice:                   voice,
		Instructions:            instructions,
		InputAudioFormat:        "pcm16",
		OutputAudioFormat:       "g711_ulaw",
		InputAudioTranscription: &realtime.TranscriptionParams{Model: transcriptionModel},
		TurnDetection: &realtime.TurnDetectionParams{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 300,
		},
	}
}
