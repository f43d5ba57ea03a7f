// Package transcript assembles the bilingual call transcript.
//
// Caller lines arrive whole (the realtime peer emits one transcription event
// per utterance); agent text arrives as streamed deltas that are buffered and
// committed only when the peer signals response completion. Partial agent
// text therefore never appears in the transcript, which matters because a
// barge-in can abort a response mid-sentence.
//
// A Builder is owned by its call session and is not safe for concurrent use.
package transcript

import "strings"

// Speaker labels as they appear in the serialized transcript.
const (
	callerSpeaker = "Caller"
	agentSpeaker  = "Dipsy"
)

// Builder accumulates transcript lines in arrival order.
type Builder struct {
	text     strings.Builder
	agentBuf strings.Builder
}

// AppendCaller appends a caller line. Empty or whitespace-only text is
// discarded.
func (b *Builder) AppendCaller(text string) {
	b.appendLine(callerSpeaker, text)
}

// AppendAgentDelta buffers a streamed agent text fragment. Nothing is
// committed to the transcript until CommitAgent is called.
func (b *Builder) AppendAgentDelta(delta string) {
	b.agentBuf.WriteString(delta)
}

// CommitAgent flushes the buffered agent text as one agent line and resets
// the buffer. Committing an empty buffer is a no-op, so a late
// response-completed event after a flush does no harm.
func (b *Builder) CommitAgent() {
	text := b.agentBuf.String()
	b.agentBuf.Reset()
	b.appendLine(agentSpeaker, text)
}

func (b *Builder) appendLine(speaker, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.text.WriteString("\n")
	b.text.WriteString(speaker)
	b.text.WriteString(": ")
	b.text.WriteString(text)
	b.text.WriteString("\n")
}

// String returns the raw accumulated transcript, committed lines only.
func (b *Builder) String() string { return b.text.String() }

// Final returns the transcript trimmed of leading and trailing whitespace,
// the form transmitted to the call-log sink.
func (b *Builder) Final() string { return strings.TrimSpace(b.text.String()) }

// Empty reports whether no line has been committed yet.
func (b *Builder) Empty() bool { return b.Final() == "" }
