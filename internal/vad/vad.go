// Package vad maintains the human-speaking predicate for a single call.
//
// Two sources feed the detector: a cheap per-frame energy estimate computed
// locally on the 8 kHz telephony PCM, and the realtime peer's own
// speech-started / speech-stopped events. Fusing both closes the gap between
// the human starting to talk and the peer committing a speech-started event,
// which is the window that matters for the barge-in gate.
//
// A Detector is owned by its call session and mutated only from the session
// goroutine; it is not safe for concurrent use.
package vad

import (
	"time"

	"github.com/winmachacker-tech/atlas-command-voice-bridge/pkg/audio"
)

const (
	// DefaultEnergyThreshold is the mean-absolute-sample level above which a
	// frame counts as speech.
	DefaultEnergyThreshold = 500

	// DefaultHangover is how long the detector keeps reporting speech after
	// the last frame that crossed the energy threshold.
	DefaultHangover = 600 * time.Millisecond
)

// Detector fuses local frame energy with peer speech events.
type Detector struct {
	threshold int
	hangover  time.Duration

	speaking   bool
	lastSpeech time.Time
}

// New creates a Detector. Non-positive threshold or hangover fall back to the
// package defaults.
func New(threshold int, hangover time.Duration) *Detector {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	if hangover <= 0 {
		hangover = DefaultHangover
	}
	return &Detector{threshold: threshold, hangover: hangover}
}

// ObserveFrame updates the detector with one 8 kHz PCM16 telephony frame.
// A frame above the energy threshold marks the human as speaking and stamps
// the timestamp; a quiet frame clears the flag once the hangover elapses.
func (d *Detector) ObserveFrame(pcm []byte, now time.Time) {
	if audio.MeanAbsSample(pcm) > d.threshold {
		d.speaking = true
		d.lastSpeech = now
		return
	}
	if d.speaking && now.Sub(d.lastSpeech) > d.hangover {
		d.speaking = false
	}
}

// PeerSpeechStarted records a speech-started event from the realtime peer.
func (d *Detector) PeerSpeechStarted(now time.Time) {
	d.speaking = true
	d.lastSpeech = now
}

// PeerSpeechStopped records a speech-stopped event from the realtime peer.
// The peer's end-of-speech decision is authoritative: the flag clears
// immediately, without waiting for the hangover.
func (d *Detector) PeerSpeechStopped() {
	d.speaking = false
}

// Speaking reports whether the human is currently speaking.
func (d *Detector) Speaking() bool { return d.speaking }

// LastSpeech returns the time of the most recent speech evidence and whether
// any speech has been observed at all.
func (d *Detector) LastSpeech() (time.Time, bool) {
	return d.lastSpeech, !d.lastSpeech.IsZero()
}
