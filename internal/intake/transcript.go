package intake

import (
	"sort"
	"strings"
	"time"
)

// Speaker identifies who authored a turn.
type Speaker string

const (
	SpeakerPatient   Speaker = "patient"
	SpeakerAssistant Speaker = "assistant"
)

// Valid reports whether s is one of the known speakers.
func (s Speaker) Valid() bool {
	return s == SpeakerPatient || s == SpeakerAssistant
}

// Turn is a single utterance in an intake conversation.
type Turn struct {
	Seq       int64     `json:"seq"`       // Insertion sequence, breaks timestamp ties
	Speaker   Speaker   `json:"speaker"`   // "patient" or "assistant"
	Text      string    `json:"text"`      // Utterance text as spoken
	Timestamp time.Time `json:"timestamp"` // When the utterance was recorded
}

// Transcript is an ordered, read-only sequence of turns.
type Transcript []Turn

// NewTranscript copies turns and orders them by timestamp, then insertion sequence.
func NewTranscript(turns []Turn) Transcript {
	t := make(Transcript, len(turns))
	copy(t, turns)
	sort.SliceStable(t, func(i, j int) bool {
		if !t[i].Timestamp.Equal(t[j].Timestamp) {
			return t[i].Timestamp.Before(t[j].Timestamp)
		}
		return t[i].Seq < t[j].Seq
	})
	return t
}

// PatientTurns returns the patient-authored turns in order.
func (t Transcript) PatientTurns() []Turn {
	var out []Turn
	for _, turn := range t {
		if turn.Speaker == SpeakerPatient {
			out = append(out, turn)
		}
	}
	return out
}

// Text renders the transcript as "speaker: text" lines.
// Any speaker other than assistant is rendered as patient.
func (t Transcript) Text() string {
	lines := make([]string, 0, len(t))
	for _, turn := range t {
		role := SpeakerPatient
		if turn.Speaker == SpeakerAssistant {
			role = SpeakerAssistant
		}
		lines = append(lines, string(role)+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}
