package rewrite

import "fmt"

// Tone selects the voice of the generated variations.
type Tone string

const (
	// ToneProfessional is a polished, corporate voice.
	ToneProfessional Tone = "professional"

	// ToneActionOriented is a dynamic, high-energy voice.
	ToneActionOriented Tone = "action-oriented"

	// ToneExecutive is a strategic, leadership-focused voice.
	ToneExecutive Tone = "executive"
)

// Valid reports whether t is one of the allowed tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneActionOriented, ToneExecutive:
		return true
	}
	return false
}

// Input length bounds, enforced at the HTTP boundary before admission.
const (
	MinInputLen = 10
	MaxInputLen = 2000
)

// Request is the immutable input to a single rewrite execution.
type Request struct {
	// RawInput is the user's raw experience text.
	RawInput string

	// Tone is the requested voice.
	Tone Tone
}

// Validate checks the request against the input contract. The admission
// controller and engine assume validated input; this runs at the
// boundary.
func (r Request) Validate() error {
	if len(r.RawInput) < MinInputLen {
		return fmt.Errorf("input must be at least %d characters", MinInputLen)
	}
	if len(r.RawInput) > MaxInputLen {
		return fmt.Errorf("input must be %d characters or less", MaxInputLen)
	}
	if !r.Tone.Valid() {
		return fmt.Errorf("tone %q is not one of professional, action-oriented, executive", r.Tone)
	}
	return nil
}

// Event is one server-sent event on the caller-facing stream. Exactly one
// field is set; the JSON encoding therefore carries exactly one key.
type Event struct {
	Text  string `json:"text,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// TextEvent carries an incremental text fragment.
func TextEvent(text string) Event {
	return Event{Text: text}
}

// DoneEvent signals successful completion; no events follow it.
func DoneEvent() Event {
	return Event{Done: true}
}

// ErrorEvent signals in-band failure; no events follow it.
func ErrorEvent(message string) Event {
	return Event{Error: message}
}
