// Package janus defines the Janus wire packet and its compact binary
// encoding.
//
// A Janus link does not carry audio. Each packet carries the transcribed
// text of one utterance plus a few bytes of prosody metadata, so that the
// receiver can re-synthesize speech locally. The encoding is MessagePack
// with single-letter map keys; optional fields are omitted entirely rather
// than encoded as nulls. A typical semantic packet for a short sentence is
// well under 50 bytes.
//
// The map-keyed encoding is the interoperability contract between
// independently implemented senders and receivers: unknown keys are
// ignored on decode, and absent keys take their zero-value defaults.
package janus

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Mode is the transmission mode of a packet.
type Mode int

const (
	// ModeSemantic carries text plus prosody metadata.
	ModeSemantic Mode = iota
	// ModeTextOnly carries text only; the receiver uses a default voice.
	ModeTextOnly
	// ModeMorse carries raw text rendered as tone sequences on the
	// receiver, with no synthesis involved.
	ModeMorse
)

// Valid reports whether the mode is one of the defined transmission modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeSemantic, ModeTextOnly, ModeMorse:
		return true
	}
	return false
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSemantic:
		return "semantic"
	case ModeTextOnly:
		return "text_only"
	case ModeMorse:
		return "morse"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mode) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "semantic":
		*m = ModeSemantic
	case "text_only":
		*m = ModeTextOnly
	case "morse":
		*m = ModeMorse
	default:
		return fmt.Errorf("janus: unknown mode %q", name)
	}
	return nil
}

// Emotion is an explicit affect override carried in a packet. The zero
// value is Auto: no override, the receiver derives affect from prosody.
type Emotion string

const (
	// EmotionAuto means no override. Auto is never put on the wire.
	EmotionAuto Emotion = ""
	// EmotionRelaxed forces a calm delivery regardless of prosody.
	EmotionRelaxed Emotion = "relaxed"
	// EmotionPanicked forces an urgent delivery regardless of prosody.
	EmotionPanicked Emotion = "panicked"
)

// IsAuto reports whether the emotion is the Auto (no override) value.
func (e Emotion) IsAuto() bool { return e == EmotionAuto }

// String returns the string representation of the emotion.
func (e Emotion) String() string {
	if e == EmotionAuto {
		return "auto"
	}
	return string(e)
}

// MarshalJSON implements json.Marshaler.
func (e Emotion) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Emotion) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	if name == "auto" {
		*e = EmotionAuto
	} else {
		*e = Emotion(name)
	}
	return nil
}

// Energy and pitch tags as carried on the wire. Tags, not raw values,
// keep the prosody payload to a handful of bytes while still letting the
// receiver pick an affect.
const (
	EnergyQuiet  = "Quiet"
	EnergyNormal = "Normal"
	EnergyLoud   = "Loud"

	PitchDeep   = "Deep"
	PitchNormal = "Normal"
	PitchHigh   = "High"
)

// Prosody is the vocal-tone metadata of one utterance. The categorical
// tags are always set when prosody extraction succeeds; the numeric
// averages are a refinement for synthesizers that can use them.
type Prosody struct {
	// Energy is the volume tag: Quiet, Normal or Loud.
	Energy string `msgpack:"e,omitempty" json:"energy,omitempty"`

	// Pitch is the fundamental-frequency tag: Deep, Normal or High.
	Pitch string `msgpack:"p,omitempty" json:"pitch,omitempty"`

	// AvgPitchHz is the mean F0 of voiced segments, in Hz.
	// Zero means not measured.
	AvgPitchHz float32 `msgpack:"f,omitempty" json:"avg_pitch_hz,omitempty"`

	// AvgEnergy is the mean RMS of the utterance, normalized to [0, 1].
	// Zero means not measured.
	AvgEnergy float32 `msgpack:"v,omitempty" json:"avg_energy,omitempty"`
}

// Packet is one encoded, transmitted unit carrying an utterance's text
// and metadata. Packets are immutable values: the sender builds one per
// utterance, serializes it and forgets it.
type Packet struct {
	// Text is the transcribed utterance. For ModeMorse it is the raw
	// message to be keyed.
	Text string `msgpack:"t" json:"text"`

	// Mode is the transmission mode at packet creation time.
	Mode Mode `msgpack:"m" json:"mode"`

	// Prosody is present only for ModeSemantic packets whose prosody
	// extraction succeeded.
	Prosody *Prosody `msgpack:"p,omitempty" json:"prosody,omitempty"`

	// Emotion is the explicit affect override. Auto is omitted from
	// the encoded form.
	Emotion Emotion `msgpack:"o,omitempty" json:"emotion,omitempty"`

	// Timestamp is the packet creation time in epoch milliseconds.
	Timestamp int64 `msgpack:"ts,omitempty" json:"timestamp,omitempty"`

	// StartMs and EndMs optionally bound the utterance within the
	// sender's capture timeline, in milliseconds.
	StartMs int64 `msgpack:"s,omitempty" json:"start_ms,omitempty"`
	EndMs   int64 `msgpack:"e,omitempty" json:"end_ms,omitempty"`
}

// DecodeError reports a malformed or truncated packet. Receivers drop
// the frame and continue; a DecodeError must never stop a receive loop.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("janus: decode packet: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode serializes the packet into its compact binary form.
func Encode(p *Packet) ([]byte, error) {
	if !p.Mode.Valid() {
		return nil, fmt.Errorf("janus: encode packet: invalid mode %d", int(p.Mode))
	}
	b, err := msgpack.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("janus: encode packet: %w", err)
	}
	return b, nil
}

// Decode parses a binary payload into a packet. Unknown map keys are
// ignored for forward compatibility. Malformed input yields a
// *DecodeError, never a panic.
func Decode(b []byte) (*Packet, error) {
	if len(b) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty payload")}
	}
	var p Packet
	if err := msgpack.Unmarshal(b, &p); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if !p.Mode.Valid() {
		return nil, &DecodeError{Err: fmt.Errorf("unknown mode %d", int(p.Mode))}
	}
	return &p, nil
}
