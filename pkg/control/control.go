// Package control holds the shared operating state of a Janus node.
//
// The state is written by inbound control commands (CLI, WebSocket) and
// polled by the sender engine on every capture cycle. Updates are partial:
// a nil field means "no change", mirroring the control message contract on
// the wire. Reads and writes swap the whole snapshot under one mutex so a
// reader can never observe a half-applied update.
package control

import (
	"sync"

	"github.com/januslink/janus/pkg/janus"
)

// State is one immutable snapshot of the operating state.
type State struct {
	// Mode governs how captured utterances are packetized and how
	// received packets are rendered.
	Mode janus.Mode `json:"mode"`

	// Streaming enables continuous capture gated by voice activity
	// detection.
	Streaming bool `json:"is_streaming"`

	// Recording enables hold-to-record capture: all audio is buffered
	// unconditionally until the flag is cleared.
	Recording bool `json:"is_recording"`

	// Emotion, when not Auto, overrides prosody-derived affect at
	// synthesis time on the receiving side.
	Emotion janus.Emotion `json:"emotion_override"`
}

// Update is a partial state change. Nil fields leave the corresponding
// state field unchanged.
type Update struct {
	Mode      *janus.Mode    `json:"mode,omitempty"`
	Streaming *bool          `json:"is_streaming,omitempty"`
	Recording *bool          `json:"is_recording,omitempty"`
	Emotion   *janus.Emotion `json:"emotion_override,omitempty"`
}

// Store is a synchronized holder of the current State. The zero value is
// not usable; create one with NewStore.
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore returns a Store with the process-start defaults: semantic
// mode, not streaming, not recording, no emotion override.
func NewStore() *Store {
	return &Store{
		state: State{
			Mode:    janus.ModeSemantic,
			Emotion: janus.EmotionAuto,
		},
	}
}

// Get returns the current state snapshot.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply merges the update into the state atomically and returns the
// resulting snapshot. Fields left nil in the update are unchanged.
func (s *Store) Apply(u Update) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Mode != nil {
		s.state.Mode = *u.Mode
	}
	if u.Streaming != nil {
		s.state.Streaming = *u.Streaming
	}
	if u.Recording != nil {
		s.state.Recording = *u.Recording
	}
	if u.Emotion != nil {
		s.state.Emotion = *u.Emotion
	}
	return s.state
}
