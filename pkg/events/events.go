// Package events fans engine telemetry out to observers.
//
// Engines publish transcripts, packet summaries and error notices;
// outer transports (the WebSocket bridge, the CLI display) subscribe.
// Publishing never blocks and never propagates backpressure into an
// engine: when a subscriber lags, its oldest undelivered event is
// dropped to make room for the new one.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/januslink/janus/pkg/janus"
)

// Transcript reports one captured or received utterance.
type Transcript struct {
	Type       string  `json:"type"` // always "transcript"
	Text       string  `json:"text"`
	StartMs    int64   `json:"start_ms,omitempty"`
	EndMs      int64   `json:"end_ms,omitempty"`
	AvgPitchHz float32 `json:"avg_pitch_hz,omitempty"`
	AvgEnergy  float32 `json:"avg_energy,omitempty"`
}

// PacketSummary reports the wire cost of one transmitted packet. It is
// observability data only; protocol logic never reads it.
type PacketSummary struct {
	Type        string     `json:"type"` // always "packet_summary"
	Bytes       int        `json:"bytes"`
	Mode        janus.Mode `json:"mode"`
	CreatedAtMs int64      `json:"created_at_ms"`
}

// Notice reports a non-fatal engine error to observers.
type Notice struct {
	Type    string `json:"type"` // always "error"
	Message string `json:"message"`
	AtMs    int64  `json:"at_ms"`
}

// Event is one of *Transcript, *PacketSummary or *Notice.
type Event any

// NewTranscript builds a transcript event.
func NewTranscript(text string, prosody *janus.Prosody) *Transcript {
	t := &Transcript{Type: "transcript", Text: text}
	if prosody != nil {
		t.AvgPitchHz = prosody.AvgPitchHz
		t.AvgEnergy = prosody.AvgEnergy
	}
	return t
}

// NewPacketSummary builds a packet summary event stamped with now.
func NewPacketSummary(byteSize int, mode janus.Mode) *PacketSummary {
	return &PacketSummary{
		Type:        "packet_summary",
		Bytes:       byteSize,
		Mode:        mode,
		CreatedAtMs: time.Now().UnixMilli(),
	}
}

// NewNotice builds an error event stamped with now.
func NewNotice(message string) *Notice {
	return &Notice{Type: "error", Message: message, AtMs: time.Now().UnixMilli()}
}

// DefaultCapacity is the per-subscriber event buffer size.
const DefaultCapacity = 64

// Hub distributes events to any number of subscribers.
type Hub struct {
	session  string
	capacity int

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates a hub whose subscribers buffer up to capacity events.
// capacity <= 0 selects DefaultCapacity.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{
		session:  uuid.NewString(),
		capacity: capacity,
		subs:     make(map[chan Event]struct{}),
	}
}

// SessionID identifies this hub's process lifetime to observers.
func (h *Hub) SessionID() string { return h.session }

// Subscribe registers a new observer. The returned cancel function
// unregisters it and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.capacity)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// PublishTranscript publishes a transcript event.
func (h *Hub) PublishTranscript(t *Transcript) { h.publish(t) }

// PublishPacketSummary publishes a packet summary event.
func (h *Hub) PublishPacketSummary(s *PacketSummary) { h.publish(s) }

// PublishError publishes an error notice.
func (h *Hub) PublishError(message string) { h.publish(NewNotice(message)) }

func (h *Hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is behind: drop its oldest event, then
			// deliver the new one. Stale telemetry is worse than
			// a gap.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
