package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/januslink/janus/pkg/audio/pcm"
	"github.com/januslink/janus/pkg/control"
	"github.com/januslink/janus/pkg/events"
	"github.com/januslink/janus/pkg/history"
	"github.com/januslink/janus/pkg/janus"
	"github.com/januslink/janus/pkg/morse"
	"github.com/januslink/janus/pkg/speech"
)

// FrameReceiver yields whole link frames. link.Receiver satisfies it.
type FrameReceiver interface {
	RecvFrame() ([]byte, error)
}

// ReceiverOptions configures a receiver engine.
type ReceiverOptions struct {
	// Link yields incoming frames. Required.
	Link FrameReceiver

	// Synth renders sentences as audio. Required for semantic and
	// text-only packets; morse packets are keyed locally without it.
	Synth speech.Synthesizer

	// Out plays synthesized audio. Required.
	Out AudioSink

	// Format is the playback audio format.
	Format pcm.Format

	// Store supplies the local emotion override. Optional; when nil the
	// packet's own override is the only one considered.
	Store *control.Store

	// Hub receives telemetry events. Optional.
	Hub *events.Hub

	// History logs received utterances. Optional.
	History *history.Log

	// Logger overrides slog.Default.
	Logger *slog.Logger

	// QueueSize overrides DefaultQueueSize for the playback queue.
	QueueSize int
}

// Receiver decodes incoming packets and renders them as audio.
//
// Packets are rendered sentence by sentence: text is fed through a
// sentence buffer so the first sentence of a long packet starts playing
// while the rest is still being synthesized, and end of packet flushes
// whatever remains. A single playback worker drains the queue in FIFO
// order so sentences never interleave.
type Receiver struct {
	link      FrameReceiver
	synth     speech.Synthesizer
	out       AudioSink
	format    pcm.Format
	store     *control.Store
	hub       *events.Hub
	hist      *history.Log
	logger    *slog.Logger
	queueSize int

	sentences speech.SentenceBuffer
}

// NewReceiver validates the options and builds a receiver engine.
func NewReceiver(opts ReceiverOptions) (*Receiver, error) {
	if opts.Link == nil {
		return nil, errors.New("engine: ReceiverOptions.Link is required")
	}
	if opts.Out == nil {
		return nil, errors.New("engine: ReceiverOptions.Out is required")
	}
	r := &Receiver{
		link:      opts.Link,
		synth:     opts.Synth,
		out:       opts.Out,
		format:    opts.Format,
		store:     opts.Store,
		hub:       opts.Hub,
		hist:      opts.History,
		logger:    opts.Logger,
		queueSize: opts.QueueSize,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.queueSize <= 0 {
		r.queueSize = DefaultQueueSize
	}
	return r, nil
}

// Run receives until the context is canceled or the link fails.
// Canceling the context does not unblock a pending RecvFrame; close the
// link as well to stop promptly.
func (r *Receiver) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	queue := make(chan []byte, r.queueSize)
	playbackDone := make(chan struct{})
	go func() {
		defer close(playbackDone)
		r.playbackLoop(ctx, queue)
	}()
	defer func() { <-playbackDone }()
	defer cancel()

	for {
		frame, err := r.link.RecvFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("engine: receive: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		pkt, err := janus.Decode(frame)
		if err != nil {
			// A garbled frame costs one utterance, never the loop.
			r.reportError("decode: %v", err)
			continue
		}
		r.handle(ctx, pkt, queue)
	}
}

// handle renders one decoded packet into the playback queue.
func (r *Receiver) handle(ctx context.Context, pkt *janus.Packet, queue chan []byte) {
	text := strings.TrimSpace(pkt.Text)
	if text == "" {
		return
	}
	r.logger.Info("packet received", "mode", pkt.Mode, "text", text)

	if r.hub != nil {
		ev := events.NewTranscript(text, pkt.Prosody)
		ev.StartMs = pkt.StartMs
		ev.EndMs = pkt.EndMs
		r.hub.PublishTranscript(ev)
	}
	if r.hist != nil {
		err := r.hist.Append(history.Record{
			Direction: history.Received,
			Text:      text,
			Mode:      pkt.Mode,
			Prosody:   pkt.Prosody,
			AtMs:      time.Now().UnixMilli(),
		})
		if err != nil {
			r.logger.Warn("history append failed", "err", err)
		}
	}

	if pkt.Mode == janus.ModeMorse {
		if audio := morse.Synthesize(text, r.format); len(audio) > 0 {
			if enqueue(queue, audio) {
				r.logger.Warn("playback queue full, oldest entry dropped")
			}
		}
		return
	}

	if r.synth == nil {
		r.reportError("no synthesizer for mode %s packet", pkt.Mode)
		return
	}

	// Text-only packets never read prosody even if a peer sent some.
	prosody := pkt.Prosody
	if pkt.Mode == janus.ModeTextOnly {
		prosody = nil
	}
	emotion := pkt.Emotion
	if r.store != nil {
		if local := r.store.Get().Emotion; !local.IsAuto() {
			emotion = local
		}
	}
	affect := speech.ResolveAffect(emotion, prosody)

	sentences := r.sentences.Feed(text)
	// End of packet is an implicit sentence boundary.
	if rest, ok := r.sentences.Flush(); ok {
		sentences = append(sentences, rest)
	}
	for _, sentence := range sentences {
		audio, err := r.synth.Synthesize(ctx, sentence, affect, r.format)
		if err != nil {
			// Skip the sentence, keep the packet.
			r.reportError("%v", &speech.SynthesisError{Text: sentence, Err: err})
			continue
		}
		if len(audio) == 0 {
			continue
		}
		if enqueue(queue, audio) {
			r.logger.Warn("playback queue full, oldest entry dropped")
		}
	}
}

// playbackLoop is the single consumer of the playback queue.
func (r *Receiver) playbackLoop(ctx context.Context, queue chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case audio := <-queue:
			if err := r.out.WriteChunk(audio); err != nil {
				r.reportError("playback: %v", err)
			}
		}
	}
}

func (r *Receiver) reportError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Error(msg)
	if r.hub != nil {
		r.hub.PublishError(msg)
	}
}
