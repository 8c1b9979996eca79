package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/januslink/janus/pkg/control"
	"github.com/januslink/janus/pkg/events"
	"github.com/januslink/janus/pkg/history"
	"github.com/januslink/janus/pkg/janus"
	"github.com/januslink/janus/pkg/speech"
)

// PacketSender transmits one encoded packet over the throttled link and
// reports the framed byte count. link.Sender satisfies it.
type PacketSender interface {
	Send(ctx context.Context, payload []byte) (int, error)
}

// SenderOptions configures a sender engine.
type SenderOptions struct {
	// Source captures microphone audio. Required.
	Source AudioSource

	// Link transmits encoded packets. Required.
	Link PacketSender

	// Store holds the operating state polled on every chunk. Required.
	Store *control.Store

	// VAD gates streamed capture. Required when streaming is used.
	VAD speech.VAD

	// Transcriber turns flushed utterances into text. Required.
	Transcriber speech.Transcriber

	// Prosody extracts pitch/energy metadata for semantic packets.
	// Optional; when nil, semantic packets carry no prosody.
	Prosody speech.ProsodyExtractor

	// Hub receives telemetry events. Optional.
	Hub *events.Hub

	// History logs sent utterances. Optional; append failures are
	// logged, never fatal.
	History *history.Log

	// Logger overrides slog.Default.
	Logger *slog.Logger

	// SilenceChunks overrides DefaultSilenceChunks.
	SilenceChunks int

	// QueueSize overrides DefaultQueueSize for the capture queue.
	QueueSize int
}

// Sender captures audio, cuts it into utterances, transcribes each one
// and transmits it as a packet.
//
// Two triggers end up buffering audio, and hold-to-record wins over
// streaming whenever both are active: while Recording is set, every
// chunk is buffered with no VAD involved, and clearing the flag flushes
// the utterance. With only Streaming set, the VAD opens the buffer and
// roughly half a second of silence closes it.
type Sender struct {
	source        AudioSource
	link          PacketSender
	store         *control.Store
	vad           speech.VAD
	transcriber   speech.Transcriber
	prosody       speech.ProsodyExtractor
	hub           *events.Hub
	hist          *history.Log
	logger        *slog.Logger
	silenceChunks int
	queueSize     int
}

// NewSender validates the options and builds a sender engine.
func NewSender(opts SenderOptions) (*Sender, error) {
	if opts.Source == nil {
		return nil, errors.New("engine: SenderOptions.Source is required")
	}
	if opts.Link == nil {
		return nil, errors.New("engine: SenderOptions.Link is required")
	}
	if opts.Store == nil {
		return nil, errors.New("engine: SenderOptions.Store is required")
	}
	if opts.Transcriber == nil {
		return nil, errors.New("engine: SenderOptions.Transcriber is required")
	}
	s := &Sender{
		source:        opts.Source,
		link:          opts.Link,
		store:         opts.Store,
		vad:           opts.VAD,
		transcriber:   opts.Transcriber,
		prosody:       opts.Prosody,
		hub:           opts.Hub,
		hist:          opts.History,
		logger:        opts.Logger,
		silenceChunks: opts.SilenceChunks,
		queueSize:     opts.QueueSize,
	}
	if s.vad == nil {
		s.vad = &speech.RMSVAD{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.silenceChunks <= 0 {
		s.silenceChunks = DefaultSilenceChunks
	}
	if s.queueSize <= 0 {
		s.queueSize = DefaultQueueSize
	}
	return s, nil
}

// Run captures until the context is canceled or the source fails.
// Canceling the context does not unblock a pending ReadChunk; close the
// source as well to stop promptly.
func (s *Sender) Run(ctx context.Context) error {
	chunks := make(chan []int16, s.queueSize)
	readErr := make(chan error, 1)
	go func() {
		defer close(chunks)
		for ctx.Err() == nil {
			chunk, err := s.source.ReadChunk()
			if err != nil {
				if ctx.Err() == nil {
					readErr <- err
				}
				return
			}
			select {
			case chunks <- chunk:
			default:
				// Capture outpaced processing; shed the oldest chunk.
				select {
				case <-chunks:
				default:
				}
				select {
				case chunks <- chunk:
				default:
				}
				s.logger.Debug("capture queue full, chunk dropped")
			}
		}
	}()

	var st captureState
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return fmt.Errorf("engine: capture: %w", err)
		case chunk, ok := <-chunks:
			if !ok {
				select {
				case err := <-readErr:
					return fmt.Errorf("engine: capture: %w", err)
				default:
					return nil
				}
			}
			s.step(ctx, &st, chunk)
		}
	}
}

// captureState is the trigger state machine between chunks.
type captureState struct {
	utterance []int16
	holding   bool
	silent    int
	startMs   int64
}

// step advances the trigger state machine by one captured chunk.
func (s *Sender) step(ctx context.Context, st *captureState, chunk []int16) {
	state := s.store.Get()
	switch {
	case state.Recording:
		if !st.holding {
			st.holding = true
			st.silent = 0
			if len(st.utterance) == 0 {
				st.startMs = time.Now().UnixMilli()
			}
		}
		st.utterance = append(st.utterance, chunk...)

	case st.holding:
		// Hold released: the buffered utterance is complete.
		st.holding = false
		s.flush(ctx, st.utterance, st.startMs)
		st.utterance = nil
		s.vad.Reset()

	case state.Streaming:
		active, err := s.vad.IsSpeech(chunk)
		if err != nil {
			s.logger.Warn("vad failure", "err", err)
			return
		}
		switch {
		case active:
			if len(st.utterance) == 0 {
				st.startMs = time.Now().UnixMilli()
			}
			st.utterance = append(st.utterance, chunk...)
			st.silent = 0
		case len(st.utterance) > 0:
			// Keep trailing context so the utterance does not end
			// mid-word.
			st.utterance = append(st.utterance, chunk...)
			st.silent++
			if st.silent >= s.silenceChunks {
				s.flush(ctx, st.utterance, st.startMs)
				st.utterance = nil
				st.silent = 0
				s.vad.Reset()
			}
		}

	default:
		if len(st.utterance) > 0 || st.silent > 0 {
			st.utterance = nil
			st.silent = 0
			s.vad.Reset()
		}
	}
}

// flush transcribes one buffered utterance and transmits it. Empty
// transcripts are dropped silently; every other failure is reported as
// an event and the capture loop carries on.
func (s *Sender) flush(ctx context.Context, samples []int16, startMs int64) {
	if len(samples) == 0 {
		return
	}
	endMs := time.Now().UnixMilli()

	text, err := s.transcriber.Transcribe(ctx, samples, s.source.Format())
	if err != nil {
		if errors.Is(err, speech.ErrEmptyUtterance) {
			s.logger.Debug("empty utterance discarded")
			return
		}
		s.reportError("transcribe: %v", err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Debug("empty utterance discarded")
		return
	}

	state := s.store.Get()
	pkt := &janus.Packet{
		Text:      text,
		Mode:      state.Mode,
		Emotion:   state.Emotion,
		Timestamp: endMs,
		StartMs:   startMs,
		EndMs:     endMs,
	}
	if state.Mode == janus.ModeSemantic && s.prosody != nil {
		pros, err := s.prosody.Extract(samples, s.source.Format())
		if err != nil {
			// Prosody is a refinement; the packet still goes out.
			s.logger.Warn("prosody extraction failed", "err", err)
		} else {
			pkt.Prosody = pros
		}
	}

	payload, err := janus.Encode(pkt)
	if err != nil {
		s.reportError("encode: %v", err)
		return
	}
	wire, err := s.link.Send(ctx, payload)
	if err != nil {
		s.reportError("send: %v", err)
		return
	}
	s.logger.Info("packet sent", "bytes", wire, "mode", pkt.Mode, "text", text)

	if s.hub != nil {
		ev := events.NewTranscript(text, pkt.Prosody)
		ev.StartMs = startMs
		ev.EndMs = endMs
		s.hub.PublishTranscript(ev)
		s.hub.PublishPacketSummary(events.NewPacketSummary(wire, pkt.Mode))
	}
	if s.hist != nil {
		err := s.hist.Append(history.Record{
			Direction: history.Sent,
			Text:      text,
			Mode:      pkt.Mode,
			Prosody:   pkt.Prosody,
			AtMs:      endMs,
		})
		if err != nil {
			s.logger.Warn("history append failed", "err", err)
		}
	}
}

func (s *Sender) reportError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.logger.Error(msg)
	if s.hub != nil {
		s.hub.PublishError(msg)
	}
}
