package engine

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/januslink/janus/pkg/audio/pcm"
	"github.com/januslink/janus/pkg/control"
	"github.com/januslink/janus/pkg/events"
	"github.com/januslink/janus/pkg/janus"
	"github.com/januslink/janus/pkg/morse"
	"github.com/januslink/janus/pkg/speech"
)

type synthCall struct {
	text   string
	affect string
}

type fakeSynth struct {
	mu     sync.Mutex
	calls  []synthCall
	failOn string
}

func (f *fakeSynth) Synthesize(_ context.Context, text, affect string, _ pcm.Format) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, synthCall{text: text, affect: affect})
	if text == f.failOn {
		return nil, errors.New("model offline")
	}
	return []byte("audio:" + text), nil
}

func (f *fakeSynth) all() []synthCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]synthCall(nil), f.calls...)
}

type memSink struct {
	mu     sync.Mutex
	chunks [][]byte
	wrote  chan struct{}
}

func newMemSink() *memSink {
	return &memSink{wrote: make(chan struct{}, 16)}
}

func (s *memSink) WriteChunk(audio []byte) error {
	s.mu.Lock()
	s.chunks = append(s.chunks, audio)
	s.mu.Unlock()
	select {
	case s.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (s *memSink) all() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.chunks...)
}

// frameChan feeds scripted frames; closing the channel fails the link.
type frameChan struct {
	frames chan []byte
}

func (l *frameChan) RecvFrame() ([]byte, error) {
	f, ok := <-l.frames
	if !ok {
		return nil, errors.New("link closed")
	}
	return f, nil
}

func newTestReceiver(t *testing.T, opts ReceiverOptions) *Receiver {
	t.Helper()
	if opts.Link == nil {
		opts.Link = &frameChan{frames: make(chan []byte)}
	}
	if opts.Out == nil {
		opts.Out = newMemSink()
	}
	r, err := NewReceiver(opts)
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}
	return r
}

func TestReceiverSemanticSentencePacing(t *testing.T) {
	synth := &fakeSynth{}
	r := newTestReceiver(t, ReceiverOptions{Synth: synth, Format: pcm.L16Mono16K})

	queue := make(chan []byte, 10)
	r.handle(context.Background(), &janus.Packet{
		Text: "First one. Second one",
		Mode: janus.ModeSemantic,
		Prosody: &janus.Prosody{
			Energy: janus.EnergyLoud, Pitch: janus.PitchHigh,
		},
	}, queue)

	calls := synth.all()
	if len(calls) != 2 {
		t.Fatalf("synthesized %d sentences; want 2", len(calls))
	}
	if calls[0].text != "First one." || calls[1].text != "Second one" {
		t.Errorf("sentences = %+v; want [First one. | Second one]", calls)
	}
	for _, c := range calls {
		if c.affect != speech.AffectExcited {
			t.Errorf("affect for %q = %q; want Excited for High+Loud", c.text, c.affect)
		}
	}
	if got := len(queue); got != 2 {
		t.Errorf("queued %d audio buffers; want 2", got)
	}
}

func TestReceiverEndOfPacketFlush(t *testing.T) {
	synth := &fakeSynth{}
	r := newTestReceiver(t, ReceiverOptions{Synth: synth, Format: pcm.L16Mono16K})

	queue := make(chan []byte, 10)
	r.handle(context.Background(), &janus.Packet{
		Text: "no punctuation here",
		Mode: janus.ModeSemantic,
	}, queue)

	calls := synth.all()
	if len(calls) != 1 || calls[0].text != "no punctuation here" {
		t.Fatalf("calls = %+v; want exactly one for the trailing fragment", calls)
	}
	if calls[0].affect != speech.AffectNeutral {
		t.Errorf("affect = %q; want Neutral without prosody", calls[0].affect)
	}
}

func TestReceiverTextOnlyIgnoresProsody(t *testing.T) {
	synth := &fakeSynth{}
	r := newTestReceiver(t, ReceiverOptions{Synth: synth, Format: pcm.L16Mono16K})

	queue := make(chan []byte, 10)
	r.handle(context.Background(), &janus.Packet{
		Text: "flat delivery",
		Mode: janus.ModeTextOnly,
		Prosody: &janus.Prosody{
			Energy: janus.EnergyLoud, Pitch: janus.PitchHigh,
		},
	}, queue)

	calls := synth.all()
	if len(calls) != 1 {
		t.Fatalf("synthesized %d sentences; want 1", len(calls))
	}
	if calls[0].affect != speech.AffectNeutral {
		t.Errorf("affect = %q; want Neutral for text-only", calls[0].affect)
	}
}

func TestReceiverEmotionOverride(t *testing.T) {
	t.Run("from packet", func(t *testing.T) {
		synth := &fakeSynth{}
		r := newTestReceiver(t, ReceiverOptions{Synth: synth, Format: pcm.L16Mono16K})
		queue := make(chan []byte, 10)
		r.handle(context.Background(), &janus.Packet{
			Text:    "mayday",
			Mode:    janus.ModeSemantic,
			Emotion: janus.EmotionPanicked,
			Prosody: &janus.Prosody{Energy: janus.EnergyQuiet, Pitch: janus.PitchDeep},
		}, queue)
		if calls := synth.all(); len(calls) != 1 || calls[0].affect != speech.AffectPanicked {
			t.Errorf("calls = %+v; want Panicked override beating prosody", calls)
		}
	})

	t.Run("from local store", func(t *testing.T) {
		store := control.NewStore()
		relaxed := janus.EmotionRelaxed
		store.Apply(control.Update{Emotion: &relaxed})
		synth := &fakeSynth{}
		r := newTestReceiver(t, ReceiverOptions{
			Synth: synth, Format: pcm.L16Mono16K, Store: store,
		})
		queue := make(chan []byte, 10)
		r.handle(context.Background(), &janus.Packet{
			Text: "anything",
			Mode: janus.ModeSemantic,
		}, queue)
		if calls := synth.all(); len(calls) != 1 || calls[0].affect != speech.AffectRelaxed {
			t.Errorf("calls = %+v; want local Relaxed override", calls)
		}
	})
}

func TestReceiverMorseKeyedLocally(t *testing.T) {
	synth := &fakeSynth{}
	r := newTestReceiver(t, ReceiverOptions{Synth: synth, Format: pcm.L16Mono16K})

	queue := make(chan []byte, 10)
	r.handle(context.Background(), &janus.Packet{
		Text: "SOS",
		Mode: janus.ModeMorse,
	}, queue)

	if calls := synth.all(); len(calls) != 0 {
		t.Errorf("synthesizer called %d times for morse; want 0", len(calls))
	}
	select {
	case audio := <-queue:
		want := morse.Synthesize("SOS", pcm.L16Mono16K)
		if !bytes.Equal(audio, want) {
			t.Errorf("queued %d bytes; want %d bytes of keyed tone", len(audio), len(want))
		}
	default:
		t.Fatal("no audio queued for morse packet")
	}
}

func TestReceiverSynthesisFailureSkipsSentence(t *testing.T) {
	synth := &fakeSynth{failOn: "Bad one."}
	hub := events.NewHub(8)
	ch, cancel := hub.Subscribe()
	defer cancel()
	r := newTestReceiver(t, ReceiverOptions{
		Synth: synth, Format: pcm.L16Mono16K, Hub: hub,
	})

	queue := make(chan []byte, 10)
	r.handle(context.Background(), &janus.Packet{
		Text: "Bad one. Good one.",
		Mode: janus.ModeSemantic,
	}, queue)

	if got := len(queue); got != 1 {
		t.Errorf("queued %d buffers; want 1, the failed sentence skipped", got)
	}
	sawNotice := false
	for len(ch) > 0 {
		if _, ok := (<-ch).(*events.Notice); ok {
			sawNotice = true
		}
	}
	if !sawNotice {
		t.Error("no error notice for the synthesis failure")
	}
}

func TestReceiverRunDropsGarbledFrames(t *testing.T) {
	linkCh := &frameChan{frames: make(chan []byte, 4)}
	synth := &fakeSynth{}
	sink := newMemSink()
	hub := events.NewHub(8)
	r := newTestReceiver(t, ReceiverOptions{
		Link: linkCh, Synth: synth, Out: sink, Format: pcm.L16Mono16K, Hub: hub,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	linkCh.frames <- []byte{0xc1, 0xff, 0x00} // not a packet
	payload, err := janus.Encode(&janus.Packet{Text: "still here", Mode: janus.ModeTextOnly})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	linkCh.frames <- payload

	select {
	case <-sink.wrote:
	case <-time.After(5 * time.Second):
		t.Fatal("valid packet after garbage was not played")
	}
	if got := sink.all(); len(got) != 1 || string(got[0]) != "audio:still here" {
		t.Errorf("played %q; want the decoded utterance", got)
	}

	cancel()
	close(linkCh.frames)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v after cancel; want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestReceiverRunLinkFailure(t *testing.T) {
	linkCh := &frameChan{frames: make(chan []byte)}
	r := newTestReceiver(t, ReceiverOptions{
		Link: linkCh, Synth: &fakeSynth{}, Format: pcm.L16Mono16K,
	})

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()
	close(linkCh.frames)

	select {
	case err := <-done:
		if err == nil {
			t.Error("Run returned nil after a link failure; want error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after link failure")
	}
}
