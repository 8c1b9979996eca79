package speech

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/januslink/janus/pkg/audio/pcm"
)

func requireSh(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests shell out to sh")
	}
}

func TestExecTranscriber(t *testing.T) {
	requireSh(t)
	tr := &ExecTranscriber{Command: []string{"sh", "-c", "cat > /dev/null; echo hello world"}}
	got, err := tr.Transcribe(context.Background(), make([]int16, 160), pcm.L16Mono16K)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello world" {
		t.Errorf("transcript = %q; want %q", got, "hello world")
	}
}

func TestExecTranscriberEmptyOutput(t *testing.T) {
	requireSh(t)
	tr := &ExecTranscriber{Command: []string{"sh", "-c", "cat > /dev/null"}}
	_, err := tr.Transcribe(context.Background(), make([]int16, 160), pcm.L16Mono16K)
	if !errors.Is(err, ErrEmptyUtterance) {
		t.Errorf("err = %v; want ErrEmptyUtterance", err)
	}
}

func TestExecTranscriberFailure(t *testing.T) {
	requireSh(t)
	tr := &ExecTranscriber{Command: []string{"sh", "-c", "cat > /dev/null; echo model exploded >&2; exit 3"}}
	_, err := tr.Transcribe(context.Background(), make([]int16, 160), pcm.L16Mono16K)
	if err == nil || !strings.Contains(err.Error(), "model exploded") {
		t.Errorf("err = %v; want stderr excerpt included", err)
	}
}

func TestExecTranscriberRatePlaceholder(t *testing.T) {
	requireSh(t)
	tr := &ExecTranscriber{Command: []string{"sh", "-c", "cat > /dev/null; echo {rate}"}}
	got, err := tr.Transcribe(context.Background(), make([]int16, 160), pcm.L16Mono48K)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "48000" {
		t.Errorf("expanded rate = %q; want 48000", got)
	}
}

func TestExecSynthesizerStdinPrompt(t *testing.T) {
	requireSh(t)
	// Without a {text} placeholder the prompt arrives on stdin; cat
	// echoes it back as the "audio".
	s := &ExecSynthesizer{Command: []string{"cat"}}
	audio, err := s.Synthesize(context.Background(), "hi", AffectExcited, pcm.L16Mono16K)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := string(audio); got != "[Excited] hi" {
		t.Errorf("stdin prompt = %q; want %q", got, "[Excited] hi")
	}
}

func TestExecSynthesizerTextPlaceholder(t *testing.T) {
	requireSh(t)
	s := &ExecSynthesizer{Command: []string{"sh", "-c", "printf %s4 '{text}'"}}
	audio, err := s.Synthesize(context.Background(), "abc", AffectNeutral, pcm.L16Mono16K)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := string(audio); got != "abc4" {
		t.Errorf("output = %q; want %q", got, "abc4")
	}
}

func TestExecSynthesizerDropsTruncatedSample(t *testing.T) {
	requireSh(t)
	s := &ExecSynthesizer{Command: []string{"sh", "-c", "printf abc"}}
	audio, err := s.Synthesize(context.Background(), "x", AffectNeutral, pcm.L16Mono16K)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(audio) != 2 {
		t.Errorf("len(audio) = %d; want odd trailing byte dropped", len(audio))
	}
}
