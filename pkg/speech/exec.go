package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/januslink/janus/pkg/audio/pcm"
)

// Argv placeholders expanded before an external model command runs.
const (
	// PlaceholderRate expands to the sample rate in Hz.
	PlaceholderRate = "{rate}"
	// PlaceholderText expands to the sentence to synthesize. Without it,
	// the text is written to the command's stdin instead.
	PlaceholderText = "{text}"
	// PlaceholderAffect expands to the affect tag.
	PlaceholderAffect = "{affect}"
)

// ExecTranscriber bridges to an out-of-process speech-to-text command
// such as a whisper CLI. The utterance is piped to stdin as a mono
// 16-bit WAV; the command prints the transcript to stdout. A blank
// transcript maps to ErrEmptyUtterance.
type ExecTranscriber struct {
	// Command is the argv to run, {rate} expanded. Required.
	Command []string
}

// Transcribe runs the command once for the whole utterance.
func (t *ExecTranscriber) Transcribe(ctx context.Context, samples []int16, format pcm.Format) (string, error) {
	if len(t.Command) == 0 {
		return "", errors.New("speech: ExecTranscriber.Command is empty")
	}
	argv := expand(t.Command, format, "", "")
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(format.WAV(pcm.Encode(samples)))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("speech: %s: %w (%s)", argv[0], err, firstLine(stderr.String()))
	}
	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", ErrEmptyUtterance
	}
	return text, nil
}

// ExecSynthesizer bridges to an out-of-process text-to-speech command.
// The command must write raw mono 16-bit little-endian PCM at the
// requested rate to stdout. When the argv carries no {text} placeholder,
// the prompt (affect tag plus sentence) is written to stdin.
type ExecSynthesizer struct {
	// Command is the argv to run, with {rate}, {text} and {affect}
	// expanded. Required.
	Command []string
}

// Synthesize runs the command once per sentence.
func (s *ExecSynthesizer) Synthesize(ctx context.Context, text, affect string, format pcm.Format) ([]byte, error) {
	if len(s.Command) == 0 {
		return nil, errors.New("speech: ExecSynthesizer.Command is empty")
	}
	argv := expand(s.Command, format, text, affect)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if !hasPlaceholder(s.Command, PlaceholderText) {
		cmd.Stdin = strings.NewReader(Prompt(affect, text))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("speech: %s: %w (%s)", argv[0], err, firstLine(stderr.String()))
	}
	audio := stdout.Bytes()
	// Odd trailing byte means a truncated sample.
	return audio[:len(audio)-len(audio)%2], nil
}

func expand(command []string, format pcm.Format, text, affect string) []string {
	out := make([]string, len(command))
	for i, arg := range command {
		arg = strings.ReplaceAll(arg, PlaceholderRate, strconv.Itoa(format.SampleRate()))
		arg = strings.ReplaceAll(arg, PlaceholderText, text)
		arg = strings.ReplaceAll(arg, PlaceholderAffect, affect)
		out[i] = arg
	}
	return out
}

func hasPlaceholder(command []string, placeholder string) bool {
	for _, arg := range command {
		if strings.Contains(arg, placeholder) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "no stderr output"
	}
	return s
}
