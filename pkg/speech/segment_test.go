package speech

import (
	"slices"
	"testing"

	"github.com/januslink/janus/pkg/janus"
)

func TestSentenceBufferFeed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     []string
		trailing string
	}{
		{
			name:  "simple sentences",
			input: "Hello world. This is a test.",
			want:  []string{"Hello world.", "This is a test."},
		},
		{
			name:  "mixed punctuation",
			input: "First! Second? Third.",
			want:  []string{"First!", "Second?", "Third."},
		},
		{
			name:  "decimal number not a boundary",
			input: "The price is 9.9 dollars today.",
			want:  []string{"The price is 9.9 dollars today."},
		},
		{
			name:  "time format not a boundary",
			input: "Meeting at 10:30 tomorrow.",
			want:  []string{"Meeting at 10:30 tomorrow."},
		},
		{
			name:  "newline ends sentence",
			input: "Line one\nLine two.",
			want:  []string{"Line one", "Line two."},
		},
		{
			name:  "cjk punctuation",
			input: "你好。再见！",
			want:  []string{"你好。", "再见！"},
		},
		{
			name:     "trailing fragment stays buffered",
			input:    "Done here. but wait",
			want:     []string{"Done here."},
			trailing: "but wait",
		},
		{
			name:     "no punctuation at all",
			input:    "roger wilco over",
			want:     nil,
			trailing: "roger wilco over",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b SentenceBuffer
			got := b.Feed(tc.input)
			if !slices.Equal(got, tc.want) {
				t.Errorf("Feed = %q; want %q", got, tc.want)
			}
			rest, ok := b.Flush()
			if tc.trailing == "" {
				if ok {
					t.Errorf("Flush = %q; want empty buffer", rest)
				}
			} else if rest != tc.trailing {
				t.Errorf("Flush = %q; want %q", rest, tc.trailing)
			}
		})
	}
}

func TestSentenceBufferTokenByToken(t *testing.T) {
	// Character-granularity feeding must segment identically to a
	// single Feed of the whole utterance.
	var b SentenceBuffer
	var got []string
	for _, r := range "One. Two! Three" {
		got = append(got, b.Feed(string(r))...)
	}
	want := []string{"One.", "Two!"}
	if !slices.Equal(got, want) {
		t.Errorf("per-rune Feed = %q; want %q", got, want)
	}
	if rest, ok := b.Flush(); !ok || rest != "Three" {
		t.Errorf("Flush = %q, %v; want \"Three\", true", rest, ok)
	}
}

func TestSentenceBufferFlushIsImplicitFullStop(t *testing.T) {
	var b SentenceBuffer
	b.Feed("It costs 9.")
	// "9." is ambiguous until the next rune; end of packet resolves it.
	s, ok := b.Flush()
	if !ok || s != "It costs 9." {
		t.Errorf("Flush = %q, %v; want the full fragment", s, ok)
	}
	if _, ok := b.Flush(); ok {
		t.Error("second Flush returned text; want empty")
	}
}

func TestResolveAffect(t *testing.T) {
	tests := []struct {
		name    string
		emotion janus.Emotion
		prosody *janus.Prosody
		want    string
	}{
		{
			name:    "override wins over prosody",
			emotion: janus.EmotionPanicked,
			prosody: &janus.Prosody{Pitch: janus.PitchHigh, Energy: janus.EnergyLoud},
			want:    AffectPanicked,
		},
		{name: "relaxed override", emotion: janus.EmotionRelaxed, want: AffectRelaxed},
		{
			name:    "high loud",
			prosody: &janus.Prosody{Pitch: janus.PitchHigh, Energy: janus.EnergyLoud},
			want:    AffectExcited,
		},
		{
			name:    "high normal",
			prosody: &janus.Prosody{Pitch: janus.PitchHigh, Energy: janus.EnergyNormal},
			want:    AffectHappy,
		},
		{
			name:    "deep quiet",
			prosody: &janus.Prosody{Pitch: janus.PitchDeep, Energy: janus.EnergyQuiet},
			want:    AffectSerious,
		},
		{
			name:    "deep normal",
			prosody: &janus.Prosody{Pitch: janus.PitchDeep, Energy: janus.EnergyNormal},
			want:    AffectCalm,
		},
		{
			name:    "plain",
			prosody: &janus.Prosody{Pitch: janus.PitchNormal, Energy: janus.EnergyNormal},
			want:    AffectNeutral,
		},
		{name: "no prosody", want: AffectNeutral},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveAffect(tc.emotion, tc.prosody)
			if got != tc.want {
				t.Errorf("ResolveAffect = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	if got := Prompt(AffectExcited, "over here"); got != "[Excited] over here" {
		t.Errorf("Prompt = %q", got)
	}
	if got := Prompt(AffectNeutral, "over here"); got != "over here" {
		t.Errorf("neutral Prompt = %q; want bare text", got)
	}
}
