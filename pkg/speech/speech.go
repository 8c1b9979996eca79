// Package speech defines the collaborator contracts of a Janus node:
// voice-activity detection, transcription, prosody extraction and speech
// synthesis. The engines depend only on these interfaces; concrete model
// backends are replaceable black boxes.
//
// The package also ships the local implementations a node can run without
// any model: RMS and WebRTC voice-activity detectors, an
// autocorrelation-based prosody extractor, and sentence buffering for the
// receive side.
package speech

import (
	"context"
	"errors"
	"fmt"

	"github.com/januslink/janus/pkg/audio/pcm"
	"github.com/januslink/janus/pkg/janus"
)

// ErrEmptyUtterance reports that transcription yielded nothing usable.
// The sender discards the utterance silently; this is not a failure of
// the pipeline, just a silent or unintelligible capture.
var ErrEmptyUtterance = errors.New("speech: empty utterance")

// SynthesisError reports a synthesizer failure for one sentence. The
// receiver skips the sentence and continues.
type SynthesisError struct {
	Text string
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech: synthesize %q: %v", e.Text, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// VAD classifies one captured audio chunk as speech or silence.
// Implementations may keep internal smoothing state; Reset clears it
// between utterances.
type VAD interface {
	IsSpeech(samples []int16) (bool, error)
	Reset()
}

// Transcriber converts one flushed utterance into text. An empty or
// unusable result is reported as ErrEmptyUtterance.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16, format pcm.Format) (string, error)
}

// ProsodyExtractor derives pitch/energy metadata from one utterance.
// A nil Prosody with nil error means the signal had nothing to measure.
type ProsodyExtractor interface {
	Extract(samples []int16, format pcm.Format) (*janus.Prosody, error)
}

// Synthesizer renders one sentence as L16 audio. The affect tag comes
// from ResolveAffect; AffectNeutral selects the default voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, affect string, format pcm.Format) ([]byte, error)
}

// SynthesizeFunc is an adapter to allow ordinary functions as
// Synthesizers.
type SynthesizeFunc func(ctx context.Context, text string, affect string, format pcm.Format) ([]byte, error)

// Synthesize calls the underlying function.
func (f SynthesizeFunc) Synthesize(ctx context.Context, text string, affect string, format pcm.Format) ([]byte, error) {
	return f(ctx, text, affect, format)
}

// Affect tags used to prompt expressive synthesis. The receiver prepends
// the tag to the sentence text, e.g. "[Excited] over here!".
const (
	AffectNeutral  = "Neutral"
	AffectExcited  = "Excited"
	AffectHappy    = "Happy"
	AffectSerious  = "Serious"
	AffectCalm     = "Calm"
	AffectRelaxed  = "Relaxed"
	AffectPanicked = "Panicked"
)

// ResolveAffect decides the affect tag for one packet: an explicit
// emotion override always wins; otherwise the prosody tags map onto an
// affect; missing prosody is neutral.
func ResolveAffect(emotion janus.Emotion, p *janus.Prosody) string {
	if !emotion.IsAuto() {
		switch emotion {
		case janus.EmotionRelaxed:
			return AffectRelaxed
		case janus.EmotionPanicked:
			return AffectPanicked
		default:
			return AffectNeutral
		}
	}
	if p == nil {
		return AffectNeutral
	}
	switch {
	case p.Pitch == janus.PitchHigh && p.Energy == janus.EnergyLoud:
		return AffectExcited
	case p.Pitch == janus.PitchHigh && p.Energy == janus.EnergyNormal:
		return AffectHappy
	case p.Pitch == janus.PitchDeep && p.Energy == janus.EnergyQuiet:
		return AffectSerious
	case p.Pitch == janus.PitchDeep && p.Energy == janus.EnergyNormal:
		return AffectCalm
	default:
		return AffectNeutral
	}
}

// Prompt renders the synthesis input for one sentence: the affect tag in
// brackets, then the text. Neutral omits the tag.
func Prompt(affect, text string) string {
	if affect == "" || affect == AffectNeutral {
		return text
	}
	return "[" + affect + "] " + text
}
