package speech

import (
	"fmt"
	"math"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"github.com/januslink/janus/pkg/audio/pcm"
	"github.com/januslink/janus/pkg/audio/resampler"
)

// RMSVAD is a pure-Go voice activity detector based on RMS energy with
// hysteresis: separate thresholds and frame counts for entering and
// leaving speech avoid flicker at the boundary.
type RMSVAD struct {
	// SpeechThreshold is the normalized RMS level that counts toward
	// speech onset. Zero selects the default.
	SpeechThreshold float64

	// SilenceThreshold is the normalized RMS level below which a frame
	// counts toward silence. Zero selects the default.
	SilenceThreshold float64

	// OnsetFrames is the number of consecutive speech frames required
	// to enter speech. Zero selects the default.
	OnsetFrames int

	inSpeech    bool
	speechCount int
}

const (
	defaultSpeechThreshold  = 0.015
	defaultSilenceThreshold = 0.008
	defaultOnsetFrames      = 2
)

// IsSpeech classifies one chunk. It never fails; the error return
// satisfies the VAD contract.
func (v *RMSVAD) IsSpeech(samples []int16) (bool, error) {
	speechAt := v.SpeechThreshold
	if speechAt == 0 {
		speechAt = defaultSpeechThreshold
	}
	silenceAt := v.SilenceThreshold
	if silenceAt == 0 {
		silenceAt = defaultSilenceThreshold
	}
	onset := v.OnsetFrames
	if onset == 0 {
		onset = defaultOnsetFrames
	}

	level := rmsLevel(samples)
	if v.inSpeech {
		if level < silenceAt {
			v.inSpeech = false
			v.speechCount = 0
		}
	} else if level >= speechAt {
		v.speechCount++
		if v.speechCount >= onset {
			v.inSpeech = true
		}
	} else {
		v.speechCount = 0
	}
	return v.inSpeech, nil
}

// Reset clears the hysteresis state between utterances.
func (v *RMSVAD) Reset() {
	v.inSpeech = false
	v.speechCount = 0
}

// rmsLevel returns the RMS of the samples normalized to [0, 1].
func rmsLevel(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// WebRTCVAD gates chunks through the WebRTC voice activity detector.
// The detector operates at 16kHz; capture audio at other rates is
// resampled on the way in.
type WebRTCVAD struct {
	vad *webrtcvad.VAD
	rs  *resampler.Resampler
}

const webrtcRate = 16000

// NewWebRTCVAD creates a WebRTC VAD for capture audio in the given
// format. Mode is the aggressiveness, 0 (permissive) to 3 (strict).
func NewWebRTCVAD(format pcm.Format, mode int) (*WebRTCVAD, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("speech: create webrtc vad: %w", err)
	}
	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}
	if err := v.SetMode(mode); err != nil {
		return nil, fmt.Errorf("speech: set vad mode: %w", err)
	}
	rs, err := resampler.New(format.SampleRate(), webrtcRate)
	if err != nil {
		return nil, err
	}
	return &WebRTCVAD{vad: v, rs: rs}, nil
}

// IsSpeech reports whether any 10ms frame in the chunk contains speech.
func (v *WebRTCVAD) IsSpeech(samples []int16) (bool, error) {
	samples, err := v.rs.Process(samples)
	if err != nil {
		return false, err
	}

	const frame = webrtcRate / 100 // 10ms
	if len(samples) < frame {
		padded := make([]int16, frame)
		copy(padded, samples)
		samples = padded
	}
	for i := 0; i+frame <= len(samples); i += frame {
		active, err := v.vad.Process(webrtcRate, pcm.Encode(samples[i:i+frame]))
		if err != nil {
			return false, fmt.Errorf("speech: webrtc vad: %w", err)
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}

// Reset is a no-op; the WebRTC detector is stateless per frame.
func (v *WebRTCVAD) Reset() {}
