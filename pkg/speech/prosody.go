package speech

import (
	"github.com/januslink/janus/pkg/audio/pcm"
	"github.com/januslink/janus/pkg/janus"
)

// Prosody is an autocorrelation-based prosody extractor. It measures the
// average RMS energy of an utterance and the average fundamental
// frequency of its voiced frames, then maps both onto the categorical
// tags carried on the wire.
//
// A few bytes of tone metadata is all the receiver needs to pick an
// affect; this does not try to be a pitch tracker of research quality.
type Prosody struct {
	// HopSize is the analysis frame length in samples. Zero selects
	// 1024.
	HopSize int
}

// Pitch search range in Hz. Human speech F0 sits well inside it.
const (
	minPitchHz = 60
	maxPitchHz = 400
)

// Energy and pitch tag boundaries, on normalized RMS and average F0.
const (
	quietBelow  = 0.05
	normalBelow = 0.15

	deepBelow        = 120.0
	normalPitchBelow = 200.0
)

var _ ProsodyExtractor = (*Prosody)(nil)

// Extract analyzes one utterance. It returns nil when the buffer is too
// short to measure anything.
func (p *Prosody) Extract(samples []int16, format pcm.Format) (*janus.Prosody, error) {
	hop := p.HopSize
	if hop <= 0 {
		hop = 1024
	}
	if len(samples) < hop {
		return nil, nil
	}

	energy := rmsLevel(samples)
	var energyTag string
	switch {
	case energy < quietBelow:
		energyTag = janus.EnergyQuiet
	case energy < normalBelow:
		energyTag = janus.EnergyNormal
	default:
		energyTag = janus.EnergyLoud
	}

	rate := format.SampleRate()
	var pitchSum float64
	var voiced int
	for i := 0; i+hop <= len(samples); i += hop {
		if hz := framePitch(samples[i:i+hop], rate); hz > 0 {
			pitchSum += hz
			voiced++
		}
	}

	out := &janus.Prosody{
		Energy:    energyTag,
		Pitch:     janus.PitchNormal,
		AvgEnergy: float32(energy),
	}
	if voiced > 0 {
		avg := pitchSum / float64(voiced)
		out.AvgPitchHz = float32(avg)
		switch {
		case avg < deepBelow:
			out.Pitch = janus.PitchDeep
		case avg < normalPitchBelow:
			out.Pitch = janus.PitchNormal
		default:
			out.Pitch = janus.PitchHigh
		}
	}
	return out, nil
}

// framePitch estimates the fundamental frequency of one frame by
// normalized autocorrelation. Returns 0 for unvoiced or silent frames.
func framePitch(frame []int16, rate int) float64 {
	n := len(frame)
	x := make([]float64, n)
	var power float64
	for i, s := range frame {
		x[i] = float64(s) / 32768.0
		power += x[i] * x[i]
	}
	if power/float64(n) < 1e-6 {
		return 0
	}

	minLag := rate / maxPitchHz
	maxLag := rate / minPitchHz
	if maxLag >= n {
		maxLag = n - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < n; i++ {
			corr += x[i] * x[i+lag]
		}
		corr /= power
		if corr > bestCorr {
			bestCorr, bestLag = corr, lag
		}
	}
	// Voicing gate: weak periodicity means noise or fricatives.
	if bestLag == 0 || bestCorr < 0.3 {
		return 0
	}
	return float64(rate) / float64(bestLag)
}
