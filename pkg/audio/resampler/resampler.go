// Package resampler converts mono 16-bit PCM between sample rates using
// a pure Go resampler (no CGO/FFI dependencies).
//
// Its main job in a Janus node is feeding 48kHz capture audio into the
// 16kHz voice-activity detector chunk by chunk.
package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts mono int16 sample chunks from one rate to another.
// It keeps internal filter state across calls, so one Resampler serves
// one continuous stream. Not safe for concurrent use.
type Resampler struct {
	srcRate int
	dstRate int
	inner   resampling.Resampler
}

// New creates a resampler from srcRate to dstRate (both in Hz).
// Equal rates yield a passthrough resampler.
func New(srcRate, dstRate int) (*Resampler, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	r := &Resampler{srcRate: srcRate, dstRate: dstRate}
	if srcRate == dstRate {
		return r, nil
	}
	inner, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	r.inner = inner
	return r, nil
}

// Process converts one chunk of samples. The returned slice length is
// approximately len(samples)*dstRate/srcRate; filter latency may shift a
// few samples between calls.
func (r *Resampler) Process(samples []int16) ([]int16, error) {
	if r.inner == nil {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out, nil
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}
	output, err := r.inner.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	out := make([]int16, len(output))
	for i, v := range output {
		switch {
		case v > 1.0:
			out[i] = 32767
		case v < -1.0:
			out[i] = -32768
		default:
			out[i] = int16(v * 32767.0)
		}
	}
	return out, nil
}

// Rates returns the configured source and destination sample rates.
func (r *Resampler) Rates() (src, dst int) { return r.srcRate, r.dstRate }
