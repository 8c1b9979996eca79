package resampler

import (
	"math"
	"testing"
)

func sine(freq float64, rate, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(0.5 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestPassthrough(t *testing.T) {
	r, err := New(16000, 16000)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	in := sine(440, 16000, 1600)
	out, err := r.Process(in)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("passthrough length = %d; want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample[%d] = %d; want %d", i, out[i], in[i])
		}
	}
}

func TestDownsample48kTo16k(t *testing.T) {
	r, err := New(48000, 16000)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	// One second of tone pushed through in capture-sized chunks.
	const chunk = 1536
	var total int
	for i := 0; i < 48000/chunk; i++ {
		out, err := r.Process(sine(200, 48000, chunk))
		if err != nil {
			t.Fatalf("Process error: %v", err)
		}
		total += len(out)
	}

	// Filter latency holds back a few samples; the overall ratio must
	// still be close to 1/3.
	want := 16000
	if total < want*9/10 || total > want*11/10 {
		t.Errorf("downsampled %d samples from 48000; want about %d", total, want)
	}
}

func TestInvalidRates(t *testing.T) {
	if _, err := New(0, 16000); err == nil {
		t.Error("New(0, 16000) succeeded; want error")
	}
	if _, err := New(48000, -1); err == nil {
		t.Error("New(48000, -1) succeeded; want error")
	}
}
