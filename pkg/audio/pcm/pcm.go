// Package pcm provides arithmetic over raw 16-bit linear PCM audio.
//
// Every stage of a Janus node (capture, VAD, prosody, morse, playback)
// works on mono L16 buffers; this package keeps the rate/duration/byte
// conversions in one place.
package pcm

import (
	"encoding/binary"
	"time"
)

const (
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K Format = iota
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
)

// Format represents a mono 16-bit PCM audio format.
type Format int

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio format")
}

// BytesPerSample returns the size of one sample in bytes.
func (f Format) BytesPerSample() int { return 2 }

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int) int {
	return bytes / f.BytesPerSample()
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int {
	return int(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int {
	return f.SamplesInDuration(d) * f.BytesPerSample()
}

// Duration returns the playing time of the given number of bytes.
func (f Format) Duration(bytes int) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case L16Mono16K:
		return "audio/L16; rate=16000; channels=1"
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	}
	panic("pcm: invalid audio format")
}

// Decode converts little-endian L16 bytes into int16 samples.
func Decode(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

// AppendEncode appends the little-endian L16 encoding of samples to dst
// and returns the extended slice.
func AppendEncode(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}

// Encode converts int16 samples into little-endian L16 bytes.
func Encode(samples []int16) []byte {
	return AppendEncode(make([]byte, 0, len(samples)*2), samples)
}

// Silence returns d worth of silent audio in the given format.
func (f Format) Silence(d time.Duration) []byte {
	return make([]byte, f.BytesInDuration(d))
}
