// Package device provides microphone capture and speaker playback through
// PortAudio.
//
// Each device is owned by exactly one engine: the sender engine reads the
// Input, the playback worker writes the Output. Failure to open a device
// is fatal to engine startup; failures after that are returned per chunk
// and the caller decides whether to continue.
package device

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/januslink/janus/pkg/audio/pcm"
)

// DefaultChunkSamples is the capture chunk size in samples. At 48kHz
// this is 32ms per chunk, which keeps VAD gating responsive.
const DefaultChunkSamples = 1536

var initOnce sync.Once

func initPortAudio() error {
	var err error
	initOnce.Do(func() {
		err = portaudio.Initialize()
	})
	return err
}

// Input captures mono 16-bit PCM chunks from the default microphone.
type Input struct {
	format pcm.Format
	buf    []int16

	mu     sync.Mutex
	stream *portaudio.Stream
}

// OpenInput opens the default capture device in the given format.
func OpenInput(format pcm.Format, chunkSamples int) (*Input, error) {
	if err := initPortAudio(); err != nil {
		return nil, fmt.Errorf("device: initialize portaudio: %w", err)
	}
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}
	in := &Input{
		format: format,
		buf:    make([]int16, chunkSamples),
	}
	stream, err := portaudio.OpenDefaultStream(
		1, 0, float64(format.SampleRate()), chunkSamples, in.buf,
	)
	if err != nil {
		return nil, fmt.Errorf("device: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("device: start input stream: %w", err)
	}
	in.stream = stream
	return in, nil
}

// ReadChunk blocks until one chunk of samples has been captured and
// returns a copy of it.
func (in *Input) ReadChunk() ([]int16, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stream == nil {
		return nil, fmt.Errorf("device: input closed")
	}
	if err := in.stream.Read(); err != nil {
		return nil, fmt.Errorf("device: read input: %w", err)
	}
	out := make([]int16, len(in.buf))
	copy(out, in.buf)
	return out, nil
}

// Format returns the capture format.
func (in *Input) Format() pcm.Format { return in.format }

// ChunkSamples returns the number of samples in one captured chunk.
func (in *Input) ChunkSamples() int { return len(in.buf) }

// Close stops and closes the capture stream.
func (in *Input) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stream == nil {
		return nil
	}
	in.stream.Stop()
	err := in.stream.Close()
	in.stream = nil
	return err
}

// Output plays mono 16-bit PCM through the default speaker device.
type Output struct {
	format pcm.Format
	buf    []int16

	mu     sync.Mutex
	stream *portaudio.Stream
}

// OpenOutput opens the default playback device in the given format.
func OpenOutput(format pcm.Format, chunkSamples int) (*Output, error) {
	if err := initPortAudio(); err != nil {
		return nil, fmt.Errorf("device: initialize portaudio: %w", err)
	}
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}
	out := &Output{
		format: format,
		buf:    make([]int16, chunkSamples),
	}
	stream, err := portaudio.OpenDefaultStream(
		0, 1, float64(format.SampleRate()), chunkSamples, out.buf,
	)
	if err != nil {
		return nil, fmt.Errorf("device: open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("device: start output stream: %w", err)
	}
	out.stream = stream
	return out, nil
}

// WriteChunk plays the given L16 bytes, blocking until the device has
// accepted all of them.
func (o *Output) WriteChunk(audio []byte) error {
	samples := pcm.Decode(audio)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream == nil {
		return fmt.Errorf("device: output closed")
	}
	for pos := 0; pos < len(samples); pos += len(o.buf) {
		n := copy(o.buf, samples[pos:])
		for i := n; i < len(o.buf); i++ {
			o.buf[i] = 0
		}
		if err := o.stream.Write(); err != nil {
			return fmt.Errorf("device: write output: %w", err)
		}
	}
	return nil
}

// Format returns the playback format.
func (o *Output) Format() pcm.Format { return o.format }

// Close stops and closes the playback stream.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream == nil {
		return nil
	}
	o.stream.Stop()
	err := o.stream.Close()
	o.stream = nil
	return err
}

// DeviceInfo describes one audio device for operator display.
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefaultInput    bool
	IsDefaultOutput   bool
}

// List returns the available audio devices.
func List() ([]DeviceInfo, error) {
	if err := initPortAudio(); err != nil {
		return nil, fmt.Errorf("device: initialize portaudio: %w", err)
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("device: list devices: %w", err)
	}
	defaultIn, _ := portaudio.DefaultInputDevice()
	defaultOut, _ := portaudio.DefaultOutputDevice()

	infos := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		infos = append(infos, DeviceInfo{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			IsDefaultInput:    defaultIn != nil && d.Name == defaultIn.Name,
			IsDefaultOutput:   defaultOut != nil && d.Name == defaultOut.Name,
		})
	}
	return infos, nil
}
