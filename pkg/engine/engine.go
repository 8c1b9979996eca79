// Package engine runs the two halves of a Janus node: the sender turns
// microphone audio into packets, the receiver turns packets back into
// audio.
//
// Both engines are plain loops driven by Run(ctx). They depend on small
// interfaces for their collaborators (capture device, link, speech
// models), so tests drive them with in-memory fakes and the CLI wires
// in the real ones. Queues between stages are bounded and shed the
// oldest entry under pressure: on a 300-bit link, stale speech is worth
// less than fresh speech.
package engine

import (
	"github.com/januslink/janus/pkg/audio/pcm"
)

const (
	// DefaultQueueSize bounds the capture and playback queues.
	DefaultQueueSize = 100

	// DefaultSilenceChunks is how many consecutive non-speech chunks end
	// a streamed utterance. At 32ms per chunk this is about half a
	// second of silence.
	DefaultSilenceChunks = 16
)

// AudioSource captures audio one chunk at a time. device.Input satisfies
// it; ReadChunk blocks until a chunk is available and unblocks with an
// error when the source is closed.
type AudioSource interface {
	ReadChunk() ([]int16, error)
	Format() pcm.Format
}

// AudioSink plays L16 audio. device.Output satisfies it.
type AudioSink interface {
	WriteChunk(audio []byte) error
}

// enqueue adds audio to a bounded queue without ever blocking, shedding
// the oldest buffered entry when the queue is full.
func enqueue(queue chan []byte, audio []byte) (dropped bool) {
	select {
	case queue <- audio:
		return false
	default:
	}
	select {
	case <-queue:
		dropped = true
	default:
	}
	select {
	case queue <- audio:
	default:
	}
	return dropped
}
