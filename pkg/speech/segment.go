package speech

import (
	"strings"
	"unicode"
)

// SentenceBuffer accumulates streamed text and yields complete sentences
// at sentence-ending punctuation. The receive side uses it to pace
// synthesis: each completed sentence is synthesized immediately instead
// of waiting for the whole packet to be rendered at once.
//
// Janus packets are VAD-delimited turns and often carry no terminal
// punctuation, so callers must Flush after feeding a packet. End of
// packet acts as an implicit full stop; a trailing fragment is never
// left behind.
type SentenceBuffer struct {
	buf []rune

	// pending marks a '.' or ':' preceded by a digit. Whether it ends
	// the sentence depends on the next rune: 9.9 and 10:15 continue,
	// anything else closes at the mark.
	pending bool
}

// Feed appends text to the buffer and returns any sentences completed by
// it, boundary punctuation included. Text may arrive at any granularity,
// from single runes to whole utterances.
func (b *SentenceBuffer) Feed(text string) []string {
	var out []string
	emit := func() {
		if s, ok := b.Flush(); ok {
			out = append(out, s)
		}
	}
	for _, r := range text {
		if b.pending {
			b.pending = false
			if !unicode.IsNumber(r) {
				emit()
			}
		}
		b.buf = append(b.buf, r)
		switch r {
		case '.', ':':
			if len(b.buf) >= 2 && unicode.IsNumber(b.buf[len(b.buf)-2]) {
				b.pending = true
			} else {
				emit()
			}
		case '?', '!', ';', '\n', '\r',
			'。', '？', '！', '；', '…':
			emit()
		}
	}
	return out
}

// Flush returns the buffered text, trimmed, and clears the buffer. The
// second result is false when nothing but whitespace was buffered.
func (b *SentenceBuffer) Flush() (string, bool) {
	s := strings.TrimSpace(string(b.buf))
	b.buf = b.buf[:0]
	b.pending = false
	return s, s != ""
}

// Len returns the number of buffered runes.
func (b *SentenceBuffer) Len() int { return len(b.buf) }
