// Package morse renders text as International Morse Code tone audio.
//
// Morse mode is the deepest fallback of a Janus link: it needs no
// synthesizer at all. The receiver keys an 800Hz sine locally from the
// packet text using standard timing ratios (dash = 3 dots, letter gap =
// 3 dots, word gap = 7 dots).
package morse

import (
	"math"
	"strings"
	"time"

	"github.com/januslink/janus/pkg/audio/pcm"
)

// Timing and tone constants. The dot is the base time unit.
const (
	ToneHz = 800

	DotDuration  = 100 * time.Millisecond
	DashDuration = 3 * DotDuration
	// symbolGap separates dots and dashes within one letter.
	symbolGap = DotDuration
	// letterGap separates letters within one word.
	letterGap = 3 * DotDuration
	// wordGap separates words.
	wordGap = 7 * DotDuration

	// amplitude scales the tone to half of full scale, loud enough to
	// be unmistakable without clipping headroom for mixing.
	amplitude = 0.5
)

var codes = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".", 'F': "..-.",
	'G': "--.", 'H': "....", 'I': "..", 'J': ".---", 'K': "-.-", 'L': ".-..",
	'M': "--", 'N': "-.", 'O': "---", 'P': ".--.", 'Q': "--.-", 'R': ".-.",
	'S': "...", 'T': "-", 'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-",
	'Y': "-.--", 'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
	'.': ".-.-.-", ',': "--..--", '?': "..--..", '!': "-.-.--", '/': "-..-.",
}

// Encode translates text to its dot-dash representation, letters
// separated by spaces and words by " / ". Characters without a Morse
// code are dropped.
func Encode(text string) string {
	var words []string
	for _, word := range strings.Fields(strings.ToUpper(text)) {
		var letters []string
		for _, r := range word {
			if code, ok := codes[r]; ok {
				letters = append(letters, code)
			}
		}
		if len(letters) > 0 {
			words = append(words, strings.Join(letters, " "))
		}
	}
	return strings.Join(words, " / ")
}

// Synthesize renders text as keyed tone audio in the given PCM format.
// Unknown characters are skipped. Empty or fully unmappable text yields
// an empty buffer.
func Synthesize(text string, format pcm.Format) []byte {
	var out []byte
	text = strings.ToUpper(strings.TrimSpace(text))

	wroteLetter := false
	for _, r := range text {
		if r == ' ' {
			if wroteLetter {
				out = append(out, format.Silence(wordGap)...)
				wroteLetter = false
			}
			continue
		}
		pattern, ok := codes[r]
		if !ok {
			continue
		}
		if wroteLetter {
			out = append(out, format.Silence(letterGap)...)
		}
		for i, symbol := range pattern {
			if i > 0 {
				out = append(out, format.Silence(symbolGap)...)
			}
			switch symbol {
			case '.':
				out = append(out, tone(format, DotDuration)...)
			case '-':
				out = append(out, tone(format, DashDuration)...)
			}
		}
		wroteLetter = true
	}
	return out
}

// tone generates one keyed sine burst.
func tone(format pcm.Format, d time.Duration) []byte {
	rate := format.SampleRate()
	n := format.SamplesInDuration(d)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*ToneHz*float64(i)/float64(rate)))
	}
	return pcm.Encode(samples)
}
