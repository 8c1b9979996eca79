package pcm

import "encoding/binary"

// WAV wraps raw L16 audio in a minimal RIFF/WAVE container so it can be
// handed to external tools that refuse headerless PCM.
func (f Format) WAV(audio []byte) []byte {
	const headerSize = 44
	rate := uint32(f.SampleRate())
	byteRate := rate * uint32(f.BytesPerSample())

	out := make([]byte, 0, headerSize+len(audio))
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+len(audio)))
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, 1) // mono
	out = binary.LittleEndian.AppendUint32(out, rate)
	out = binary.LittleEndian.AppendUint32(out, byteRate)
	out = binary.LittleEndian.AppendUint16(out, uint16(f.BytesPerSample()))
	out = binary.LittleEndian.AppendUint16(out, 16) // bits per sample

	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(audio)))
	return append(out, audio...)
}
