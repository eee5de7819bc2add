package audio

import "encoding/binary"

// encodeWAV16 encodes mono 16-bit PCM samples as a canonical 44-byte
// header WAV file at the given sample rate.
func encodeWAV16(sampleRate int, samples []int16) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)

	dataSize := uint32(len(samples) * 2)
	riffSize := 36 + dataSize
	byteRate := uint32(sampleRate) * numChannels * (bitsPerSample / 8)
	blockAlign := uint16(numChannels * (bitsPerSample / 8))

	out := make([]byte, 44+len(samples)*2)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], riffSize)
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], numChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], byteRate)
	binary.LittleEndian.PutUint16(out[32:34], blockAlign)
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], dataSize)

	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[44+i*2:46+i*2], uint16(s))
	}

	return out
}
