package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// decodeWAV decodes a RIFF/WAVE payload via go-audio/wav.
func decodeWAV(_ context.Context, payload []byte) ([]float32, int, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(payload))

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, 0, fmt.Errorf("wav: no audio data")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	return samples, buf.Format.SampleRate, buf.Format.NumChannels, nil
}

// decodeMP3 decodes an MPEG audio payload. go-mp3 always emits stereo
// 16-bit little-endian PCM at the source sample rate.
func decodeMP3(_ context.Context, payload []byte) ([]float32, int, int, error) {
	dec, err := gomp3.NewDecoder(bytes.NewReader(payload))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("mp3: %w", err)
	}

	return pcm16BytesToFloat32(raw), dec.SampleRate(), 2, nil
}

// decodeOGG decodes an Ogg Vorbis payload.
func decodeOGG(_ context.Context, payload []byte) ([]float32, int, int, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(payload))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("ogg: %w", err)
	}

	return samples, format.SampleRate, format.Channels, nil
}

// decodeFLAC decodes a FLAC payload, interleaving the per-channel
// subframe samples.
func decodeFLAC(_ context.Context, payload []byte) ([]float32, int, int, error) {
	stream, err := flac.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	scale := float32(int64(1) << (info.BitsPerSample - 1))

	var samples []float32
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("flac: %w", err)
		}

		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				samples = append(samples, float32(frame.Subframes[c].Samples[i])/scale)
			}
		}
	}

	return samples, int(info.SampleRate), channels, nil
}

// pcm16BytesToFloat32 converts interleaved 16-bit little-endian PCM
// bytes to float32 samples in [-1, 1].
func pcm16BytesToFloat32(raw []byte) []float32 {
	count := len(raw) / 2
	samples := make([]float32, count)
	for i := 0; i < count; i++ {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float32(v) / 32768.0
	}
	return samples
}
