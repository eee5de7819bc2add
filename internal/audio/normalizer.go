// Package audio normalizes uploaded voice recordings to the canonical
// storage format: mono, 16 kHz, 16-bit PCM WAV.
package audio

import (
	"context"
	"fmt"
	"strings"
)

// TargetSampleRate is the canonical sample rate for stored recordings.
const TargetSampleRate = 16000

// Normalized is the result of normalizing an upload: the canonical WAV
// payload plus attributes derived from the signal. Duration comes from
// the post-normalization signal; sample rate and channel count of the
// original input are kept for provenance.
type Normalized struct {
	WAV                []byte
	DurationSeconds    float64
	OriginalSampleRate int
	OriginalChannels   int
	SizeBytes          int64
}

// decodeFunc decodes a payload into interleaved float32 samples in
// [-1, 1] plus the source sample rate and channel count.
type decodeFunc func(ctx context.Context, payload []byte) (samples []float32, sampleRate, channels int, err error)

// Normalizer converts supported audio payloads to the canonical format.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	targetRate int
	decoders   map[string]decodeFunc
}

// NewNormalizer creates a Normalizer targeting TargetSampleRate with
// decoders for the supported extensions (wav, mp3, ogg, flac, m4a).
func NewNormalizer() *Normalizer {
	return &Normalizer{
		targetRate: TargetSampleRate,
		decoders: map[string]decodeFunc{
			"wav":  decodeWAV,
			"mp3":  decodeMP3,
			"ogg":  decodeOGG,
			"flac": decodeFLAC,
			"m4a":  decodeM4A,
		},
	}
}

// Supported reports whether the declared extension is in the supported
// set. The match is case-insensitive and tolerates a leading dot.
func (n *Normalizer) Supported(ext string) bool {
	_, ok := n.decoders[normalizeExt(ext)]
	return ok
}

// Normalize decodes payload as the format implied by the declared
// extension, downmixes to mono, resamples to the target rate and
// re-encodes as 16-bit PCM WAV. It is a pure transformation: nothing is
// written anywhere, and the same input always yields the same output.
func (n *Normalizer) Normalize(ctx context.Context, payload []byte, ext string) (*Normalized, error) {
	decode, ok := n.decoders[normalizeExt(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrEmptyPayload)
	}

	samples, sampleRate, channels, err := decode(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if sampleRate <= 0 || channels <= 0 || len(samples) == 0 {
		return nil, fmt.Errorf("%w: decoded stream is empty", ErrDecode)
	}

	mono := downmixMono(samples, channels)
	if sampleRate != n.targetRate {
		mono = resample(mono, sampleRate, n.targetRate)
	}

	pcm := quantize16(mono)
	wavBytes := encodeWAV16(n.targetRate, pcm)

	return &Normalized{
		WAV:                wavBytes,
		DurationSeconds:    float64(len(pcm)) / float64(n.targetRate),
		OriginalSampleRate: sampleRate,
		OriginalChannels:   channels,
		SizeBytes:          int64(len(wavBytes)),
	}, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// quantize16 clamps samples to [-1, 1] and scales to int16 PCM.
func quantize16(samples []float32) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		pcm[i] = int16(s * 32767.0)
	}
	return pcm
}
