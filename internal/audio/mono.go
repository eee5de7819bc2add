package audio

// downmixMono reduces interleaved multi-channel samples to one channel
// by averaging each frame. Averaging (rather than dropping channels)
// preserves the signal energy of the recording.
func downmixMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]float32, frames)
	inv := float32(1.0) / float32(channels)

	switch channels {
	case 2:
		for f := 0; f < frames; f++ {
			idx := f * 2
			mono[f] = (samples[idx] + samples[idx+1]) * 0.5
		}
	default:
		for f := 0; f < frames; f++ {
			base := f * channels
			var sum float32
			for c := 0; c < channels; c++ {
				sum += samples[base+c]
			}
			mono[f] = sum * inv
		}
	}

	return mono
}
