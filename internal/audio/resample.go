package audio

import "math"

// resample converts a mono signal from srcRate to dstRate using cubic
// interpolation over four neighbouring samples. When downsampling, a
// one-pole low-pass pre-filter reduces aliasing. The function is
// deterministic: identical input always yields identical output.
func resample(in []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(in) == 0 {
		return in
	}

	ratio := float64(srcRate) / float64(dstRate)
	if ratio > 1 {
		in = lowpass(in, 0.5)
	}

	outLen := int(math.Ceil(float64(len(in)) * float64(dstRate) / float64(srcRate)))
	out := make([]float32, 0, outLen)

	pos := 0.0
	for {
		i := int(pos)
		if i >= len(in) {
			break
		}
		frac := float32(pos - float64(i))
		out = append(out, cubicInterpolate(
			sampleAt(in, i-1),
			in[i],
			sampleAt(in, i+1),
			sampleAt(in, i+2),
			frac,
		))
		pos += ratio
	}

	return out
}

// lowpass applies a one-pole filter y[n] = alpha*x[n] + (1-alpha)*y[n-1].
// The state is seeded with the first sample to avoid a warm-up transient.
func lowpass(in []float32, alpha float32) []float32 {
	out := make([]float32, len(in))
	state := in[0]
	for i, x := range in {
		state = alpha*x + (1-alpha)*state
		out[i] = state
	}
	return out
}

// sampleAt reads in[i], clamping the index so edge interpolation
// duplicates the boundary samples.
func sampleAt(in []float32, i int) float32 {
	if i < 0 {
		return in[0]
	}
	if i >= len(in) {
		return in[len(in)-1]
	}
	return in[i]
}

// cubicInterpolate evaluates a four-point cubic through y0..y3 at
// fractional position t in [0, 1) between y1 and y2.
func cubicInterpolate(y0, y1, y2, y3, t float32) float32 {
	a0 := y3 - y2 - y0 + y1
	a1 := y0 - y1 - a0
	a2 := y2 - y0
	a3 := y1

	return ((a0*t+a1)*t+a2)*t + a3
}
