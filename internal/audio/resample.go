package audio

import "math"

// resampler converts interleaved stereo between rates by linear
// interpolation. It keeps the last input frame of each chunk so chunk
// boundaries interpolate against real data instead of restarting.
type resampler struct {
	ratio float64
	// pos is the next output position in input frames, relative to the
	// start of the upcoming chunk; -1 addresses the carried frame.
	pos    float64
	prev   [2]int16
	primed bool
}

func newResampler(inputRate, outputRate int) *resampler {
	return &resampler{ratio: float64(inputRate) / float64(outputRate)}
}

// process appends the resampled form of in to out.
func (r *resampler) process(in, out []int16) []int16 {
	frames := len(in) / 2
	if frames == 0 {
		return out
	}
	at := func(i int) (int16, int16) {
		if i < 0 {
			return r.prev[0], r.prev[1]
		}
		return in[i*2], in[i*2+1]
	}
	if !r.primed {
		r.pos = 0
		r.primed = true
	}

	for {
		idx := int(math.Floor(r.pos))
		if idx+1 >= frames {
			break
		}
		frac := r.pos - float64(idx)
		l0, r0 := at(idx)
		l1, r1 := at(idx + 1)
		out = append(out, lerp(l0, l1, frac), lerp(r0, r1, frac))
		r.pos += r.ratio
	}

	r.pos -= float64(frames)
	r.prev[0], r.prev[1] = in[(frames-1)*2], in[(frames-1)*2+1]
	return out
}

func lerp(a, b int16, frac float64) int16 {
	return int16(math.Round(float64(a)*(1-frac) + float64(b)*frac))
}
