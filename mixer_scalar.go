package ittrack

// These are the scalar per-voice readout routines: non-SIMD, implemented in
// Go, reading one frame at a time out of a voice's signed PCM buffer and
// normalizing it to [-1, 1] before interpolation and mixing.

// readSample resamples v at its current fixed-point position using its
// configured Interpolation, returning a mono contribution in [-1, 1]
// (multi-channel sample data is averaged down to mono before panning).
func (v *voice) readSample() float64 {
	frame := int(v.pos >> mixerFixedShift)
	s0 := v.frameAt(frame)

	if v.props.Interpolation != InterpolationLinear {
		return s0
	}

	frac := float64(v.pos&(mixerFixedOne-1)) / mixerFixedOne
	s1 := v.frameAt(frame + 1)
	return s0 + (s1-s0)*frac
}

// frameAt returns the normalized, mono-summed value of sample frame n, or 0
// if n falls outside the buffer (the non-looping tail read by linear
// interpolation's lookahead).
func (v *voice) frameAt(n int) float64 {
	if n < 0 || n >= v.frames {
		return 0
	}

	bpf := v.format.BytesPerFrame()
	off := n * bpf

	var sum float64
	switch v.format.Bits {
	case 8:
		for ch := 0; ch < v.format.Channels; ch++ {
			sum += float64(int8(v.data[off+ch])) / 128.0
		}
	case 16:
		for ch := 0; ch < v.format.Channels; ch++ {
			b := off + ch*2
			s := int16(uint16(v.data[b]) | uint16(v.data[b+1])<<8)
			sum += float64(s) / 32768.0
		}
	}
	return sum / float64(v.format.Channels)
}
