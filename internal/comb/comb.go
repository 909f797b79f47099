// Package comb implements a small Schroeder-style reverb (comb filter plus
// allpass diffuser) over 16-bit stereo PCM, fed and drained incrementally
// through a bounded ring buffer.
package comb

// allpassFilter is a single feedback/feedforward delay stage used to
// diffuse the comb filters' output into smoother-sounding reverb tails.
type allpassFilter struct {
	buffer   []int32
	pos      int
	feedback float32
}

func newAllpass(delay int) *allpassFilter {
	if delay < 1 {
		delay = 1
	}
	return &allpassFilter{buffer: make([]int32, delay), feedback: 0.5}
}

func (a *allpassFilter) process(input int32) int32 {
	bufOut := a.buffer[a.pos]
	output := -input + bufOut
	a.buffer[a.pos] = input + int32(float32(bufOut)*a.feedback)
	a.pos = (a.pos + 1) % len(a.buffer)
	return output
}

// combFilter is a feedback delay line with a one-pole lowpass in the
// feedback path (the damping term), the standard Freeverb-style building
// block.
type combFilter struct {
	buffer      []int32
	pos         int
	feedback    float32
	damping     float32
	filterStore float32
}

func newCombFilter(delay int, feedback, damping float32) *combFilter {
	if delay < 1 {
		delay = 1
	}
	return &combFilter{buffer: make([]int32, delay), feedback: feedback, damping: damping}
}

func (c *combFilter) process(input int32) int32 {
	output := c.buffer[c.pos]
	c.filterStore = float32(output)*(1-c.damping) + c.filterStore*c.damping
	c.buffer[c.pos] = input + int32(c.filterStore*c.feedback)
	c.pos = (c.pos + 1) % len(c.buffer)
	return output
}

// Reverber is the interface both the live player (ittrack, fed in small
// incremental chunks from the mixer) and the offline renderer drive.
type Reverber interface {
	InputSamples(in []int16) int
	GetAudio(out []int16) int
}

// StereoReverb is a bounded-memory stereo reverb: one comb+allpass chain per
// channel, mixed against the dry signal by mix, with a fixed-capacity ring
// buffer decoupling producer (InputSamples) from consumer (GetAudio).
type StereoReverb struct {
	bufSize int // capacity in stereo frames
	audio   []int16
	readPos, writePos, n int

	combL, combR *combFilter
	apL, apR     *allpassFilter
	mix          float32
}

// NewStereoReverb builds a general-purpose reverb: bufferFrames is the ring
// buffer capacity in stereo frames, feedback and damping tune the comb
// filters' decay character, and mix is the wet/dry blend (0=dry, 1=wet).
func NewStereoReverb(bufferFrames int, feedback, damping, mix float32, sampleRate int) *StereoReverb {
	delaySamples := (sampleRate * 40) / 1000
	return newStereoReverb(bufferFrames, feedback, damping, mix, delaySamples)
}

// NewCombFixed builds a fully-wet single-comb reverb from a preset
// feedback/delay pair, matching the shape ittrack's --reverb flag presets
// use (internal/config.Config.Reverb).
func NewCombFixed(bufferFrames int, feedback float32, delayMs, sampleRate int) Reverber {
	delaySamples := (delayMs * sampleRate) / 1000
	return newStereoReverb(bufferFrames, feedback, 0.2, 1.0, delaySamples)
}

func newStereoReverb(bufferFrames int, feedback, damping, mix float32, delaySamples int) *StereoReverb {
	return &StereoReverb{
		bufSize: bufferFrames,
		audio:   make([]int16, bufferFrames*2),
		combL:   newCombFilter(delaySamples, feedback, damping),
		combR:   newCombFilter(delaySamples+11, feedback, damping),
		apL:     newAllpass(delaySamples/4 + 1),
		apR:     newAllpass(delaySamples/4 + 1),
		mix:     mix,
	}
}

func clampInt16(v float32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// InputSamples feeds interleaved stereo PCM into the reverb and returns the
// number of samples (not frames) actually consumed; the remainder must be
// retried once GetAudio has drained space.
func (r *StereoReverb) InputSamples(in []int16) int {
	framesIn := len(in) / 2
	free := r.bufSize - r.n
	if framesIn > free {
		framesIn = free
	}
	if framesIn == 0 {
		return 0
	}

	for i := 0; i < framesIn; i++ {
		l, rr := in[i*2], in[i*2+1]
		wetL := r.apL.process(r.combL.process(int32(l)))
		wetR := r.apR.process(r.combR.process(int32(rr)))
		outL := float32(l)*(1-r.mix) + float32(wetL)*r.mix
		outR := float32(rr)*(1-r.mix) + float32(wetR)*r.mix

		pos := r.writePos % r.bufSize
		r.audio[pos*2] = clampInt16(outL)
		r.audio[pos*2+1] = clampInt16(outR)
		r.writePos++
		r.n++
	}
	return framesIn * 2
}

// GetAudio drains up to len(out)/2 processed frames into out, returning the
// number of samples (not frames) written.
func (r *StereoReverb) GetAudio(out []int16) int {
	framesWanted := len(out) / 2
	if framesWanted > r.n {
		framesWanted = r.n
	}
	for i := 0; i < framesWanted; i++ {
		pos := r.readPos % r.bufSize
		out[i*2] = r.audio[pos*2]
		out[i*2+1] = r.audio[pos*2+1]
		r.readPos++
		r.n--
	}
	return framesWanted * 2
}
