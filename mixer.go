package ittrack

// Interpolation selects how a voice's fractional read position is resampled
// between stored frames.
type Interpolation int

const (
	InterpolationNone Interpolation = iota
	InterpolationLinear
)

// mixerFixedShift is the fractional-bit width of a voice's 16.16 fixed-point
// read position, the same representation the teacher mixer used for its
// pos/dr resampling arithmetic.
const mixerFixedShift = 16
const mixerFixedOne = 1 << mixerFixedShift

// voiceProperties is everything PlayBuffer/SetChannelProperties can set on a
// running voice, per SPEC_FULL.md §4.4.
type voiceProperties struct {
	Volume        float64 // 0..1
	Speed         float64 // playback rate ratio; 1.0 = native rate
	Panning       float64 // 0 = left, 1 = right
	Looping       bool
	LoopStart     uint32
	LoopEnd       uint32
	Interpolation Interpolation
}

// voice is one mixer channel: a read-only view of sample data plus a
// fixed-point position advanced by dr (derived from Speed) once per output
// stereo frame.
type voice struct {
	props voiceProperties

	data    []byte
	format  SampleFormat
	frames  int
	playing bool

	pos uint64 // 16.16 fixed-point frame position
}

// mixer maintains up to PatternChannels voices. Advance() is called once per
// interleaved stereo channel value: odd calls compute and return a fresh
// stereo frame's left value (caching the right), even calls drain the
// cached right value. This matches the engine's one-call-per-channel-value
// contract without computing a frame twice.
type mixer struct {
	voices  [PatternChannels]voice
	phase   int
	cachedR float64
	mute    uint64 // bit i = channel i silenced at mix time
}

// SetMute replaces the mixer's mute bitmask; muted voices still advance
// their read position (so unmuting mid-note doesn't click back in time)
// but contribute nothing to the mix.
func (m *mixer) SetMute(mask uint64) { m.mute = mask }

// PlayBuffer (re)starts voiceIndex at frame 0 with the given sample data and
// properties, per SPEC_FULL.md §4.4.
func (m *mixer) PlayBuffer(voiceIndex int, data []byte, format SampleFormat, props voiceProperties) {
	v := &m.voices[voiceIndex]
	v.data = data
	v.format = format
	v.frames = 0
	if bpf := format.BytesPerFrame(); bpf > 0 {
		v.frames = len(data) / bpf
	}
	v.props = props
	v.pos = 0
	v.playing = v.frames > 0
}

// SetChannelProperties updates a running voice's properties without
// resetting its read position.
func (m *mixer) SetChannelProperties(voiceIndex int, props voiceProperties) {
	m.voices[voiceIndex].props = props
}

// SeekToSample repositions voiceIndex to an arbitrary frame within its
// current buffer.
func (m *mixer) SeekToSample(voiceIndex int, frame uint32) {
	m.voices[voiceIndex].pos = uint64(frame) << mixerFixedShift
}

// Stop idles a voice; it no longer contributes to the mix.
func (m *mixer) Stop(voiceIndex int) {
	m.voices[voiceIndex].playing = false
}

// Advance returns the next interleaved stereo sample, alternating left and
// right across successive calls.
func (m *mixer) Advance() float32 {
	if m.phase == 0 {
		l, r := m.mixFrame()
		m.cachedR = r
		m.phase = 1
		return float32(clampUnit(l))
	}
	m.phase = 0
	return float32(clampUnit(m.cachedR))
}

// mixFrame sums every playing voice's contribution for one stereo frame and
// advances each voice's read position. Accumulation happens in float64;
// clamping is deferred to Advance's float32 conversion, matching the
// teacher mixer's "no clamping until the caller sees it" contract.
func (m *mixer) mixFrame() (left, right float64) {
	for i := range m.voices {
		v := &m.voices[i]
		if !v.playing || v.frames == 0 {
			continue
		}

		if m.mute&(1<<uint(i)) == 0 {
			s := v.readSample()
			left += s * v.props.Volume * (1 - v.props.Panning)
			right += s * v.props.Volume * v.props.Panning
		}

		v.advance()
	}
	return left, right
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// advance moves v's fixed-point position forward by one output frame's worth
// of Speed, wrapping loop_end back to loop_start when looping, else stopping
// the voice once it runs past the end of its data.
func (v *voice) advance() {
	step := v.props.Speed * mixerFixedOne
	if step <= 0 {
		step = mixerFixedOne
	}
	v.pos += uint64(step)

	end := uint64(v.frames) << mixerFixedShift
	if v.props.Looping && v.props.LoopEnd > 0 && uint64(v.props.LoopEnd) <= uint64(v.frames) {
		end = uint64(v.props.LoopEnd) << mixerFixedShift
	}
	if v.pos < end {
		return
	}

	if !v.props.Looping {
		v.playing = false
		return
	}

	start := uint64(v.props.LoopStart) << mixerFixedShift
	span := end - start
	if span == 0 {
		v.pos = start
		return
	}
	v.pos = start + (v.pos-start)%span
}
