package ittrack

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildMinimalIT hand-assembles a single-sample, single-pattern IT file
// byte-for-byte against loader.go's layout, since no real .it fixture is
// available and the loader's offsets are not independently verifiable
// without running the decoder.
func buildMinimalIT(t *testing.T) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	buf.WriteString("IMPM")

	var title [26]byte
	copy(title[:], "Test Song")

	h := header{
		Title:          title,
		NumOrders:      2,
		NumInstruments: 0,
		NumSamples:     1,
		NumPatterns:    1,
		GlobalVolume:   128,
		MixVolume:      48,
		InitialSpeed:   6,
		InitialTempo:   125,
	}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, &h))
	require.Equal(t, 0xC0, buf.Len())

	buf.Write([]byte{0, OrderEnd}) // orders

	const sampleOffset = 0xC0 + 2 + 4 + 4 // header+orders+sampleOffsets+patternOffsets
	const sampleHeaderLen = 4 + 72        // "IMPS" + sampleHeader
	const sampleDataOffset = sampleOffset + sampleHeaderLen
	const sampleDataLen = 4
	patternOffset := sampleDataOffset + sampleDataLen

	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint32(sampleOffset)))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint32(patternOffset)))
	require.Equal(t, sampleOffset, buf.Len())

	buf.WriteString("IMPS")
	var sampleName [26]byte
	copy(sampleName[:], "kick")
	sh := sampleHeader{
		DosName:       fixedBytesArray12("KICK.WAV"),
		GlobalVolume:  64,
		Flags:         sampleFlagLooping,
		DefaultVolume: 60,
		Name:          sampleName,
		LengthFrames:  sampleDataLen,
		LoopStart:     0,
		LoopEnd:       sampleDataLen,
		SampleRate:    22050,
		DataPointer:   uint32(sampleDataOffset),
	}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, &sh))
	require.Equal(t, sampleDataOffset, buf.Len())

	buf.Write([]byte{130, 126, 128, 132}) // unsigned 8-bit PCM, bias 128
	require.Equal(t, patternOffset, buf.Len())

	packed := []byte{
		0x81, pmaskNote | pmaskIns | pmaskVol | pmaskEffect, // chanVar=1 w/ mask, full mask
		60,          // note: octave 5, key C
		1,           // instrument 1 -> Sample index 0
		40,          // volume
		4, 0x0F,     // effect D, param 0x0F (VolumeSlide, continuous down by 15)
		0, // row terminator
	}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(len(packed))))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(1))) // rows
	buf.Write(make([]byte, 4))                                           // reserved
	buf.Write(packed)

	return buf.Bytes()
}

func fixedBytesArray12(s string) [12]byte {
	var b [12]byte
	copy(b[:], s)
	return b
}

func TestFromBytesSuccess(t *testing.T) {
	data := buildMinimalIT(t)
	tr, err := FromBytes(data)
	require.NoError(t, err)

	require.Equal(t, "Test Song", tr.Title)
	require.Equal(t, []byte{0, OrderEnd}, tr.Orders)
	require.Equal(t, uint8(6), tr.Speed)
	require.Equal(t, uint8(125), tr.Tempo)
	require.Equal(t, uint8(128), tr.GlobalVolume)
	require.Equal(t, uint8(48), tr.MixVolume)

	require.Len(t, tr.Samples, 1)
	s := tr.Samples[0]
	require.Equal(t, "kick", s.Name)
	require.Equal(t, 8, s.Format.Bits)
	require.Equal(t, 1, s.Format.Channels)
	require.True(t, s.Looping)
	require.Equal(t, []byte{2, 254, 0, 4}, s.Data) // 130,126,128,132 rebiased by -128

	require.Len(t, tr.Patterns, 1)
	p := tr.Patterns[0]
	require.Equal(t, 1, p.Rows)
	n := p.At(0, 0)
	require.True(t, n.Initialized)
	require.Equal(t, KeyC, n.Key)
	require.Equal(t, uint8(5), n.Octave)
	require.True(t, n.HasSample)
	require.Equal(t, uint8(0), n.Sample)
	require.True(t, n.HasVolume)
	require.Equal(t, uint8(40), n.Volume)
	require.Equal(t, EffectVolumeSlide, n.Effect.Kind)
	require.Equal(t, byte(0x0F), n.Effect.Param)

	// channel 1 was never written; must remain uninitialized, not zeroed.
	require.False(t, p.At(1, 0).Initialized)
}

func TestFromBytesInvalidMagic(t *testing.T) {
	_, err := FromBytes([]byte("JUNK"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestFromBytesTruncated(t *testing.T) {
	data := buildMinimalIT(t)
	_, err := FromBytes(data[:0xC0+1])
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestFromBytesInstrumentsUnsupported(t *testing.T) {
	data := buildMinimalIT(t)
	// Flags is a uint16 at offset 4 (magic) + 26 + 1 + 1 + 2 + 2 + 2 + 2 + 4 = 44.
	const flagsOffset = 4 + 26 + 1 + 1 + 2 + 2 + 2 + 2 + 4
	binary.LittleEndian.PutUint16(data[flagsOffset:], 4)

	_, err := FromBytes(data)
	require.ErrorIs(t, err, ErrInstrumentsUnsupported)
}
