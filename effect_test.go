package ittrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeEffectTable(t *testing.T) {
	cases := []struct {
		opcode byte
		kind   EffectKind
	}{
		{0, EffectNone},
		{1, EffectSetSpeed},
		{2, EffectPositionJump},
		{3, EffectPatternBreak},
		{4, EffectVolumeSlide},
		{19, EffectSpecial},
		{20, EffectTempo},
		{22, EffectSetGlobalVolume},
		{24, EffectSetPanning},
		{26, EffectMidiMacro},
	}
	for _, c := range cases {
		got := decodeEffect(c.opcode, 0x42)
		assert.Equal(t, c.kind, got.Kind, "opcode %d", c.opcode)
		if c.kind != EffectNone {
			assert.Equal(t, byte(0x42), got.Param)
		}
	}
}

func TestDecodeEffectOutOfRangeCollapsesToNone(t *testing.T) {
	assert.Equal(t, EffectNone, decodeEffect(27, 0x10).Kind)
	assert.Equal(t, EffectNone, decodeEffect(255, 0x10).Kind)
}
