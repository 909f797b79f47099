package ittrack

// effectByOpcode maps the IT effect-letter opcode (1..26) to its EffectKind.
// Index 0 maps opcode 0 ("no effect") to EffectNone.
var effectByOpcode = [...]EffectKind{
	0: EffectNone,
	1: EffectSetSpeed,
	2: EffectPositionJump,
	3: EffectPatternBreak,
	4: EffectVolumeSlide,
	5: EffectPortamentoDown,
	6: EffectPortamentoUp,
	7: EffectTonePortamento,
	8: EffectVibrato,
	9: EffectTremor,
	10: EffectArpeggio,
	11: EffectVolumeSlideVibrato,
	12: EffectVolumeSlideTonePortamento,
	13: EffectSetChannelVolume,
	14: EffectChannelVolumeSlide,
	15: EffectSampleOffset,
	16: EffectPanningSlide,
	17: EffectRetrigger,
	18: EffectTremolo,
	19: EffectSpecial,
	20: EffectTempo,
	21: EffectFineVibrato,
	22: EffectSetGlobalVolume,
	23: EffectGlobalVolumeSlide,
	24: EffectSetPanning,
	25: EffectPanbrello,
	26: EffectMidiMacro,
}

// decodeEffect maps a raw IT effect opcode + parameter byte to a tagged
// Effect. Opcodes outside 1..26 (and 0) collapse to EffectNone rather than
// erroring, per §4.2 — row dispatch must remain a total function of the
// byte stream.
func decodeEffect(opcode, param byte) Effect {
	if int(opcode) >= len(effectByOpcode) {
		return Effect{Kind: EffectNone}
	}
	return Effect{Kind: effectByOpcode[opcode], Param: param}
}
