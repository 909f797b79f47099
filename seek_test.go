package ittrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowDuration(t *testing.T) {
	assert.InDelta(t, 0.12, rowDuration(125, 6), 1e-9)
	assert.InDelta(t, 0.05, rowDuration(100, 2), 1e-9)
}

func newTestTrack(patterns []*Pattern, orders []uint8, speed, tempo uint8) *Track {
	return &Track{Patterns: patterns, Orders: orders, Speed: speed, Tempo: tempo}
}

func TestComputeLengthNoEffects(t *testing.T) {
	p := NewPattern(2)
	tr := newTestTrack([]*Pattern{p}, []uint8{0, OrderEnd}, 6, 125)
	computeLengthAndSeekTable(tr)

	assert.InDelta(t, 2*rowDuration(125, 6), tr.LengthSeconds, 1e-9)
	require.Len(t, tr.SeekTable, 1)
	require.Len(t, tr.SeekTable[0].Rows, 2)
	assert.InDelta(t, 0, tr.SeekTable[0].Rows[0].Start, 1e-9)
	assert.InDelta(t, rowDuration(125, 6), tr.SeekTable[0].Rows[1].Start, 1e-9)
}

func TestComputeLengthSpeedTempoChangeAppliesFromItsOwnRow(t *testing.T) {
	p := NewPattern(2)
	p.Set(0, 0, Note{Initialized: true, Effect: Effect{Kind: EffectSetSpeed, Param: 3}})
	tr := newTestTrack([]*Pattern{p}, []uint8{0, OrderEnd}, 6, 125)
	computeLengthAndSeekTable(tr)

	require.Len(t, tr.SeekTable[0].Rows, 2)
	// Row 0's own recorded speed reflects its own mid-row SetSpeed effect.
	assert.Equal(t, uint8(3), tr.SeekTable[0].Rows[0].Speed)
	assert.Equal(t, uint8(3), tr.SeekTable[0].Rows[1].Speed)
	assert.InDelta(t, rowDuration(125, 3)+rowDuration(125, 3), tr.LengthSeconds, 1e-9)
}

func TestComputeLengthPatternBreakTruncatesPattern(t *testing.T) {
	p0 := NewPattern(4)
	p0.Set(0, 1, Note{Initialized: true, Effect: Effect{Kind: EffectPatternBreak}})
	p1 := NewPattern(2)
	tr := newTestTrack([]*Pattern{p0, p1}, []uint8{0, 1, OrderEnd}, 6, 125)
	computeLengthAndSeekTable(tr)

	require.Len(t, tr.SeekTable, 2)
	// Pattern 0 only scans rows 0 and 1 (break fires on row 1), not rows 2-3.
	assert.Len(t, tr.SeekTable[0].Rows, 2)
	assert.Len(t, tr.SeekTable[1].Rows, 2)
}

func TestComputeLengthBackwardPositionJumpTruncatesDryRun(t *testing.T) {
	p := NewPattern(2)
	p.Set(0, 0, Note{Initialized: true, Effect: Effect{Kind: EffectPositionJump, Param: 0}})
	tr := newTestTrack([]*Pattern{p, p}, []uint8{0, 1, OrderEnd}, 6, 125)
	computeLengthAndSeekTable(tr)

	// Order 0 jumps back to itself on row 0; the dry run must not loop
	// forever and stops at the start of that row, without counting it.
	require.Len(t, tr.SeekTable, 1)
	assert.InDelta(t, 0.0, tr.LengthSeconds, 1e-9)
}

func TestSeekSecondsLocatesOrderAndRow(t *testing.T) {
	p := NewPattern(4)
	tr := newTestTrack([]*Pattern{p, p}, []uint8{0, 1, OrderEnd}, 6, 125)
	computeLengthAndSeekTable(tr)

	rd := rowDuration(125, 6)
	order, row, speed, tempo, landed := tr.SeekSeconds(rd*5 + rd/2)
	assert.Equal(t, 1, order)
	assert.Equal(t, 1, row)
	assert.Equal(t, uint8(6), speed)
	assert.Equal(t, uint8(125), tempo)
	assert.InDelta(t, rd*5, landed, 1e-9)
}

func TestSeekSecondsBeforeStart(t *testing.T) {
	p := NewPattern(2)
	tr := newTestTrack([]*Pattern{p}, []uint8{0, OrderEnd}, 6, 125)
	computeLengthAndSeekTable(tr)

	order, row, _, _, landed := tr.SeekSeconds(-1)
	assert.Equal(t, 0, order)
	assert.Equal(t, 0, row)
	assert.InDelta(t, 0, landed, 1e-9)
}
