package ittrack

// computeLengthAndSeekTable performs the dry-run simulation described in
// SPEC_FULL.md §4.5: walk the order list without producing any audio,
// tracking tempo/speed changes and pattern-break/position-jump control
// flow, to build a seek table supporting O(log orders + log rows) seeking
// by timestamp. It sets t.LengthSeconds and t.SeekTable.
func computeLengthAndSeekTable(t *Track) {
	tempo := t.Tempo
	speed := t.Speed
	length := 0.0

	for orderIdx := 0; orderIdx < len(t.Orders); orderIdx++ {
		patternIdx := t.Orders[orderIdx]
		if patternIdx == OrderEnd {
			break
		}
		if patternIdx == OrderSkip || int(patternIdx) >= len(t.Patterns) {
			// Zero-duration entry keeps SeekTable indexed like t.Orders.
			t.SeekTable = append(t.SeekTable, SeekOrder{Start: length})
			continue
		}

		pattern := t.Patterns[patternIdx]
		so := SeekOrder{Start: length}

		row := 0
		jumped := false
	scanLoop:
		for row < pattern.Rows {
			rowStart := length
			endOfRow := false // PatternBreak seen this row

			for channel := 0; channel < PatternChannels; channel++ {
				n := pattern.At(channel, row)
				if !n.Initialized || n.Effect.Kind == EffectNone {
					continue
				}
				switch n.Effect.Kind {
				case EffectSetSpeed:
					speed = n.Effect.Param
				case EffectTempo:
					if n.Effect.Param > 0x20 {
						tempo = n.Effect.Param
					}
				case EffectPatternBreak:
					endOfRow = true
				case EffectPositionJump:
					target := int(n.Effect.Param)
					if target <= orderIdx {
						// Backward jump: infinite loop by construction.
						// Truncate the dry-run at the start of this row.
						jumped = true
					} else {
						so.Rows = append(so.Rows, SeekRow{Start: rowStart, Speed: speed, Tempo: tempo})
						length += rowDuration(tempo, speed)
					}
					row = pattern.Rows
					break scanLoop
				}
			}

			so.Rows = append(so.Rows, SeekRow{Start: rowStart, Speed: speed, Tempo: tempo})
			length += rowDuration(tempo, speed)
			if endOfRow {
				row = pattern.Rows
				continue
			}
			row++
		}

		t.SeekTable = append(t.SeekTable, so)
		if jumped {
			t.LengthSeconds = length
			return
		}
	}

	t.LengthSeconds = length
}

// rowDuration is the wall-clock time of one row at the given tempo/speed:
// speed ticks, each (2.5/tempo) seconds.
func rowDuration(tempo, speed uint8) float64 {
	return (2.5 / float64(tempo)) * float64(speed)
}

// SeekSeconds finds the order/row whose recorded start is the latest one
// not after target, per SPEC_FULL.md §4.6 "Seeking by seconds". It returns
// the order index, row index, and the row's recorded speed/tempo.
func (t *Track) SeekSeconds(target float64) (order, row int, speed, tempo uint8, landedAt float64) {
	if len(t.SeekTable) == 0 {
		return 0, 0, t.Speed, t.Tempo, 0
	}

	// Binary search over orders by Start.
	lo, hi := 0, len(t.SeekTable)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.SeekTable[mid].Start <= target {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	order = lo
	rows := t.SeekTable[order].Rows
	if len(rows) == 0 {
		return order, 0, t.Speed, t.Tempo, t.SeekTable[order].Start
	}

	rlo, rhi := 0, len(rows)-1
	for rlo < rhi {
		mid := (rlo + rhi + 1) / 2
		if rows[mid].Start <= target {
			rlo = mid
		} else {
			rhi = mid - 1
		}
	}
	row = rlo
	return order, row, rows[row].Speed, rows[row].Tempo, rows[row].Start
}
