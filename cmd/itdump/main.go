// Command itdump parses an Impulse Tracker module and writes a structural
// dump (orders, pattern/sample counts, per-row decoded effects) to stdout,
// for debugging loader output and as the source of golden test fixtures.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/chriskillpack/ittrack"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("itdump: ")

	flagPattern := flag.Int("pattern", -1, "restrict the dump to this one pattern index")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("missing IT filename")
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	track, err := ittrack.FromBytes(data)
	if err != nil {
		log.Fatal(err)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	dumpTrack(w, track, *flagPattern)
}

func dumpTrack(w *bufio.Writer, t *ittrack.Track, onlyPattern int) {
	fmt.Fprintf(w, "title: %q\n", t.Title)
	fmt.Fprintf(w, "orders: %d, patterns: %d, samples: %d\n", len(t.Orders), len(t.Patterns), len(t.Samples))
	fmt.Fprintf(w, "speed: %d, tempo: %d, global_volume: %d, mix_volume: %d\n", t.Speed, t.Tempo, t.GlobalVolume, t.MixVolume)
	fmt.Fprintf(w, "length_seconds: %.3f\n", t.LengthSeconds)

	fmt.Fprint(w, "order list:")
	for i, o := range t.Orders {
		if i%16 == 0 {
			fmt.Fprintf(w, "\n  %4d:", i)
		}
		fmt.Fprintf(w, " %3d", o)
	}
	fmt.Fprintln(w)

	for i, s := range t.Samples {
		fmt.Fprintf(w, "sample %3d: %-26q %d-bit %dch rate=%d frames=%d loop=%v [%d,%d) gv=%d dv=%d\n",
			i, s.Name, s.Format.Bits, s.Format.Channels, s.Format.SampleRate, s.Frames(),
			s.Looping, s.LoopStart, s.LoopEnd, s.GlobalVolume, s.DefaultVolume)
	}

	for i, p := range t.Patterns {
		if onlyPattern >= 0 && i != onlyPattern {
			continue
		}
		dumpPattern(w, i, p)
	}
}

func dumpPattern(w *bufio.Writer, idx int, p *ittrack.Pattern) {
	fmt.Fprintf(w, "pattern %3d: %d rows\n", idx, p.Rows)
	for row := 0; row < p.Rows; row++ {
		any := false
		for ch := 0; ch < ittrack.PatternChannels; ch++ {
			if p.At(ch, row).Initialized {
				any = true
				break
			}
		}
		if !any {
			continue
		}

		fmt.Fprintf(w, "  row %3d:", row)
		for ch := 0; ch < ittrack.PatternChannels; ch++ {
			n := p.At(ch, row)
			if !n.Initialized {
				continue
			}
			fmt.Fprintf(w, " ch%02d=%s%d", ch, n.Key, n.Octave)
			if n.HasSample {
				fmt.Fprintf(w, " s%02d", n.Sample)
			}
			if n.HasVolume {
				fmt.Fprintf(w, " v%02d", n.Volume)
			}
			if n.Effect.Kind != ittrack.EffectNone {
				fmt.Fprintf(w, " fx%d:%02X", n.Effect.Kind, n.Effect.Param)
			}
		}
		fmt.Fprintln(w)
	}
}
