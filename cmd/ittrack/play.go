package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/gordonklaus/portaudio"

	"github.com/chriskillpack/ittrack"
	"github.com/chriskillpack/ittrack/internal/comb"
	"github.com/chriskillpack/ittrack/internal/logging"
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"

	visibleChannels   = 8
	patternRowsBefore = 4
	patternRowsAfter  = 4
)

var (
	white  = color.New(color.FgWhite).SprintfFunc()
	cyan   = color.New(color.FgCyan).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
	blue   = color.New(color.FgHiBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

// shell drives live playback: pulls stereo frames from the engine through
// an optional reverb stage into a portaudio callback, renders a scrolling
// pattern view, and handles pause/mute/solo/quit hotkeys.
type shell struct {
	engine *ittrack.Engine
	track  *ittrack.Track
	reverb comb.Reverber
	log    *logging.Logger

	stream *portaudio.Stream

	scratch      []float32
	int16Scratch []int16
	int16Out     []int16
	selectedCh   int
	soloCh       int

	wg             sync.WaitGroup
	stopOnce       sync.Once
	keyboardDoneCh chan struct{}
	done           chan struct{}
}

func playLive(engine *ittrack.Engine, track *ittrack.Track, reverb comb.Reverber, log *logging.Logger) error {
	s := &shell{
		engine:         engine,
		track:          track,
		reverb:         reverb,
		log:            log,
		scratch:        make([]float32, 4096),
		int16Scratch:   make([]int16, 4096),
		int16Out:       make([]int16, 4096),
		soloCh:         -1,
		keyboardDoneCh: make(chan struct{}),
		done:           make(chan struct{}),
	}
	return s.run()
}

func (s *shell) run() error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(outputHz), 0, s.streamCallback)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	s.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return err
	}

	s.setupSignalHandlers()
	s.setupKeyboardHandlers()

	fmt.Print(hideCursor)
	fmt.Println(s.track.Title)

	lastOrder, lastRow := -1, -1
	lines := 0
	for {
		select {
		case <-s.done:
			goto exit
		default:
		}

		order, row := s.engine.Position()
		if order != lastOrder || row != lastRow {
			if lines > 0 {
				fmt.Printf(escape+"%dF", lines)
			}
			lines = s.render(order, row)
			lastOrder, lastRow = order, row
		}
	}

exit:
	fmt.Print(showCursor)
	s.wg.Wait()
	return nil
}

// streamCallback fills out with one stereo frame's worth of engine output
// at a time, routed through the reverb's int16 ring buffer (InputSamples /
// GetAudio, the same incremental contract the offline renderer drives in
// bulk) before being handed to the audio device.
func (s *shell) streamCallback(out []float32) {
	n := len(out)
	if n > len(s.scratch) {
		n = len(s.scratch)
	}

	dry := s.int16Scratch[:n]
	if s.engine.IsPlaying() {
		for i := 0; i < n; i++ {
			dry[i] = floatToInt16(s.engine.Advance())
		}
	} else {
		clear(dry)
	}

	s.reverb.InputSamples(dry)
	wet := s.int16Out[:n]
	got := s.reverb.GetAudio(wet)

	for i := 0; i < got; i++ {
		out[i] = int16ToFloat(wet[i])
	}
	for i := got; i < n; i++ {
		out[i] = 0
	}
}

func floatToInt16(v float32) int16 {
	f := v * 32767
	if f > 32767 {
		return 32767
	}
	if f < -32768 {
		return -32768
	}
	return int16(f)
}

func int16ToFloat(v int16) float32 {
	return float32(v) / 32768.0
}

func (s *shell) setupSignalHandlers() {
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-sigch
		s.stop()
	}()
}

func (s *shell) setupKeyboardHandlers() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		keyboard.Listen(func(key keys.Key) (bool, error) {
			if key.Code == keys.CtrlC || key.Code == keys.Escape {
				s.stop()
				return true, nil
			}
			s.handleKey(key)
			return false, nil
		})
		close(s.keyboardDoneCh)
	}()
}

func (s *shell) handleKey(key keys.Key) {
	switch key.Code {
	case keys.Left:
		if s.selectedCh > 0 {
			s.selectedCh--
		}
	case keys.Right:
		if s.selectedCh < ittrack.PatternChannels-1 {
			s.selectedCh++
		}
	case keys.Space:
		if s.engine.IsPlaying() {
			s.engine.Stop()
		} else {
			s.engine.Start()
		}
	case keys.RuneKey:
		if len(key.Runes) == 0 {
			return
		}
		switch key.Runes[0] {
		case 'q':
			s.engine.Mute ^= 1 << uint(s.selectedCh)
		case 's':
			if s.soloCh != s.selectedCh {
				s.soloCh = s.selectedCh
				s.engine.Mute = ^uint64(0) &^ (1 << uint(s.selectedCh))
			} else {
				s.soloCh = -1
				s.engine.Mute = 0
			}
		}
	}
}

func (s *shell) stop() {
	s.stopOnce.Do(func() {
		if s.stream != nil {
			s.stream.Stop()
			s.stream.Close()
		}
		portaudio.Terminate()
		fmt.Print(showCursor)
		close(s.done)
	})
}

// render draws the header plus a scrolling pattern-row window and returns
// the number of lines printed, so the caller knows how far to rewind the
// cursor before the next redraw.
func (s *shell) render(order, row int) int {
	speed, tempo := s.engine.SpeedTempo()
	fmt.Printf("%s %3d/%3d %s %3d %s %2d %s %3d\n",
		blue("order"), order, len(s.track.Orders),
		blue("row"), row,
		blue("speed"), speed,
		blue("tempo"), tempo)

	fmt.Print("        ")
	for i := 0; i < visibleChannels; i++ {
		if i == s.selectedCh {
			fmt.Print(green("%2d       ", i+1))
		} else {
			fmt.Printf("%2d       ", i+1)
		}
	}
	fmt.Println()

	lines := 2
	for r := row - patternRowsBefore; r <= row+patternRowsAfter; r++ {
		s.renderRow(order, r, r == row)
		lines++
	}
	return lines
}

func (s *shell) renderRow(order, row int, current bool) {
	notes := s.engine.NoteAt(order, row)
	if notes == nil {
		fmt.Println()
		return
	}

	if current {
		fmt.Print(">>> ")
	} else {
		fmt.Print("    ")
	}

	for ch := 0; ch < visibleChannels; ch++ {
		n := notes[ch]
		fmt.Print(white("%s%d", n.Key, n.Octave), " ", cyan("%02X", n.Effect.Kind), yellow("%02X", n.Effect.Param))
		if ch < visibleChannels-1 {
			fmt.Print("|")
		}
	}

	if current {
		fmt.Print(" <<<")
	}
	fmt.Println()
}
