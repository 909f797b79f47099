package main

import (
	"os"

	"github.com/chriskillpack/ittrack"
	"github.com/chriskillpack/ittrack/internal/comb"
	"github.com/chriskillpack/ittrack/internal/logging"
	"github.com/chriskillpack/ittrack/internal/wavwriter"
)

const renderChunkFrames = 2048

// renderToFile drives the engine to completion (or, for a looping track,
// for one full pass over LengthSeconds) writing 32-bit float WAV output,
// pushed through the same reverb stage the live shell uses but fed and
// drained in bulk rather than one portaudio callback at a time.
func renderToFile(engine *ittrack.Engine, reverb comb.Reverber, path string, log *logging.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := wavwriter.NewWriter(f, outputHz)
	if err != nil {
		return err
	}

	dry := make([]int16, renderChunkFrames*2)
	wet := make([]int16, renderChunkFrames*2)
	out := make([]float32, renderChunkFrames*2)

	// A looping track never naturally returns silence, so render exactly
	// one pass over the precomputed length regardless of engine.Looping.
	totalFrames := 0
	maxFrames := int(engine.Track().LengthSeconds * float64(outputHz))

	for totalFrames < maxFrames {
		n := len(dry)
		for i := 0; i < n; i++ {
			dry[i] = floatToInt16(engine.Advance())
		}

		reverb.InputSamples(dry)
		got := reverb.GetAudio(wet)
		for i := 0; i < got; i++ {
			out[i] = int16ToFloat(wet[i])
		}
		for i := got; i < n; i++ {
			out[i] = 0
		}

		if err := w.WriteFrame(out[:n]); err != nil {
			return err
		}
		totalFrames += n / 2
	}

	wlen, err := w.Finish()
	if err != nil {
		return err
	}
	log.Info("rendered %d bytes to %s", wlen, path)
	return nil
}
