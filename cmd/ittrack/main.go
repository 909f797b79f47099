// Command ittrack plays an Impulse Tracker module, either live through the
// default audio device or rendered offline to a WAV file.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chriskillpack/ittrack"
	"github.com/chriskillpack/ittrack/internal/config"
	"github.com/chriskillpack/ittrack/internal/logging"
)

const outputHz = 48000

var (
	flagPitch      float64
	flagTempo      float64
	flagStart      float64
	flagNoInterp   bool
	flagReverb     string
	flagRender     string
	flagVerbose    bool
	flagConfigPath string
)

func main() {
	root := &cobra.Command{
		Use:   "ittrack <path>",
		Short: "Play an Impulse Tracker module",
		Args:  cobra.ExactArgs(1),
		RunE:  runIttrack,
	}

	root.Flags().Float64Var(&flagPitch, "pitch", 1.0, "pitch tuning multiplier")
	root.Flags().Float64Var(&flagTempo, "tempo", 1.0, "tempo tuning multiplier")
	root.Flags().Float64Var(&flagStart, "start", 0, "start playback at this many seconds in")
	root.Flags().BoolVar(&flagNoInterp, "no-interpolation", false, "disable linear sample interpolation")
	root.Flags().StringVar(&flagReverb, "reverb", "", "reverb preset: none, light, medium, silly")
	root.Flags().StringVar(&flagRender, "render", "", "render offline to this WAV path instead of opening an audio device")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable informational logging (load, seek and render summaries)")
	root.Flags().StringVar(&flagConfigPath, "config", config.DefaultPath(), "path to a TOML defaults file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIttrack(cmd *cobra.Command, args []string) error {
	log := logging.New("ittrack: ", flagVerbose)

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		log.Error("%v", err)
		return err
	}
	applyFlagOverrides(cmd, &cfg)

	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	track, err := ittrack.FromBytes(data)
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Info("loaded %q: %d patterns, %d samples, %.1fs", track.Title, len(track.Patterns), len(track.Samples), track.LengthSeconds)

	engine := ittrack.New(track)
	engine.SetPitchTuning(cfg.PitchTuning)
	engine.SetTempoTuning(cfg.TempoTuning)
	if cfg.Interpolation {
		engine.SetInterpolation(ittrack.InterpolationLinear)
	} else {
		engine.SetInterpolation(ittrack.InterpolationNone)
	}
	if flagStart > 0 {
		landed := engine.SeekSeconds(flagStart)
		log.Info("seeked to %.2fs", landed)
	}

	reverb, err := config.ReverbFromFlag(cfg.Reverb, outputHz)
	if err != nil {
		log.Error("%v", err)
		return err
	}

	if flagRender != "" {
		return renderToFile(engine, reverb, flagRender, log)
	}
	return playLive(engine, track, reverb, log)
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("pitch") {
		cfg.PitchTuning = flagPitch
	}
	if cmd.Flags().Changed("tempo") {
		cfg.TempoTuning = flagTempo
	}
	if flagNoInterp {
		cfg.Interpolation = false
	}
	if cmd.Flags().Changed("reverb") {
		cfg.Reverb = flagReverb
	}
}
