// Package config assembles ittrack's runtime configuration from CLI flags
// and an optional on-disk TOML defaults file, into one Config struct that
// is threaded explicitly to the player rather than read as ambient state.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chriskillpack/ittrack/internal/comb"
)

// Config holds every tuning knob the CLI shells expose.
type Config struct {
	PitchTuning   float64 `toml:"pitch_tuning"`
	TempoTuning   float64 `toml:"tempo_tuning"`
	Interpolation bool    `toml:"interpolation"`
	Reverb        string  `toml:"reverb"`
}

// Defaults returns the hard-coded baseline before any file or flag
// overrides are applied.
func Defaults() Config {
	return Config{PitchTuning: 1.0, TempoTuning: 1.0, Interpolation: true, Reverb: "none"}
}

// DefaultPath returns ~/.config/ittrack/config.toml, or "" if the user's
// home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ittrack", "config.toml")
}

// Load reads defaults, then overlays path's TOML contents if it exists. A
// missing file is not an error; anything else (malformed TOML, permission
// error) is returned to the caller.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// reverbPreset is one entry of the --reverb flag's lookup table.
type reverbPreset struct {
	feedback float32
	delayMs  int
}

var reverbPresets = map[string]reverbPreset{
	"light":  {feedback: 0.2, delayMs: 150},
	"medium": {feedback: 0.3, delayMs: 250},
	"silly":  {feedback: 0.5, delayMs: 2500},
}

// ReverbFromFlag builds a comb.Reverber for the named preset, or a
// passthrough stage for "none" (the default). An unrecognized name is an
// error.
func ReverbFromFlag(name string, sampleRate int) (comb.Reverber, error) {
	if name == "" || name == "none" {
		return NewPassThrough(10 * 1024), nil
	}
	preset, ok := reverbPresets[name]
	if !ok {
		return nil, &unknownReverbError{name: name}
	}
	return comb.NewCombFixed(10*1024, preset.feedback, preset.delayMs, sampleRate), nil
}

type unknownReverbError struct{ name string }

func (e *unknownReverbError) Error() string {
	return "config: unrecognized reverb setting " + quote(e.name)
}

func quote(s string) string { return "\"" + s + "\"" }

// ReverbPassThrough implements comb.Reverber but leaves the audio
// unmodified; selected by --reverb none (the default), it still decouples
// producer and consumer through the same bounded ring buffer the real
// reverb stages use, so swapping --reverb at the CLI never changes the
// pipeline's buffering behavior.
type ReverbPassThrough struct {
	audio             []int16
	bufSize           int
	readPos, writePos int
	n                 int
}

var _ comb.Reverber = &ReverbPassThrough{}

// NewPassThrough creates a ReverbPassThrough with the given ring-buffer
// capacity in samples (not frames).
func NewPassThrough(bufferSize int) *ReverbPassThrough {
	return &ReverbPassThrough{
		audio:   make([]int16, bufferSize),
		bufSize: bufferSize,
	}
}

func (r *ReverbPassThrough) InputSamples(in []int16) int {
	free := r.bufSize - r.n
	n := len(in)
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	if r.writePos+n >= r.bufSize {
		n1 := r.bufSize - r.writePos
		n2 := n - n1
		copy(r.audio[r.writePos:r.writePos+n1], in[:n1])
		copy(r.audio[:n2], in[n1:n1+n2])
		r.writePos = n2
	} else {
		copy(r.audio[r.writePos:r.writePos+n], in[:n])
		r.writePos += n
	}
	r.n += n
	return n
}

func (r *ReverbPassThrough) GetAudio(out []int16) int {
	n := len(out)
	if n > r.n {
		n = r.n
	}
	if n == 0 {
		return 0
	}

	if r.readPos+n > r.bufSize {
		n1 := r.bufSize - r.readPos
		n2 := n - n1
		copy(out[:n1], r.audio[r.readPos:r.readPos+n1])
		copy(out[n1:n], r.audio[:n2])
		r.readPos = n2
	} else {
		copy(out[:n], r.audio[r.readPos:r.readPos+n])
		r.readPos += n
	}
	r.n -= n
	return n
}
