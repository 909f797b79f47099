// Package wavwriter writes a canonical RIFF/WAVE file of 32-bit IEEE float
// stereo samples, patching the RIFF and data chunk sizes once writing is
// finished rather than requiring the caller to know the length up front.
// See http://soundfile.sapp.org/doc/WaveFormat/ for the chunk layout this
// follows.
package wavwriter

import (
	"encoding/binary"
	"errors"
	"io"
)

const wavTypeIEEEFloat = 3

// ErrInvalidChunkHeaderLength means a chunk name was not 4 characters.
var ErrInvalidChunkHeaderLength = errors.New("wavwriter: chunk header name is not 4 characters")

// Writer writes a WAVE file into WS as it goes, one frame at a time.
type Writer struct {
	WS io.WriteSeeker
}

type waveFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// NewWriter writes the RIFF/WAVE/fmt headers (with placeholder sizes) for a
// 2-channel, 32-bit float stream at sampleRate and returns a Writer ready
// for WriteFrame calls.
func NewWriter(ws io.WriteSeeker, sampleRate int) (*Writer, error) {
	w := &Writer{WS: ws}

	if err := w.writeChunkHeader("RIFF", 0); err != nil {
		return nil, err
	}
	if _, err := ws.Write([]byte("WAVE")); err != nil {
		return nil, err
	}

	if err := w.writeChunkHeader("fmt ", 16); err != nil {
		return nil, err
	}
	format := waveFormat{
		AudioFormat:   wavTypeIEEEFloat,
		Channels:      2,
		SampleRate:    uint32(sampleRate),
		BitsPerSample: 32,
	}
	format.BlockAlign = format.Channels * (format.BitsPerSample / 8)
	format.ByteRate = format.SampleRate * uint32(format.BlockAlign)
	if err := binary.Write(ws, binary.LittleEndian, format); err != nil {
		return nil, err
	}

	if err := w.writeChunkHeader("data", 0); err != nil {
		return nil, err
	}

	return w, nil
}

// WriteFrame writes interleaved float32 stereo samples.
func (w *Writer) WriteFrame(samples []float32) error {
	return binary.Write(w.WS, binary.LittleEndian, samples)
}

// Finish patches the RIFF and data chunk sizes now that the full length is
// known. It must be called exactly once, after the last WriteFrame.
func (w *Writer) Finish() (int64, error) {
	wlen, err := w.WS.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	if _, err := w.WS.Seek(4, io.SeekStart); err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-8)); err != nil {
		return 0, err
	}

	if _, err := w.WS.Seek(40, io.SeekStart); err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-44)); err != nil {
		return 0, err
	}

	return wlen, nil
}

func (w *Writer) writeChunkHeader(chunk string, initialSize int) error {
	if len(chunk) != 4 {
		return ErrInvalidChunkHeaderLength
	}
	if n, err := w.WS.Write([]byte(chunk)); n != 4 || err != nil {
		return err
	}
	return binary.Write(w.WS, binary.LittleEndian, int32(initialSize))
}
