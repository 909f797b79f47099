package ittrack

import (
	"errors"
	"strconv"
)

// Sentinel loader error kinds, checked at call sites with errors.Is. Each is
// wrapped in a *LoadError carrying positional context before being returned
// from FromBytes.
var (
	ErrInvalidMagic           = errors.New("ittrack: invalid IMPM magic")
	ErrInvalidSampleMagic     = errors.New("ittrack: invalid IMPS magic")
	ErrInstrumentsUnsupported = errors.New("ittrack: file uses instruments, which this engine does not support")
	ErrMalformedHeader        = errors.New("ittrack: malformed header")
	ErrTruncated              = errors.New("ittrack: unexpected end of file")
)

// LoadError wraps one of the sentinel errors above with the byte offset and
// section of the file where parsing failed, so a bad rip can be diagnosed
// from itdump output alone.
type LoadError struct {
	Section string
	Offset  int64
	Err     error
}

func (e *LoadError) Error() string {
	return "ittrack: " + e.Section + " at offset " + strconv.FormatInt(e.Offset, 10) + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }
