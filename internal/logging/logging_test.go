package logging

import (
	"bufio"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStderr redirects os.Stderr for the duration of fn and returns
// everything written to it.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()
	require.NoError(t, w.Close())

	scanner := bufio.NewScanner(r)
	out := ""
	for scanner.Scan() {
		out += scanner.Text() + "\n"
	}
	return out
}

func TestInfoSuppressedWithoutVerbose(t *testing.T) {
	out := captureStderr(t, func() {
		lg := New("ittrack: ", false)
		lg.Info("hidden %d", 1)
	})
	assert.Empty(t, out)
}

func TestInfoPrintsWhenVerbose(t *testing.T) {
	out := captureStderr(t, func() {
		lg := New("ittrack: ", true)
		lg.Info("shown %d", 1)
	})
	assert.Contains(t, out, "ittrack: shown 1")
}

func TestWarnAlwaysPrints(t *testing.T) {
	out := captureStderr(t, func() {
		lg := New("ittrack: ", false)
		lg.Warn("loop overshoot by %d", 3)
	})
	assert.Contains(t, out, "warn: loop overshoot by 3")
}

func TestErrorAlwaysPrints(t *testing.T) {
	out := captureStderr(t, func() {
		lg := New("ittrack: ", false)
		lg.Error("boom: %s", "broke")
	})
	assert.Contains(t, out, "error: boom: broke")
}
