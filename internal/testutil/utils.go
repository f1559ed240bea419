package testutil

import (
	"io"
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger for use in tests. Output is discarded
// unless the test run is verbose.
func TestLogger(t *testing.T) *log.Logger {
	out := io.Discard
	if testing.Verbose() {
		out = os.Stdout
	}
	logger := log.New(out, "[gigchat-test] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(io.Discard)
	})
	return logger
}
