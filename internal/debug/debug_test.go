package debug_test

import (
	"testing"

	"github.com/hviana/kvfs/internal/debug"
)

// Log must never panic, whether or not debug logging is enabled for the
// current process (it depends on environment variables read at init time).
func TestLogDoesNotPanic(t *testing.T) {
	debug.Log("plain message")
	debug.Log("message with args: %d %s", 42, "x")
	debug.Log("no newline needed\n")
}
