package logger

import (
	"testing"
)

func TestNoOpLoggerBeforeInitialize(t *testing.T) {
	// The package-level logger must be usable before Initialize runs.
	if Logger == nil {
		t.Fatal("Logger should not be nil before Initialize")
	}
	// Must not panic.
	Logger.Debugw("pre-init message", "key", "value")
}

func TestInitializeConsole(t *testing.T) {
	if err := Initialize(false, 0); err != nil {
		t.Fatalf("Initialize(console) failed: %v", err)
	}
	if JSONOutput {
		t.Error("JSONOutput should be false for console output")
	}
	if Logger == nil {
		t.Fatal("Logger is nil after Initialize")
	}
}

func TestInitializeJSON(t *testing.T) {
	if err := Initialize(true, 1); err != nil {
		t.Fatalf("Initialize(json) failed: %v", err)
	}
	if !JSONOutput {
		t.Error("JSONOutput should be true for JSON output")
	}
	Logger.Debugw("debug enabled at verbosity 1")
}
