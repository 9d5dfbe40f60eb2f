package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		debug   bool
		wantErr bool
	}{
		{"", false, false, false},
		{"info", false, false, false},
		{"DEBUG", false, true, false},
		{"warn", true, true, false},
		{"loud", false, false, true},
	}
	for _, tt := range tests {
		logger, err := NewLogger(tt.level, "json", tt.verbose)
		if tt.wantErr {
			if err == nil {
				t.Errorf("level %q: expected error", tt.level)
			}
			continue
		}
		if err != nil {
			t.Fatalf("level %q: %v", tt.level, err)
		}
		if got := logger.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
			t.Errorf("level %q verbose=%v: debug enabled = %v, want %v", tt.level, tt.verbose, got, tt.debug)
		}
	}
}

func TestNewLogger_Console(t *testing.T) {
	if _, err := NewLogger("info", "console", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
