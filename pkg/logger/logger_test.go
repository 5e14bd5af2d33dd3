package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestInitLevels(t *testing.T) {
	cases := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}
	for _, tc := range cases {
		Init(&Config{Level: tc.level, Format: "text"})
		if !slog.Default().Enabled(context.Background(), tc.enabled) {
			t.Errorf("level %q: %v should be enabled", tc.level, tc.enabled)
		}
		if slog.Default().Enabled(context.Background(), tc.muted) {
			t.Errorf("level %q: %v should be muted", tc.level, tc.muted)
		}
	}
}

func TestInitJSONFormat(t *testing.T) {
	Init(&Config{Level: "info", Format: "json"})
	if _, ok := slog.Default().Handler().(*slog.JSONHandler); !ok {
		t.Errorf("handler = %T, want *slog.JSONHandler", slog.Default().Handler())
	}
}
