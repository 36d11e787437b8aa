package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONLoggerRespectsLevel(t *testing.T) {
	logger := NewJSONLogger("api", "error")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be disabled at error level")
	}
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at error level")
	}
}
