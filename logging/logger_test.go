package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"bookkar-cli/config"
)

func TestNew_WritesToConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cfg := config.NewTestConfig()
	cfg.LogFile = path
	cfg.LogLevel = "info"

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	logger.Info("venues loaded")
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "venues loaded") {
		t.Fatalf("expected log line, got %q", string(data))
	}
	if strings.Contains(string(data), "hidden at info level") {
		t.Fatalf("debug line should be filtered, got %q", string(data))
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" warn ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
