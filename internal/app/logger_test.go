package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/flashcoach/backend/internal/config"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(newHandler(&buf, config.LogConfig{Level: "info", Format: "json"}))
	logger.Info("test message", slog.String("key", "value"))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("JSON handler should produce valid JSON: %v", err)
	}
	if m["msg"] != "test message" {
		t.Errorf("unexpected msg: %v", m["msg"])
	}
	if m["key"] != "value" {
		t.Errorf("unexpected key attr: %v", m["key"])
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(newHandler(&buf, config.LogConfig{Level: "debug", Format: "text"}))
	logger.Debug("tinted output")

	if buf.Len() == 0 {
		t.Fatal("text handler should produce output at debug level")
	}
	if json.Valid(buf.Bytes()) {
		t.Error("text format should not be JSON")
	}
}

func TestNewLogger_SetsDefault(t *testing.T) {
	logger := NewLogger(config.LogConfig{Level: "info", Format: "json"})

	if slog.Default().Handler() != logger.Handler() {
		t.Error("NewLogger should set the returned logger as slog default")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level    string
		wantSlog slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			var buf bytes.Buffer

			logger := slog.New(newHandler(&buf, config.LogConfig{Level: tt.level, Format: "json"}))

			logger.Log(context.TODO(), tt.wantSlog, "should appear")
			if buf.Len() == 0 {
				t.Errorf("expected log output at level %v", tt.wantSlog)
			}

			buf.Reset()
			logger.Log(context.TODO(), tt.wantSlog-1, "should be suppressed")
			if buf.Len() != 0 {
				t.Errorf("level %v should suppress level %v, got: %s",
					tt.wantSlog, tt.wantSlog-1, buf.String())
			}
		})
	}
}
