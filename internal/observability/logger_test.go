package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/meshintel/preprint-digest/pkg/types"
)

func TestNewLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(types.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	log.Debug().Str("component", "test").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["component"] != "test" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["time"] == nil {
		t.Error("timestamp missing")
	}
}

func TestNewLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		log := NewLogger(types.LoggingConfig{Level: tt.level}, &bytes.Buffer{})
		if log.GetLevel() != tt.want {
			t.Errorf("level %q parsed as %v, want %v", tt.level, log.GetLevel(), tt.want)
		}
	}
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(types.LoggingConfig{Level: "info", Format: "console"}, &buf)
	log.Info().Msg("readable")

	if json.Valid(buf.Bytes()) {
		t.Error("console format should not emit raw JSON")
	}
	if !strings.Contains(buf.String(), "readable") {
		t.Errorf("message missing from console output: %q", buf.String())
	}
}

func TestWithPaperContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(types.LoggingConfig{Level: "info"}, &buf)
	ctxLog := WithPaperContext(log, "10.1101/av1", "10.1101/a")
	ctxLog.Info().Msg("x")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["paper_id"] != "10.1101/av1" || entry["doi"] != "10.1101/a" {
		t.Errorf("paper context missing: %v", entry)
	}
}
