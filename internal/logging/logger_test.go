package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(Config{Level: "info", JSONFormat: true}, &buf)

	logger.Info().Str("component", "test").Msg("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["message"] != "hello" || entry["component"] != "test" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["time"] == nil {
		t.Error("entries should carry a timestamp")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(Config{Level: "warn", JSONFormat: true}, &buf)

	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info entries should be filtered at warn level")
	}
	if !strings.Contains(out, "loud") {
		t.Error("warn entries should pass at warn level")
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	logger := New(Config{Level: "chatty", JSONFormat: true})
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("got level %s, want info", logger.GetLevel())
	}
}
