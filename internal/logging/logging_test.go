package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStartupLogger(t *testing.T) {
	var buf bytes.Buffer
	InitFile(&buf, "info")

	NewStartupLogger("vesteja-server").
		Version("test").
		Endpoint("pose", "http://pose:8000").
		Endpoint("empty", "").
		S3Bucket("results", "vesteja-results").
		Feature("lenientLighting", true).
		Config("tryOnBackend", "vertex").
		Log()

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("startup event is not JSON: %v (%s)", err, buf.String())
	}

	binary := event["binary"].(map[string]any)
	if binary["name"] != "vesteja-server" || binary["version"] != "test" {
		t.Errorf("binary = %v", binary)
	}
	endpoints := event["endpoints"].(map[string]any)
	if endpoints["pose"] != "http://pose:8000" {
		t.Errorf("endpoints = %v", endpoints)
	}
	if _, ok := endpoints["empty"]; ok {
		t.Errorf("empty endpoints should be skipped")
	}
	if event["features"].(map[string]any)["lenientLighting"] != true {
		t.Errorf("features = %v", event["features"])
	}
	if event["message"] != "Startup complete" {
		t.Errorf("message = %v", event["message"])
	}
}
