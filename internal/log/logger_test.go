// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLevel := GetLevel()
	SetOutput(&buf, false)
	t.Cleanup(func() {
		SetOutput(os.Stderr, true)
		SetLevel(prevLevel)
	})
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLevelGating(t *testing.T) {
	buf := captureJSON(t)
	SetLevel(LevelWarn)

	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warnf("warn %d", 3)
	Error("error ", 4)

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), buf.String())
	}
	if lines[0]["level"] != "warn" || lines[0]["message"] != "warn 3" {
		t.Errorf("first line = %v", lines[0])
	}
	if lines[1]["level"] != "error" || lines[1]["message"] != "error 4" {
		t.Errorf("second line = %v", lines[1])
	}
}

func TestComponentLogger(t *testing.T) {
	buf := captureJSON(t)
	SetLevel(LevelInfo)

	l := Component("pipeline")
	l.Debug().Msg("hidden")
	l.Info().Str("state", "streaming").Msg("transition")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %s", len(lines), buf.String())
	}
	if lines[0]["component"] != "pipeline" || lines[0]["state"] != "streaming" {
		t.Errorf("line = %v", lines[0])
	}
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(time.Hour)
	if !th.Allow() {
		t.Fatal("first call should be allowed")
	}
	if th.Allow() {
		t.Error("second call inside the interval should be denied")
	}

	open := NewThrottle(0)
	if !open.Allow() || !open.Allow() {
		t.Error("zero interval should always allow")
	}
}
