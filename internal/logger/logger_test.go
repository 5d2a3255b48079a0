package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestFromContext(t *testing.T) {
	want := NewLogger(&Config{Level: DebugLevel, Output: &bytes.Buffer{}})
	ctx := ContextWithLogger(context.Background(), want)
	if got := FromContext(ctx); got != want {
		t.Fatalf("FromContext returned a different logger")
	}

	l := FromContext(context.Background())
	if l == nil {
		t.Fatalf("expected a fallback logger")
	}
	l.Info("dropped")

	if FromContext(ContextWithLogger(context.Background(), nil)) == nil {
		t.Fatalf("expected a fallback for a nil logger")
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true}).With("run_id", "r1")
	l.Debug("hidden")
	l.Info("stage done", "state", "extracting")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["msg"] != "stage done" || rec["run_id"] != "r1" || rec["state"] != "extracting" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"DEBUG": DebugLevel, "warning": WarnLevel, "verbose": InfoLevel} {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
