package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"none":    LevelNone,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tienda.log")
	l, err := New(LevelWarn, path, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line")
	l.Error("error line")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)

	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("lines below warn level were written: %q", out)
	}
	if !strings.Contains(out, "warn line") || !strings.Contains(out, "error line") {
		t.Errorf("warn/error lines missing: %q", out)
	}
}

func TestDisabledLogger(t *testing.T) {
	l, err := New(LevelNone, "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Must not panic or write anywhere.
	l.Error("dropped")
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestWithPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tienda.log")
	l, err := New(LevelDebug, path, "chat")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.WithPrefix("ws").Info("connected")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "[chat:ws] connected") {
		t.Errorf("prefix missing from output: %q", string(data))
	}
}
