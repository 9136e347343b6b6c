package logger

import (
	"strings"
	"testing"
)

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Debug("x", "k", "v")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.Sync()
	if l.With("k", "v") != nil {
		t.Fatalf("expected nil logger from nil With")
	}
}

func TestSanitizeTruncatesLongValues(t *testing.T) {
	long := strings.Repeat("a", maxValueRunes+50)
	out := sanitizeKVs([]any{"contentText", long, "n", 3})
	got, ok := out[1].(string)
	if !ok || len([]rune(got)) != maxValueRunes+1 {
		t.Fatalf("expected truncated value, got %q", got)
	}
	if out[0] != "contentText" || out[3] != 3 {
		t.Fatalf("keys or non-string values changed: %#v", out)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "quiet"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("mode", mode).Debug("hello")
	}
	path := t.TempDir() + "/courseforge.log"
	l, err := NewWithOutput("dev", path)
	if err != nil {
		t.Fatalf("NewWithOutput: %v", err)
	}
	l.Info("to file")
	l.Sync()
}
