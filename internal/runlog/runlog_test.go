package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendWritesTaggedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	l.Infof("black-holes", "start")
	l.Warnf("", "budget denied image render")
	l.Errorf("black-holes", "no safe drafts")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "INFO") || !strings.Contains(lines[0], "[black-holes]") {
		t.Fatalf("first line malformed: %q", lines[0])
	}
	if strings.Contains(lines[1], "[") {
		t.Fatalf("batch-level line should have no slug tag: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2026-01-02T03:04:05Z ERROR") {
		t.Fatalf("third line malformed: %q", lines[2])
	}
}

func TestTailReturnsMostRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 10; i++ {
		l.Infof("", "line %d", i)
	}
	tail := l.Tail(3)
	if len(tail) != 3 {
		t.Fatalf("Tail(3) returned %d lines", len(tail))
	}
	if !strings.Contains(tail[2], "line 9") {
		t.Fatalf("last tail line = %q", tail[2])
	}
}

func TestNilLogIsSafe(t *testing.T) {
	var l *Log
	l.Infof("x", "ignored")
	if l.Tail(5) != nil {
		t.Fatal("nil log should tail nothing")
	}
}
