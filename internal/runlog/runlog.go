// Package runlog persists batch progress to a plain text file so a run
// can be reconstructed after the terminal (and its progress board) is
// gone. One line per event, timestamped, optionally tagged with the
// slug the event belongs to.
package runlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Log appends to a single file under the generator state directory.
type Log struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a run log writing to the provided path.
func New(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("runlog: ensure dir: %w", err)
	}
	return &Log{path: path, now: time.Now}, nil
}

// Path returns the file backing this log.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry. A nil log and write failures are both
// silent: progress logging must never fail the batch.
func (l *Log) Append(level Level, slug, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	tag := ""
	if slug != "" {
		tag = " [" + slug + "]"
	}
	line := fmt.Sprintf("%s %-5s%s %s\n",
		l.now().UTC().Format(time.RFC3339),
		string(level),
		tag,
		strings.TrimSpace(message),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Infof appends an informational entry for a slug ("" for batch-level).
func (l *Log) Infof(slug, format string, args ...any) {
	l.Append(LevelInfo, slug, fmt.Sprintf(format, args...))
}

// Warnf appends a warning entry.
func (l *Log) Warnf(slug, format string, args ...any) {
	l.Append(LevelWarn, slug, fmt.Sprintf(format, args...))
}

// Errorf appends an error entry.
func (l *Log) Errorf(slug, format string, args ...any) {
	l.Append(LevelError, slug, fmt.Sprintf(format, args...))
}

// Tail returns up to maxLines of the most recent entries.
func (l *Log) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}
