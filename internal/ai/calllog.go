package ai

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CallRecord is one line of the per-day call log.
type CallRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	InputSize   int       `json:"inputSize"`
	OutputSize  int       `json:"outputSize"`
	LatencyMs   int64     `json:"latencyMs"`
}

// CallLog appends one JSON line per completed model call to a
// date-stamped file, so a day of traffic can be replayed or priced after
// the fact. Append failures are swallowed: the log must never take a
// pipeline stage down with it.
type CallLog struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewCallLog writes records under dir, one file per UTC day.
func NewCallLog(dir string) *CallLog {
	return &CallLog{dir: dir, now: time.Now}
}

// Record appends rec to today's log file, stamping it if unstamped.
func (l *CallLog) Record(rec CallRecord) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now().UTC()
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return
	}
	name := rec.Timestamp.UTC().Format("2006-01-02") + ".ndjson"
	file, err := os.OpenFile(filepath.Join(l.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	line, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_, _ = file.Write(append(line, '\n'))
}
