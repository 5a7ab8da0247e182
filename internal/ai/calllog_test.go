package ai

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCallLogWritesOneLinePerRecordToDayFile(t *testing.T) {
	dir := t.TempDir()
	l := NewCallLog(filepath.Join(dir, ".ai_logs"))
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Record(CallRecord{Model: "gpt-4o-mini", Temperature: 0.9, InputSize: 120, OutputSize: 900, LatencyMs: 350})
	l.Record(CallRecord{Model: "gpt-image-1", InputSize: 60, OutputSize: 20000, LatencyMs: 2100})

	file := filepath.Join(dir, ".ai_logs", "2026-03-14.ndjson")
	f, err := os.Open(file)
	if err != nil {
		t.Fatalf("open day file: %v", err)
	}
	defer f.Close()

	var records []CallRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec CallRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad ndjson line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Model != "gpt-4o-mini" || records[0].LatencyMs != 350 {
		t.Fatalf("first record mangled: %+v", records[0])
	}
	if records[0].Timestamp != fixed {
		t.Fatalf("timestamp not stamped: %v", records[0].Timestamp)
	}
	if records[1].Model != "gpt-image-1" {
		t.Fatalf("second record mangled: %+v", records[1])
	}
}

func TestCallLogNilReceiverIsSafe(t *testing.T) {
	var l *CallLog
	l.Record(CallRecord{Model: "gpt-4o-mini"}) // must not panic
}
