// Package batch drives many topics through the generation pipeline
// concurrently, with budget and time bounds and checkpointed resumes.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Checkpoint is the persisted set of topics already processed. Every
// addition rewrites the file in full, immediately, so a crash loses at
// most the topics still running.
type Checkpoint struct {
	path string

	mu    sync.Mutex
	seen  map[string]bool
	order []string
}

// LoadCheckpoint reads the set from path. A missing file yields an
// empty set; a malformed file is a programmer-error-class failure and
// aborts the caller.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	c := &Checkpoint{path: path, seen: make(map[string]bool)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("batch: read checkpoint %s: %w", path, err)
	}
	var topics []string
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, fmt.Errorf("batch: malformed checkpoint %s: %w", path, err)
	}
	for _, topic := range topics {
		if !c.seen[topic] {
			c.seen[topic] = true
			c.order = append(c.order, topic)
		}
	}
	return c, nil
}

// Has reports whether the topic was already processed.
func (c *Checkpoint) Has(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[topic]
}

// Add records the topic and persists the whole set before returning.
func (c *Checkpoint) Add(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seen[topic] {
		c.seen[topic] = true
		c.order = append(c.order, topic)
	}
	raw, err := json.MarshalIndent(c.order, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: encode checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("batch: prepare checkpoint dir: %w", err)
	}
	if err := os.WriteFile(c.path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("batch: write checkpoint: %w", err)
	}
	return nil
}

// Topics returns the recorded set in insertion order.
func (c *Checkpoint) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}
