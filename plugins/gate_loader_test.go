package plugins

import (
	"os"
	"path/filepath"
	"testing"
)

const gatePluginSource = `package main

import "strings"

func ReviewDraft(doc map[string]any) (bool, string) {
	title, _ := doc["title"].(string)
	if strings.Contains(strings.ToLower(title), "forbidden") {
		return false, "forbidden title"
	}
	return true, ""
}`

func TestLoadGateDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "no-forbidden.go"), []byte(gatePluginSource), 0644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
	hooks, err := LoadGateDir(dir)
	if err != nil {
		t.Fatalf("load gates: %v", err)
	}
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}
	if hooks[0].Name != "no-forbidden" {
		t.Fatalf("unexpected hook name: %q", hooks[0].Name)
	}
	if ok, _ := hooks[0].Review(map[string]any{"title": "Volcanoes"}); !ok {
		t.Fatalf("expected clean title to pass")
	}
	ok, reason := hooks[0].Review(map[string]any{"title": "The Forbidden Cave"})
	if ok {
		t.Fatalf("expected flagged title to fail")
	}
	if reason != "forbidden title" {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestLoadGateDirMissingDir(t *testing.T) {
	hooks, err := LoadGateDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if hooks != nil {
		t.Fatalf("expected no hooks, got %d", len(hooks))
	}
}

func TestLoadGateDirMissingFunc(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatalf("write broken plugin: %v", err)
	}
	if _, err := LoadGateDir(dir); err == nil {
		t.Fatalf("expected error for missing ReviewDraft function")
	}
}

func TestLoadGateDirWrongSignature(t *testing.T) {
	dir := t.TempDir()
	src := "package main\n\nfunc ReviewDraft() bool { return true }\n"
	if err := os.WriteFile(filepath.Join(dir, "bad-sig.go"), []byte(src), 0644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
	if _, err := LoadGateDir(dir); err == nil {
		t.Fatalf("expected error for wrong signature")
	}
}
