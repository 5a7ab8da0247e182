// internal/config/config.go
//
// Configuration and content-tree layout for the CurioQuest generator.
// Every content root gets the same directory structure so the batch
// runner, the review tooling, and the published site all agree on where
// artifacts live.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile sits at the content root and tunes the pipeline.
	ProjectConfigFile = "curioquest.yaml"
	// StateDir holds generator-private state (checkpoints, run logs).
	StateDir = ".curioquest"

	defaultBudgetUSD = 20
)

// ProjectConfig models curioquest.yaml.
type ProjectConfig struct {
	Version int `yaml:"version"`
	Models  struct {
		Text  string `yaml:"text"`
		Image string `yaml:"image"`
	} `yaml:"models"`
	Drafts struct {
		// Temperatures yields one independent draft per entry.
		Temperatures []float64 `yaml:"temperatures"`
	} `yaml:"drafts"`
	Story struct {
		AgeBand      string `yaml:"age_band"`
		ReadingLevel string `yaml:"reading_level"`
		EstReadMin   int    `yaml:"est_read_min"`
	} `yaml:"story"`
	// Stock maps topic categories to pre-rendered assets used when the
	// image service is unavailable or the budget denies a render.
	Stock map[string]string `yaml:"stock"`
}

func defaultProjectConfig() ProjectConfig {
	var p ProjectConfig
	p.Version = 1
	p.Models.Text = "gpt-4o-mini"
	p.Models.Image = "gpt-image-1"
	p.Drafts.Temperatures = []float64{0.7, 0.9, 1.1}
	p.Story.AgeBand = "10-13"
	p.Story.ReadingLevel = "grade-6"
	p.Story.EstReadMin = 6
	p.Stock = map[string]string{
		"space":   "/stock/space.png",
		"nature":  "/stock/nature.png",
		"history": "/stock/history.png",
		"generic": "/stock/generic.png",
	}
	return p
}

// Config holds the runtime configuration for one generator invocation.
type Config struct {
	// RootDir is the content root the generator operates on.
	RootDir string

	// APIKey is the OpenAI credential; empty means every model-backed
	// stage runs its deterministic fallback.
	APIKey string

	// BudgetUSD caps estimated spend for the whole batch.
	BudgetUSD float64

	Project ProjectConfig
}

// Load builds a Config for rootDir, merging curioquest.yaml (when
// present) over defaults and reading credentials from the environment.
func Load(rootDir string) (*Config, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve root: %w", err)
	}
	cfg := &Config{
		RootDir:   abs,
		APIKey:    os.Getenv("OPENAI_API_KEY"),
		BudgetUSD: defaultBudgetUSD,
		Project:   defaultProjectConfig(),
	}
	if raw := strings.TrimSpace(os.Getenv("BUDGET_USD")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("config: BUDGET_USD %q: %w", raw, err)
		}
		cfg.BudgetUSD = parsed
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadProjectConfig() error {
	path := filepath.Join(c.RootDir, ProjectConfigFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil // defaults apply
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", ProjectConfigFile, err)
	}
	merged := c.Project
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("config: parse %s: %w", ProjectConfigFile, err)
	}
	if len(merged.Drafts.Temperatures) == 0 {
		merged.Drafts.Temperatures = c.Project.Drafts.Temperatures
	}
	if merged.Stock == nil {
		merged.Stock = c.Project.Stock
	}
	c.Project = merged
	return nil
}

// Init creates the content-tree structure under rootDir:
//
//	content/stories/     published story documents
//	content/topics.json  published topic index
//	public/assets/       per-slug raster assets
//	public/stock/        shared stock assets
//	review/incoming/     staged candidates awaiting approval
//	review/approvals/    per-slug approval records
//	review/diffs/        per-slug reviewer diffs
//	_rejects/            schema/gate rejects
//	.ai_logs/            per-day model call logs
//	.curioquest/         checkpoints and run logs
//	gates/               operator-supplied gate plugins
func Init(rootDir string) error {
	dirs := []string{
		filepath.Join(rootDir, "content", "stories"),
		filepath.Join(rootDir, "public", "assets"),
		filepath.Join(rootDir, "public", "stock"),
		filepath.Join(rootDir, "review", "incoming"),
		filepath.Join(rootDir, "review", "approvals"),
		filepath.Join(rootDir, "review", "diffs"),
		filepath.Join(rootDir, "_rejects"),
		filepath.Join(rootDir, ".ai_logs"),
		filepath.Join(rootDir, StateDir, "logs"),
		filepath.Join(rootDir, "gates"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	topics := filepath.Join(rootDir, "content", "topics.json")
	if _, err := os.Stat(topics); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(topics, []byte("[]\n"), 0o644); err != nil {
			return fmt.Errorf("config: seed topic index: %w", err)
		}
	}
	return nil
}

// ContentDir is content/ under the root.
func (c *Config) ContentDir() string { return filepath.Join(c.RootDir, "content") }

// StoriesDir holds one published story document per slug.
func (c *Config) StoriesDir() string { return filepath.Join(c.ContentDir(), "stories") }

// StoryPath is the published document for one slug.
func (c *Config) StoryPath(slug string) string {
	return filepath.Join(c.StoriesDir(), slug+".json")
}

// TopicsFile is the published topic index.
func (c *Config) TopicsFile() string { return filepath.Join(c.ContentDir(), "topics.json") }

// PublicDir is the web-served file root.
func (c *Config) PublicDir() string { return filepath.Join(c.RootDir, "public") }

// AssetsDir holds the raster assets for one slug.
func (c *Config) AssetsDir(slug string) string {
	return filepath.Join(c.PublicDir(), "assets", slug)
}

// ReviewIncomingDir stages one candidate story per slug.
func (c *Config) ReviewIncomingDir(slug string) string {
	return filepath.Join(c.RootDir, "review", "incoming", slug)
}

// ApprovalPath records a human decision for one slug.
func (c *Config) ApprovalPath(slug string) string {
	return filepath.Join(c.RootDir, "review", "approvals", slug+".json")
}

// DiffPath summarizes staged-versus-published changes for one slug.
func (c *Config) DiffPath(slug string) string {
	return filepath.Join(c.RootDir, "review", "diffs", slug+".md")
}

// RejectsDir collects drafts and documents that failed a gate or the
// schema, one file each.
func (c *Config) RejectsDir() string { return filepath.Join(c.RootDir, "_rejects") }

// CallLogDir holds the per-day model call logs.
func (c *Config) CallLogDir() string { return filepath.Join(c.RootDir, ".ai_logs") }

// CheckpointFile lists topics already processed or skipped.
func (c *Config) CheckpointFile() string {
	return filepath.Join(c.RootDir, StateDir, "checkpoints.json")
}

// RunLogFile receives batch progress lines.
func (c *Config) RunLogFile() string {
	return filepath.Join(c.RootDir, StateDir, "logs", "run.log")
}

// GatesDir holds operator-supplied gate plugins.
func (c *Config) GatesDir() string { return filepath.Join(c.RootDir, "gates") }

// StockAsset maps a category to its stock file, falling back to generic.
func (c *Config) StockAsset(category string) string {
	if file, ok := c.Project.Stock[category]; ok && file != "" {
		return file
	}
	return c.Project.Stock["generic"]
}
