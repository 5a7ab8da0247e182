package review

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/curioquest/internal/config"
	"github.com/kingrea/curioquest/internal/story"
)

// Issue is one problem found while checking the published content set.
// Warnings only fail a strict check.
type Issue struct {
	Slug    string
	Warning bool
	Detail  string
}

func (i Issue) String() string {
	level := "error"
	if i.Warning {
		level = "warn"
	}
	return fmt.Sprintf("%s [%s] %s", level, i.Slug, i.Detail)
}

// CheckContent verifies the published content set: every indexed topic
// has a story file that passes validation, every referenced image file
// exists, and asset directories match the index (orphans are warnings).
func CheckContent(cfg *config.Config) ([]Issue, error) {
	entries, err := loadTopicIndex(cfg)
	if err != nil {
		return nil, err
	}
	var issues []Issue
	indexed := make(map[string]bool, len(entries))
	for _, entry := range entries {
		indexed[entry.Slug] = true
		st, err := LoadStory(cfg.StoryPath(entry.Slug))
		if err != nil {
			issues = append(issues, Issue{Slug: entry.Slug, Detail: fmt.Sprintf("indexed topic has no readable story: %v", err)})
			continue
		}
		if err := story.Validate(st); err != nil {
			issues = append(issues, Issue{Slug: entry.Slug, Detail: fmt.Sprintf("published story fails validation: %v", err)})
		}
		issues = append(issues, missingAssets(cfg, st)...)
	}
	issues = append(issues, orphanAssetDirs(cfg, indexed)...)
	issues = append(issues, unindexedStories(cfg, indexed)...)
	return issues, nil
}

// Failed reports whether the issues fail the check. Warnings only count
// under strict.
func Failed(issues []Issue, strict bool) bool {
	for _, issue := range issues {
		if strict || !issue.Warning {
			return true
		}
	}
	return false
}

func missingAssets(cfg *config.Config, st *story.Story) []Issue {
	var issues []Issue
	refs := append([]story.ImageRef(nil), st.SupportImages...)
	if st.HeroImage != nil {
		refs = append(refs, *st.HeroImage)
	}
	for _, ref := range refs {
		if ref.File == "" {
			issues = append(issues, Issue{Slug: st.Slug, Detail: "image reference with empty file path"})
			continue
		}
		path := filepath.Join(cfg.PublicDir(), strings.TrimPrefix(ref.File, "/"))
		if _, err := os.Stat(path); err != nil {
			issues = append(issues, Issue{Slug: st.Slug, Detail: fmt.Sprintf("missing image file %s", ref.File)})
		}
	}
	return issues
}

func orphanAssetDirs(cfg *config.Config, indexed map[string]bool) []Issue {
	assetsRoot := filepath.Join(cfg.PublicDir(), "assets")
	entries, err := os.ReadDir(assetsRoot)
	if err != nil {
		return nil
	}
	var issues []Issue
	for _, entry := range entries {
		if entry.IsDir() && !indexed[entry.Name()] {
			issues = append(issues, Issue{Slug: entry.Name(), Warning: true, Detail: "asset directory has no indexed topic"})
		}
	}
	return issues
}

func unindexedStories(cfg *config.Config, indexed map[string]bool) []Issue {
	entries, err := os.ReadDir(cfg.StoriesDir())
	if err != nil {
		return nil
	}
	var issues []Issue
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		slug := strings.TrimSuffix(entry.Name(), ".json")
		if !indexed[slug] {
			issues = append(issues, Issue{Slug: slug, Warning: true, Detail: "published story is not in the topic index"})
		}
	}
	return issues
}

// AuditRow is one story's readability figures.
type AuditRow struct {
	Slug  string
	Stats story.Stats
	Warn  bool
}

// Readability thresholds beyond which an audit row is flagged.
const (
	auditMaxFK  = 7.5
	auditMaxASL = 20
)

// AuditReadability computes Flesch-Kincaid stats for every published
// story, flagging the ones that read above the target level.
func AuditReadability(cfg *config.Config) ([]AuditRow, error) {
	entries, err := loadTopicIndex(cfg)
	if err != nil {
		return nil, err
	}
	rows := make([]AuditRow, 0, len(entries))
	for _, entry := range entries {
		st, err := LoadStory(cfg.StoryPath(entry.Slug))
		if err != nil {
			return nil, err
		}
		stats := story.ReadabilityStats(st.Narrative())
		rows = append(rows, AuditRow{
			Slug:  entry.Slug,
			Stats: stats,
			Warn:  stats.FK > auditMaxFK || stats.ASL > auditMaxASL,
		})
	}
	return rows, nil
}
