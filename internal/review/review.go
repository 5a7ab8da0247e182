// Package review manages the human gate between a packaged story and
// the published content set: the staging area, approval records, diff
// summaries for reviewers, and the publish step itself.
package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kingrea/curioquest/internal/config"
	"github.com/kingrea/curioquest/internal/story"
)

// Approval is the reviewer's recorded verdict for one staged story.
type Approval struct {
	Approved bool      `json:"approved"`
	By       string    `json:"by"`
	At       time.Time `json:"at"`
	Notes    string    `json:"notes,omitempty"`
}

// ErrNotApproved is returned by Publish when no approving record exists.
var ErrNotApproved = errors.New("review: story is not approved")

// WriteApproval records a verdict for the slug.
func WriteApproval(cfg *config.Config, slug string, a Approval) error {
	path := cfg.ApprovalPath(slug)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("review: prepare approvals dir: %w", err)
	}
	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("review: encode approval: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("review: write approval: %w", err)
	}
	return nil
}

// LoadApproval reads the verdict for the slug. A missing record reads
// as an unapproved zero value without error.
func LoadApproval(cfg *config.Config, slug string) (Approval, error) {
	raw, err := os.ReadFile(cfg.ApprovalPath(slug))
	if err != nil {
		if os.IsNotExist(err) {
			return Approval{}, nil
		}
		return Approval{}, fmt.Errorf("review: read approval: %w", err)
	}
	var a Approval
	if err := json.Unmarshal(raw, &a); err != nil {
		return Approval{}, fmt.Errorf("review: decode approval %s: %w", slug, err)
	}
	return a, nil
}

// StagedStoryPath is where the packager places a candidate for review.
func StagedStoryPath(cfg *config.Config, slug string) string {
	return filepath.Join(cfg.ReviewIncomingDir(slug), "story.json")
}

// LoadStory reads and decodes a story file.
func LoadStory(path string) (*story.Story, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("review: read story %s: %w", path, err)
	}
	var st story.Story
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("review: decode story %s: %w", path, err)
	}
	return &st, nil
}

// WriteStoryFile encodes the story to path, creating parent dirs.
func WriteStoryFile(path string, st *story.Story) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("review: prepare dir for %s: %w", path, err)
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("review: encode story %s: %w", st.Slug, err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("review: write story %s: %w", path, err)
	}
	return nil
}

// WriteDiff summarizes the candidate against the currently published
// version (title, phase sequence, fact-gems, quiz) as Markdown for the
// reviewer. A first-time story diffs against nothing.
func WriteDiff(cfg *config.Config, slug string, candidate *story.Story) error {
	var published *story.Story
	if st, err := LoadStory(cfg.StoryPath(slug)); err == nil {
		published = st
	}
	body := buildDiff(slug, published, candidate)
	path := cfg.DiffPath(slug)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("review: prepare diffs dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("review: write diff: %w", err)
	}
	return nil
}

func buildDiff(slug string, published, candidate *story.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Review diff: %s\n\n", slug)
	if published == nil {
		b.WriteString("New story (nothing published yet).\n\n")
		writeOutlineSection(&b, "Candidate", candidate)
		return b.String()
	}
	if published.Title != candidate.Title {
		fmt.Fprintf(&b, "## Title\n\n- was: %s\n- now: %s\n\n", published.Title, candidate.Title)
	}
	if seq, old := phaseSeq(candidate), phaseSeq(published); seq != old {
		fmt.Fprintf(&b, "## Phases\n\n- was: %s\n- now: %s\n\n", old, seq)
	}
	diffGems(&b, published, candidate)
	diffQuiz(&b, published, candidate)
	if b.Len() == len("# Review diff: ")+len(slug)+2 {
		b.WriteString("No structural changes versus the published version.\n")
	}
	return b.String()
}

func writeOutlineSection(b *strings.Builder, label string, st *story.Story) {
	fmt.Fprintf(b, "## %s\n\n- title: %s\n- phases: %s\n", label, st.Title, phaseSeq(st))
	if gems := findGems(st); len(gems) > 0 {
		b.WriteString("- fact-gems:\n")
		for _, g := range gems {
			fmt.Fprintf(b, "  - [%s] %s\n", g.SourceID, g.Text)
		}
	}
}

func phaseSeq(st *story.Story) string {
	kinds := make([]string, len(st.Phases))
	for i, p := range st.Phases {
		kinds[i] = string(p.Kind)
	}
	return strings.Join(kinds, " > ")
}

func findGems(st *story.Story) []story.FactGem {
	for _, p := range st.Phases {
		if p.Kind == story.PhaseFactGems {
			return p.Gems
		}
	}
	return nil
}

func findQuiz(st *story.Story) []story.QuizItem {
	for _, p := range st.Phases {
		if p.Kind == story.PhaseMiniQuiz {
			return p.Quiz
		}
	}
	return nil
}

func diffGems(b *strings.Builder, published, candidate *story.Story) {
	old, now := findGems(published), findGems(candidate)
	var lines []string
	for i := 0; i < len(old) || i < len(now); i++ {
		var was, is story.FactGem
		if i < len(old) {
			was = old[i]
		}
		if i < len(now) {
			is = now[i]
		}
		if was != is {
			lines = append(lines, fmt.Sprintf("- gem %d: [%s] %s -> [%s] %s", i+1, was.SourceID, was.Text, is.SourceID, is.Text))
		}
	}
	if len(lines) > 0 {
		fmt.Fprintf(b, "## Fact gems\n\n%s\n\n", strings.Join(lines, "\n"))
	}
}

func diffQuiz(b *strings.Builder, published, candidate *story.Story) {
	old, now := findQuiz(published), findQuiz(candidate)
	var lines []string
	for i := 0; i < len(old) || i < len(now); i++ {
		var was, is string
		if i < len(old) {
			was = old[i].Q
		}
		if i < len(now) {
			is = now[i].Q
		}
		if was != is {
			lines = append(lines, fmt.Sprintf("- question %d: %q -> %q", i+1, was, is))
		}
	}
	if len(lines) > 0 {
		fmt.Fprintf(b, "## Mini quiz\n\n%s\n\n", strings.Join(lines, "\n"))
	}
}

// Publish moves an approved staged story into the published content
// set, indexes it, and makes sure every referenced asset file exists.
func Publish(cfg *config.Config, slug string) (string, error) {
	approval, err := LoadApproval(cfg, slug)
	if err != nil {
		return "", err
	}
	if !approval.Approved {
		return "", fmt.Errorf("%w: %s", ErrNotApproved, slug)
	}
	st, err := LoadStory(StagedStoryPath(cfg, slug))
	if err != nil {
		return "", err
	}
	path := cfg.StoryPath(slug)
	if err := WriteStoryFile(path, st); err != nil {
		return "", err
	}
	if err := AppendTopicIndex(cfg, topicEntryFor(st)); err != nil {
		return "", err
	}
	if err := EnsureAssetPlaceholders(cfg, st); err != nil {
		return "", err
	}
	return path, nil
}

func topicEntryFor(st *story.Story) story.TopicEntry {
	entry := story.TopicEntry{Slug: st.Slug, Title: st.Title, Badges: st.Badges}
	if st.HeroImage != nil {
		entry.Thumbnail = st.HeroImage.File
	}
	return entry
}

// AppendTopicIndex adds the entry to the topic index, skipping a slug
// that is already listed.
func AppendTopicIndex(cfg *config.Config, entry story.TopicEntry) error {
	entries, err := loadTopicIndex(cfg)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Slug == entry.Slug {
			return nil
		}
	}
	entries = append(entries, entry)
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("review: encode topic index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.TopicsFile()), 0o755); err != nil {
		return fmt.Errorf("review: prepare content dir: %w", err)
	}
	if err := os.WriteFile(cfg.TopicsFile(), append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("review: write topic index: %w", err)
	}
	return nil
}

func loadTopicIndex(cfg *config.Config) ([]story.TopicEntry, error) {
	raw, err := os.ReadFile(cfg.TopicsFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("review: read topic index: %w", err)
	}
	var entries []story.TopicEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("review: decode topic index: %w", err)
	}
	return entries, nil
}

// EnsureAssetPlaceholders creates an empty file for every referenced
// image that does not exist yet, so downstream existence checks on the
// published set never fail.
func EnsureAssetPlaceholders(cfg *config.Config, st *story.Story) error {
	refs := make([]story.ImageRef, 0, 1+len(st.SupportImages))
	if st.HeroImage != nil {
		refs = append(refs, *st.HeroImage)
	}
	refs = append(refs, st.SupportImages...)
	for _, ref := range refs {
		if ref.File == "" {
			continue
		}
		path := filepath.Join(cfg.PublicDir(), strings.TrimPrefix(ref.File, "/"))
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("review: prepare asset dir: %w", err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("review: write asset placeholder: %w", err)
		}
	}
	return nil
}
