package agents

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kingrea/curioquest/internal/config"
	"github.com/kingrea/curioquest/internal/review"
	"github.com/kingrea/curioquest/internal/runlog"
	"github.com/kingrea/curioquest/internal/story"
)

const wordsPerMinute = 200

// Packager assembles the final story document, validates it, and lands
// it in the review staging area or the published set. Invalid documents
// go to the rejects area and never reach either destination.
type Packager struct {
	Cfg *config.Config
	Log *runlog.Log
}

// PackageInput carries everything the packager needs for one topic.
type PackageInput struct {
	Slug       string
	Topic      string
	Draft      story.Draft
	Sources    []story.Source
	Hero       *story.ImageRef
	Supports   []story.ImageRef
	ReviewMode bool
}

// Package builds and persists the story document. ok=false means the
// document failed validation and was diverted to the rejects area;
// validation failure is never returned as an error so a batch can keep
// going. Errors are reserved for I/O trouble.
func (p *Packager) Package(in PackageInput) (path string, ok bool, err error) {
	st := p.assemble(in)
	if verr := story.Validate(st); verr != nil {
		if rerr := p.reject(in.Slug, st, verr); rerr != nil {
			p.Log.Errorf(in.Slug, "packager: writing reject record failed: %v", rerr)
		}
		p.Log.Warnf(in.Slug, "packager: document rejected: %v", verr)
		return "", false, nil
	}
	if in.ReviewMode {
		path = review.StagedStoryPath(p.Cfg, in.Slug)
		if err := review.WriteStoryFile(path, st); err != nil {
			return "", false, err
		}
		if err := review.WriteDiff(p.Cfg, in.Slug, st); err != nil {
			return "", false, err
		}
		return path, true, nil
	}
	path = p.Cfg.StoryPath(in.Slug)
	if err := review.WriteStoryFile(path, st); err != nil {
		return "", false, err
	}
	entry := story.TopicEntry{Slug: st.Slug, Title: st.Title, Badges: st.Badges}
	if st.HeroImage != nil {
		entry.Thumbnail = st.HeroImage.File
	}
	if err := review.AppendTopicIndex(p.Cfg, entry); err != nil {
		return "", false, err
	}
	if err := review.EnsureAssetPlaceholders(p.Cfg, st); err != nil {
		return "", false, err
	}
	return path, true, nil
}

func (p *Packager) assemble(in PackageInput) *story.Story {
	project := p.Cfg.Project.Story
	st := &story.Story{
		Slug:          in.Slug,
		Title:         in.Draft.Title,
		AgeBand:       project.AgeBand,
		ReadingLevel:  project.ReadingLevel,
		EstReadMin:    project.EstReadMin,
		HeroImage:     in.Hero,
		SupportImages: in.Supports,
		Sources:       append([]story.Source(nil), in.Sources...),
		Phases:        append([]story.Phase(nil), in.Draft.Phases...),
		Badges:        []string{"new"},
		CrossLinks:    []string{},
	}
	if st.SupportImages == nil {
		st.SupportImages = []story.ImageRef{}
	}
	if est := estimateReadMin(st); est > 0 {
		st.EstReadMin = est
	}
	return st
}

// estimateReadMin derives reading minutes from the narrative word
// count. Zero means the narrative was empty and the config default
// stands.
func estimateReadMin(st *story.Story) int {
	stats := story.ReadabilityStats(st.Narrative())
	if stats.Words == 0 {
		return 0
	}
	return int(math.Max(1, math.Round(float64(stats.Words)/wordsPerMinute)))
}

// reject writes the invalid document plus its validation detail to the
// rejects area under a unique name.
func (p *Packager) reject(slug string, st *story.Story, verr error) error {
	record := struct {
		Story  *story.Story `json:"story"`
		Error  string       `json:"error"`
		Issues []string     `json:"issues,omitempty"`
	}{Story: st, Error: verr.Error()}
	var vdetail *story.ValidationError
	if errors.As(verr, &vdetail) {
		record.Issues = vdetail.Issues
	}
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("agents: encode reject record: %w", err)
	}
	dir := p.Cfg.RejectsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("agents: prepare rejects dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.json", slug, uuid.NewString())
	if err := os.WriteFile(filepath.Join(dir, name), append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("agents: write reject record: %w", err)
	}
	return nil
}
