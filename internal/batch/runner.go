package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kingrea/curioquest/internal/agents"
	"github.com/kingrea/curioquest/internal/ai"
	"github.com/kingrea/curioquest/internal/config"
	"github.com/kingrea/curioquest/internal/images"
	"github.com/kingrea/curioquest/internal/runlog"
	"github.com/kingrea/curioquest/internal/story"
	"github.com/kingrea/curioquest/plugins"
)

// Status is a topic's position in the batch state machine.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
	StatusSkipped Status = "skipped"
)

// ImageMode selects how story assets are produced.
type ImageMode string

const (
	ImagesRender ImageMode = "render"
	ImagesStock  ImageMode = "stock"
	ImagesSkip   ImageMode = "skip"
)

const defaultConcurrency = 3

// Event is one progress notification for the display board.
type Event struct {
	Topic  string
	Slug   string
	Status Status
	Detail string
}

// Options configure one batch run.
type Options struct {
	Topics         []string
	Concurrency    int
	Force          bool
	ReviewMode     bool
	Images         ImageMode
	TopicTimeout   time.Duration
	MaxOutputChars int
}

// TopicResult is the final record for one topic.
type TopicResult struct {
	Topic   string
	Slug    string
	Status  Status
	Detail  string
	Path    string
	Elapsed time.Duration
}

// Summary aggregates a finished run.
type Summary struct {
	Results     []TopicResult
	AgentTotals map[string]time.Duration
	OutputChars int
	SpentUSD    float64
	Elapsed     time.Duration
}

// Runner owns the shared collaborators for a batch: the model client,
// the budget ledger, the checkpoint set, and the gate hooks. Workers
// operate on disjoint topics; the ledger and checkpoint serialize their
// own access.
type Runner struct {
	Cfg       *config.Config
	Client    *ai.Client
	Budget    *ai.Budget
	Log       *runlog.Log
	Collector *agents.Collector
	Hooks     []plugins.GateHook
	// Events receives progress notifications; nil means no listener.
	Events func(Event)

	// pkgMu serializes packaging. Workers hold disjoint story state, but
	// direct publishes all append to the one topic index file.
	pkgMu sync.Mutex
}

type outcome struct {
	status      Status
	detail      string
	slug        string
	path        string
	outputChars int
	timings     map[string]time.Duration
}

// Run drives every topic through the pipeline with a fixed worker pool.
// Only a malformed checkpoint file aborts the run; every per-topic
// failure is recorded and the batch keeps going.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	checkpoint, err := LoadCheckpoint(r.Cfg.CheckpointFile())
	if err != nil {
		return nil, err
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if opts.Images == "" {
		opts.Images = ImagesRender
	}

	start := time.Now()
	summary := &Summary{
		Results:     make([]TopicResult, len(opts.Topics)),
		AgentTotals: make(map[string]time.Duration),
	}
	for i, topic := range opts.Topics {
		summary.Results[i] = TopicResult{Topic: topic, Status: StatusPending}
	}
	var (
		mu     sync.Mutex
		next   int
		halted bool
	)

	worker := func() {
		for {
			mu.Lock()
			if halted || next >= len(opts.Topics) {
				mu.Unlock()
				return
			}
			idx := next
			next++
			mu.Unlock()

			topic := opts.Topics[idx]
			slug := agents.Curate(topic, "").Slug
			topicStart := time.Now()

			if checkpoint.Has(topic) && !opts.Force {
				r.Log.Infof(slug, "skipped: already checkpointed")
				r.emit(Event{Topic: topic, Slug: slug, Status: StatusSkipped})
				mu.Lock()
				summary.Results[idx] = TopicResult{Topic: topic, Slug: slug, Status: StatusSkipped}
				mu.Unlock()
				continue
			}

			r.emit(Event{Topic: topic, Slug: slug, Status: StatusRunning})
			o := r.runWithTimeout(ctx, topic, opts)
			elapsed := time.Since(topicStart)

			if o.status == StatusDone {
				if err := checkpoint.Add(topic); err != nil {
					r.Log.Errorf(slug, "checkpoint write failed: %v", err)
				}
			}
			r.emit(Event{Topic: topic, Slug: slug, Status: o.status, Detail: o.detail})

			mu.Lock()
			summary.Results[idx] = TopicResult{
				Topic:   topic,
				Slug:    slug,
				Status:  o.status,
				Detail:  o.detail,
				Path:    o.path,
				Elapsed: elapsed,
			}
			for name, d := range o.timings {
				summary.AgentTotals[name] += d
			}
			summary.OutputChars += o.outputChars
			if opts.MaxOutputChars > 0 && summary.OutputChars > opts.MaxOutputChars && !halted {
				halted = true
				r.Log.Warnf("", "output ceiling reached (%d chars), stopping intake", summary.OutputChars)
			}
			mu.Unlock()
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker()
		}()
	}
	wg.Wait()

	summary.Elapsed = time.Since(start)
	if r.Budget != nil {
		summary.SpentUSD = r.Budget.SpentUSD()
	}
	return summary, nil
}

// runWithTimeout races the pipeline against the per-topic ceiling. The
// timeout is advisory: the in-flight work is not cancelled and may
// still write files after the batch has moved on.
func (r *Runner) runWithTimeout(ctx context.Context, topic string, opts Options) outcome {
	if opts.TopicTimeout <= 0 {
		return r.processTopic(ctx, topic, opts)
	}
	results := make(chan outcome, 1)
	go func() {
		results <- r.processTopic(ctx, topic, opts)
	}()
	timer := time.NewTimer(opts.TopicTimeout)
	defer timer.Stop()
	select {
	case o := <-results:
		return o
	case <-timer.C:
		slug := agents.Curate(topic, "").Slug
		r.Log.Warnf(slug, "topic exceeded %s ceiling, abandoned", opts.TopicTimeout)
		return outcome{status: StatusTimeout, slug: slug, detail: fmt.Sprintf("exceeded %s", opts.TopicTimeout)}
	}
}

// processTopic runs the full agent sequence for one topic.
func (r *Runner) processTopic(ctx context.Context, topic string, opts Options) outcome {
	o := outcome{timings: make(map[string]time.Duration)}
	step := func(name string, fn func()) {
		started := time.Now()
		fn()
		o.timings[name] += time.Since(started)
	}

	var cur agents.Curation
	step("curator", func() {
		cur = agents.Curate(topic, r.Cfg.Project.Story.ReadingLevel)
	})
	o.slug = cur.Slug
	r.Log.Infof(cur.Slug, "pipeline started for %q", topic)

	collector := r.Collector
	if collector == nil {
		collector = agents.NewCollector()
	}
	var research agents.Research
	step("research", func() {
		research = collector.Collect(ctx, topic, cur.SubAngles)
	})

	outliner := &agents.Outliner{Client: r.Client, Budget: r.Budget, Log: r.Log}
	var outline agents.Outline
	step("outline", func() {
		outline = outliner.Build(ctx, cur.Slug, topic, research)
	})

	drafter := &agents.Drafter{Client: r.Client, Budget: r.Budget, Log: r.Log}
	var drafts []story.Draft
	step("drafter", func() {
		drafts = drafter.Draft(ctx, cur.Slug, topic, outline, r.Cfg.Project.Drafts.Temperatures)
	})

	safety := &agents.SafetyGate{Hooks: r.Hooks, Log: r.Log}
	verifier := &agents.VerifierGate{Hooks: r.Hooks, Log: r.Log}
	var survivors []story.Draft
	step("gates", func() {
		for _, draft := range drafts {
			decision := safety.Review(cur.Slug, draft)
			if !decision.OK {
				r.writeGateReject(cur.Slug, draft, decision.Notes)
				continue
			}
			decision = verifier.Review(cur.Slug, decision.Draft, outline.Sources)
			if !decision.OK {
				r.writeGateReject(cur.Slug, decision.Draft, decision.Notes)
				continue
			}
			survivors = append(survivors, decision.Draft)
		}
	})
	if len(survivors) == 0 {
		o.status = StatusError
		o.detail = "no drafts survived the gates"
		r.Log.Errorf(cur.Slug, "%s", o.detail)
		return o
	}

	var chosen story.Draft
	step("judge", func() {
		verdict := agents.Judge(cur.Slug, survivors)
		chosen = survivors[verdict.ChosenIndex]
	})

	illustrator := &agents.Illustrator{Client: r.Client, Budget: r.Budget, Log: r.Log}
	var plan agents.ArtPlan
	step("illustrator", func() {
		plan = illustrator.Plan(ctx, cur.Slug, chosen)
	})

	var hero *story.ImageRef
	var supports []story.ImageRef
	step("images", func() {
		hero, supports = r.resolveImages(ctx, cur.Slug, topic, plan, opts)
	})

	packager := &agents.Packager{Cfg: r.Cfg, Log: r.Log}
	var (
		path string
		ok   bool
		err  error
	)
	step("packager", func() {
		r.pkgMu.Lock()
		defer r.pkgMu.Unlock()
		path, ok, err = packager.Package(agents.PackageInput{
			Slug:       cur.Slug,
			Topic:      topic,
			Draft:      chosen,
			Sources:    outline.Sources,
			Hero:       hero,
			Supports:   supports,
			ReviewMode: opts.ReviewMode,
		})
	})
	if err != nil {
		o.status = StatusError
		o.detail = err.Error()
		return o
	}
	if !ok {
		if rmErr := os.RemoveAll(r.Cfg.AssetsDir(cur.Slug)); rmErr != nil {
			r.Log.Warnf(cur.Slug, "asset cleanup failed: %v", rmErr)
		}
		o.status = StatusError
		o.detail = "document rejected by schema validation"
		return o
	}

	o.status = StatusDone
	o.path = path
	if info, statErr := os.Stat(path); statErr == nil {
		o.outputChars = int(info.Size())
	}
	r.Log.Infof(cur.Slug, "pipeline finished: %s", path)
	return o
}

// resolveImages turns the art plan into concrete image references,
// rendering only generate-licensed prompts in render mode and falling
// back to the topic's stock asset whenever a render is unavailable.
func (r *Runner) resolveImages(ctx context.Context, slug, topic string, plan agents.ArtPlan, opts Options) (*story.ImageRef, []story.ImageRef) {
	stockFile := r.Cfg.StockAsset(images.CategoryFor(topic))
	stockHero := &story.ImageRef{File: stockFile, Alt: plan.Hero.Alt}
	if opts.Images == ImagesSkip || opts.Images == ImagesStock {
		return stockHero, nil
	}

	renderer := &images.Renderer{Client: r.Client, Budget: r.Budget, Log: r.Log}
	hero := stockHero
	if plan.Hero.License == agents.LicenseGenerate {
		outFile := filepath.Join(r.Cfg.AssetsDir(slug), "hero.png")
		rendered, err := renderer.Render(ctx, slug, plan.Hero.Prompt, outFile, opts.Force)
		if err != nil {
			r.Log.Warnf(slug, "hero render failed: %v", err)
		} else if rendered {
			hero = &story.ImageRef{File: fmt.Sprintf("/assets/%s/hero.png", slug), Alt: plan.Hero.Alt}
		}
	}

	var supports []story.ImageRef
	for i, support := range plan.Supports {
		if support.License != agents.LicenseGenerate {
			continue
		}
		name := fmt.Sprintf("support-%d.png", i+1)
		outFile := filepath.Join(r.Cfg.AssetsDir(slug), name)
		rendered, err := renderer.Render(ctx, slug, support.Prompt, outFile, opts.Force)
		if err != nil {
			r.Log.Warnf(slug, "support render failed: %v", err)
			continue
		}
		if rendered {
			supports = append(supports, story.ImageRef{File: fmt.Sprintf("/assets/%s/%s", slug, name), Alt: support.Alt})
		}
	}
	return hero, supports
}

// writeGateReject persists a rejected draft for later inspection. Gate
// rejects are keyed by slug alone; a later rejection for the same slug
// replaces the record.
func (r *Runner) writeGateReject(slug string, draft story.Draft, notes string) {
	record := struct {
		Draft story.Draft `json:"draft"`
		Notes string      `json:"notes"`
	}{Draft: draft, Notes: notes}
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		r.Log.Errorf(slug, "encode gate reject: %v", err)
		return
	}
	dir := r.Cfg.RejectsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.Log.Errorf(slug, "prepare rejects dir: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, slug+".json"), append(raw, '\n'), 0o644); err != nil {
		r.Log.Errorf(slug, "write gate reject: %v", err)
	}
}

func (r *Runner) emit(ev Event) {
	if r.Events != nil {
		r.Events(ev)
	}
}
