package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/curioquest/internal/agents"
	"github.com/kingrea/curioquest/internal/ai"
	"github.com/kingrea/curioquest/internal/config"
	"github.com/kingrea/curioquest/internal/story"
)

// offlineCollector routes reference lookups at a dead endpoint so every
// topic takes the deterministic stub path without touching the network.
func offlineCollector(t *testing.T) *agents.Collector {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	return agents.NewCollector(
		agents.WithWikipediaBase(server.URL),
		agents.WithNASABase(server.URL),
		agents.WithHTTPClient(server.Client()),
	)
}

func testRunner(t *testing.T, budgetUSD float64) (*Runner, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	if err := config.Init(dir); err != nil {
		t.Fatalf("init root: %v", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return &Runner{
		Cfg:       cfg,
		Client:    ai.NewClient("", nil),
		Budget:    ai.NewBudget(budgetUSD),
		Collector: offlineCollector(t),
	}, cfg
}

func TestRunOfflineStagesBlackHoles(t *testing.T) {
	r, cfg := testRunner(t, 20)
	summary, err := r.Run(context.Background(), Options{
		Topics:     []string{"Black Holes"},
		ReviewMode: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(summary.Results) != 1 || summary.Results[0].Status != StatusDone {
		t.Fatalf("unexpected results: %+v", summary.Results)
	}
	if summary.Results[0].Slug != "black-holes" {
		t.Fatalf("unexpected slug: %q", summary.Results[0].Slug)
	}

	raw, err := os.ReadFile(summary.Results[0].Path)
	if err != nil {
		t.Fatalf("read staged story: %v", err)
	}
	var st story.Story
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode staged story: %v", err)
	}
	if err := story.Validate(&st); err != nil {
		t.Fatalf("staged story invalid: %v", err)
	}
	gems := findPhase(t, st.Phases, story.PhaseFactGems).Gems
	if len(gems) != 3 {
		t.Fatalf("expected 3 gems, got %d", len(gems))
	}
	for i, gem := range gems {
		if gem.SourceID != "s1" {
			t.Fatalf("gem %d should cite the stub source, got %q", i, gem.SourceID)
		}
	}
	if len(st.Sources) != 1 || st.Sources[0].Name != "StubSource" {
		t.Fatalf("expected the single stub source, got %+v", st.Sources)
	}
	if st.HeroImage == nil || !strings.HasPrefix(st.HeroImage.File, "/stock/") {
		t.Fatalf("expected a stock hero reference, got %+v", st.HeroImage)
	}

	checkpoint, err := LoadCheckpoint(cfg.CheckpointFile())
	if err != nil {
		t.Fatalf("reload checkpoint: %v", err)
	}
	if !checkpoint.Has("Black Holes") {
		t.Fatalf("completed topic missing from checkpoint: %v", checkpoint.Topics())
	}
	if _, err := os.Stat(cfg.StoryPath("black-holes")); !os.IsNotExist(err) {
		t.Fatalf("review mode must not publish directly")
	}
}

func TestRunZeroBudgetConcurrencyStaysFree(t *testing.T) {
	r, cfg := testRunner(t, 0)
	topics := make([]string, 10)
	for i := range topics {
		topics[i] = fmt.Sprintf("Topic Number %d", i+1)
	}
	summary, err := r.Run(context.Background(), Options{
		Topics:      topics,
		Concurrency: 4,
		Images:      ImagesRender,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := r.Budget.SpentUSD(); got != 0 {
		t.Fatalf("zero cap must spend nothing, spent %f", got)
	}
	for _, res := range summary.Results {
		if res.Status != StatusDone {
			t.Fatalf("topic %q ended %s (%s)", res.Topic, res.Status, res.Detail)
		}
		raw, err := os.ReadFile(cfg.StoryPath(res.Slug))
		if err != nil {
			t.Fatalf("read %s: %v", res.Slug, err)
		}
		var st story.Story
		if err := json.Unmarshal(raw, &st); err != nil {
			t.Fatalf("decode %s: %v", res.Slug, err)
		}
		if st.HeroImage == nil || !strings.HasPrefix(st.HeroImage.File, "/stock/") {
			t.Fatalf("topic %q should carry a stock hero, got %+v", res.Topic, st.HeroImage)
		}
	}
	for _, ev := range r.Budget.Events() {
		if ev.Images > 0 {
			t.Fatalf("no paid image operation may be approved at $0: %+v", ev)
		}
	}
}

func TestRunSkipsCheckpointedTopics(t *testing.T) {
	r, cfg := testRunner(t, 20)
	checkpoint, err := LoadCheckpoint(cfg.CheckpointFile())
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if err := checkpoint.Add("Volcanoes"); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	summary, err := r.Run(context.Background(), Options{Topics: []string{"Volcanoes"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Results[0].Status != StatusSkipped {
		t.Fatalf("expected skip, got %+v", summary.Results[0])
	}

	summary, err = r.Run(context.Background(), Options{Topics: []string{"Volcanoes"}, Force: true})
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if summary.Results[0].Status != StatusDone {
		t.Fatalf("forced run should process, got %+v", summary.Results[0])
	}
}

func TestRunMalformedCheckpointAborts(t *testing.T) {
	r, cfg := testRunner(t, 20)
	if err := os.WriteFile(cfg.CheckpointFile(), []byte("not json"), 0o644); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}
	if _, err := r.Run(context.Background(), Options{Topics: []string{"Volcanoes"}}); err == nil {
		t.Fatalf("malformed checkpoint must abort the batch")
	}
}

func TestRunAdvisoryTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		http.Error(w, "late", http.StatusInternalServerError)
	}))
	defer slow.Close()

	r, cfg := testRunner(t, 20)
	r.Collector = agents.NewCollector(
		agents.WithWikipediaBase(slow.URL),
		agents.WithNASABase(slow.URL),
		agents.WithHTTPClient(slow.Client()),
	)
	summary, err := r.Run(context.Background(), Options{
		Topics:       []string{"Glaciers"},
		TopicTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Results[0].Status != StatusTimeout {
		t.Fatalf("expected timeout, got %+v", summary.Results[0])
	}

	// The timeout is advisory: the abandoned pipeline may still finish
	// and write files. Wait for it so cleanup does not race those
	// writes, and confirm the documented fire-and-forget behavior.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(cfg.StoryPath("glaciers")); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("abandoned pipeline never completed its writes")
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
}

func TestRunOutputCeilingStopsIntake(t *testing.T) {
	r, _ := testRunner(t, 20)
	topics := []string{"Topic One", "Topic Two", "Topic Three", "Topic Four"}
	summary, err := r.Run(context.Background(), Options{
		Topics:         topics,
		Concurrency:    1,
		MaxOutputChars: 1,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	done := 0
	for _, res := range summary.Results {
		if res.Status == StatusDone {
			done++
		}
	}
	if done != 1 {
		t.Fatalf("ceiling of 1 char with one worker should finish exactly one topic, finished %d", done)
	}
}

func TestRunEmitsProgressEvents(t *testing.T) {
	r, _ := testRunner(t, 20)
	var events []Event
	r.Events = func(ev Event) { events = append(events, ev) }
	if _, err := r.Run(context.Background(), Options{Topics: []string{"Comets"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(events) != 2 || events[0].Status != StatusRunning || events[1].Status != StatusDone {
		t.Fatalf("unexpected event stream: %+v", events)
	}
}

func findPhase(t *testing.T, phases []story.Phase, kind story.PhaseKind) *story.Phase {
	t.Helper()
	for i := range phases {
		if phases[i].Kind == kind {
			return &phases[i]
		}
	}
	t.Fatalf("missing %s phase", kind)
	return nil
}
