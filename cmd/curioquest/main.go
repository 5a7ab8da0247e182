// cmd/curioquest/main.go
//
// Batch story generator. Reads topics from flags or a file, drives each
// one through the agent pipeline, and shows progress on a terminal
// board (or plain log lines with -plain).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kingrea/curioquest/internal/agents"
	"github.com/kingrea/curioquest/internal/ai"
	"github.com/kingrea/curioquest/internal/batch"
	"github.com/kingrea/curioquest/internal/config"
	"github.com/kingrea/curioquest/internal/runlog"
	"github.com/kingrea/curioquest/internal/tui"
	"github.com/kingrea/curioquest/plugins"
)

type topicList []string

func (t *topicList) String() string { return strings.Join(*t, ", ") }

func (t *topicList) Set(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("empty topic")
	}
	*t = append(*t, trimmed)
	return nil
}

func main() {
	var topics topicList
	root := flag.String("root", "", "content root directory (defaults to cwd)")
	topicsFile := flag.String("topics-file", "", "file with one topic per line")
	force := flag.Bool("force", false, "reprocess topics already in the checkpoint set")
	imageMode := flag.String("images", "render", "image handling: render, stock, or skip")
	concurrency := flag.Int("concurrency", 3, "worker pool size")
	maxMS := flag.Int("max-ms-per-topic", 0, "advisory per-topic ceiling in milliseconds (0 = none)")
	maxChars := flag.Int("max-chars", 0, "stop intake after this many output chars (0 = none)")
	review := flag.Bool("review", true, "stage stories for human review instead of publishing directly")
	plain := flag.Bool("plain", false, "print progress lines instead of the board")
	flag.Var(&topics, "topic", "topic to generate (repeatable)")
	flag.Parse()

	if *topicsFile != "" {
		fileTopics, err := readTopicsFile(*topicsFile)
		if err != nil {
			die("read topics file: %v", err)
		}
		topics = append(topics, fileTopics...)
	}
	if len(topics) == 0 {
		die("no topics: pass -topic or -topics-file")
	}

	mode := batch.ImageMode(*imageMode)
	switch mode {
	case batch.ImagesRender, batch.ImagesStock, batch.ImagesSkip:
	default:
		die("unknown -images mode %q (want render, stock, or skip)", *imageMode)
	}

	rootDir := *root
	if rootDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
		rootDir = cwd
	}
	absoluteRoot, err := filepath.Abs(rootDir)
	if err != nil {
		die("resolve root: %v", err)
	}
	if err := config.Init(absoluteRoot); err != nil {
		die("init content root: %v", err)
	}
	cfg, err := config.Load(absoluteRoot)
	if err != nil {
		die("load config: %v", err)
	}

	log, err := runlog.New(cfg.RunLogFile())
	if err != nil {
		die("open run log: %v", err)
	}
	client := ai.NewClient(cfg.APIKey, ai.NewCallLog(cfg.CallLogDir()),
		ai.WithTextModel(cfg.Project.Models.Text),
		ai.WithImageModel(cfg.Project.Models.Image),
	)
	if !client.Configured() {
		fmt.Fprintln(os.Stderr, "no OPENAI_API_KEY set: generating deterministic fallback content")
	}
	hooks, err := plugins.LoadGateDir(cfg.GatesDir())
	if err != nil {
		die("load gate hooks: %v", err)
	}

	runner := &batch.Runner{
		Cfg:       cfg,
		Client:    client,
		Budget:    ai.NewBudget(cfg.BudgetUSD),
		Log:       log,
		Collector: agents.NewCollector(),
		Hooks:     hooks,
	}
	opts := batch.Options{
		Topics:         topics,
		Concurrency:    *concurrency,
		Force:          *force,
		ReviewMode:     *review,
		Images:         mode,
		TopicTimeout:   time.Duration(*maxMS) * time.Millisecond,
		MaxOutputChars: *maxChars,
	}

	summary, err := runBatch(runner, opts, *plain)
	if err != nil {
		die("batch: %v", err)
	}
	for _, res := range summary.Results {
		if res.Status == batch.StatusError || res.Status == batch.StatusTimeout {
			os.Exit(1)
		}
	}
}

// runBatch executes the runner behind either surface: the live board or
// plain progress lines.
func runBatch(runner *batch.Runner, opts batch.Options, plain bool) (*batch.Summary, error) {
	if plain {
		runner.Events = func(ev batch.Event) {
			line := fmt.Sprintf("%-8s %s", ev.Status, ev.Topic)
			if ev.Detail != "" {
				line += " (" + ev.Detail + ")"
			}
			fmt.Println(line)
		}
		summary, err := runner.Run(context.Background(), opts)
		if err != nil {
			return nil, err
		}
		fmt.Print(tui.RenderSummary(summary))
		return summary, nil
	}

	events := make(chan batch.Event, len(opts.Topics)*2)
	done := make(chan *batch.Summary, 1)
	runner.Events = func(ev batch.Event) { events <- ev }

	var (
		summary *batch.Summary
		runErr  error
	)
	go func() {
		summary, runErr = runner.Run(context.Background(), opts)
		close(events)
		done <- summary
	}()
	if err := tui.Run(opts.Topics, events, done); err != nil {
		return nil, fmt.Errorf("progress board: %w", err)
	}
	if runErr != nil {
		return nil, runErr
	}
	return summary, nil
}

func readTopicsFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var topics []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	return topics, scanner.Err()
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "curioquest: "+format+"\n", args...)
	os.Exit(1)
}
