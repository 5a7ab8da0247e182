// cmd/curioq-review/main.go
//
// Reviewer tooling for staged stories: record approvals, rebuild diff
// summaries, publish approved stories, and check the published set.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kingrea/curioquest/internal/config"
	"github.com/kingrea/curioquest/internal/review"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "approve":
		err = runApprove(args)
	case "diff":
		err = runDiff(args)
	case "publish":
		err = runPublish(args)
	case "validate":
		err = runValidate(args)
	case "audit":
		err = runAudit(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "curioq-review: unknown command %q\n", command)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "curioq-review: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: curioq-review <command> [flags]

commands:
  approve  -slug S [-by NAME] [-notes TEXT] [-reject]  record a review verdict
  diff     -slug S                                     rebuild the diff against the published version
  publish  -slug S                                     publish an approved staged story
  validate [-strict]                                   check the published content set
  audit                                                print readability stats per published story

all commands accept -root DIR (defaults to cwd)`)
}

func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	root := fs.String("root", "", "content root directory (defaults to cwd)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	dir := *root
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		dir = cwd
	}
	return config.Load(dir)
}

func runApprove(args []string) error {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	slug := fs.String("slug", "", "story slug")
	by := fs.String("by", "", "reviewer name")
	notes := fs.String("notes", "", "review notes")
	reject := fs.Bool("reject", false, "record a rejection instead of an approval")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *slug == "" {
		return fmt.Errorf("approve: -slug is required")
	}
	approval := review.Approval{
		Approved: !*reject,
		By:       *by,
		At:       time.Now().UTC(),
		Notes:    *notes,
	}
	if err := review.WriteApproval(cfg, *slug, approval); err != nil {
		return err
	}
	verdict := "approved"
	if *reject {
		verdict = "rejected"
	}
	fmt.Printf("%s %s\n", *slug, verdict)
	return nil
}

func runDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	slug := fs.String("slug", "", "story slug")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *slug == "" {
		return fmt.Errorf("diff: -slug is required")
	}
	st, err := review.LoadStory(review.StagedStoryPath(cfg, *slug))
	if err != nil {
		return err
	}
	if err := review.WriteDiff(cfg, *slug, st); err != nil {
		return err
	}
	fmt.Println(cfg.DiffPath(*slug))
	return nil
}

func runPublish(args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	slug := fs.String("slug", "", "story slug")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *slug == "" {
		return fmt.Errorf("publish: -slug is required")
	}
	path, err := review.Publish(cfg, *slug)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	strict := fs.Bool("strict", false, "treat warnings as failures")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	issues, err := review.CheckContent(cfg)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Println(issue)
	}
	if review.Failed(issues, *strict) {
		return fmt.Errorf("validate: %d issue(s)", len(issues))
	}
	fmt.Println("content set ok")
	return nil
}

func runAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	rows, err := review.AuditReadability(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("%-28s %8s %8s %8s\n", "slug", "fk", "asl", "words")
	for _, row := range rows {
		marker := ""
		if row.Warn {
			marker = "  <- above target level"
		}
		fmt.Printf("%-28s %8.2f %8.2f %8d%s\n", row.Slug, row.Stats.FK, row.Stats.ASL, row.Stats.Words, marker)
	}
	return nil
}
