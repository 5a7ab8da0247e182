// Package tui renders the live progress board for a batch run. It uses
// bubbletea's Elm-style loop: the runner feeds Event values through a
// channel, each event becomes a message, and the view re-renders the
// per-topic status table.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/curioquest/internal/batch"
)

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	statusStyleDone   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	statusStyleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	statusStyleTimed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	statusStyleSkip   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	statusStyleActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	statusStyleIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	detailStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

type eventMsg batch.Event

type summaryMsg struct {
	summary *batch.Summary
}

// Board is the bubbletea model for one batch run.
type Board struct {
	topics  []string
	status  map[string]batch.Status
	details map[string]string
	spin    spinner.Model
	events  <-chan batch.Event
	done    <-chan *batch.Summary
	summary *batch.Summary
	started time.Time
}

// NewBoard builds the board for the given topics. Events arrive on
// events; the final summary on done ends the program.
func NewBoard(topics []string, events <-chan batch.Event, done <-chan *batch.Summary) *Board {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyleActive
	status := make(map[string]batch.Status, len(topics))
	for _, topic := range topics {
		status[topic] = batch.StatusPending
	}
	return &Board{
		topics:  topics,
		status:  status,
		details: make(map[string]string),
		spin:    sp,
		events:  events,
		done:    done,
		started: time.Now(),
	}
}

func (b *Board) Init() tea.Cmd {
	return tea.Batch(b.spin.Tick, b.nextMsg())
}

// nextMsg waits for the next runner event, or the summary once the
// event channel closes.
func (b *Board) nextMsg() tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-b.events; ok {
			return eventMsg(ev)
		}
		return summaryMsg{summary: <-b.done}
	}
}

func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		switch m.String() {
		case "ctrl+c", "q":
			return b, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spin, cmd = b.spin.Update(m)
		return b, cmd
	case eventMsg:
		b.status[m.Topic] = m.Status
		if m.Detail != "" {
			b.details[m.Topic] = m.Detail
		}
		return b, b.nextMsg()
	case summaryMsg:
		b.summary = m.summary
		return b, tea.Quit
	}
	return b, nil
}

func (b *Board) View() string {
	var out strings.Builder
	out.WriteString(titleStyle.Render("curioquest batch"))
	out.WriteString("\n\n")
	for _, topic := range b.topics {
		status := b.status[topic]
		out.WriteString(fmt.Sprintf("  %s %-28s %s", b.marker(status), topic, b.renderStatus(status)))
		if detail := b.details[topic]; detail != "" {
			out.WriteString("  " + detailStyle.Render(detail))
		}
		out.WriteString("\n")
	}
	if b.summary != nil {
		out.WriteString("\n" + RenderSummary(b.summary))
	} else {
		out.WriteString(detailStyle.Render(fmt.Sprintf("\nrunning %s, press q to detach\n", time.Since(b.started).Round(time.Second))))
	}
	return out.String()
}

func (b *Board) marker(status batch.Status) string {
	if status == batch.StatusRunning {
		return b.spin.View()
	}
	return " "
}

func (b *Board) renderStatus(status batch.Status) string {
	switch status {
	case batch.StatusDone:
		return statusStyleDone.Render(string(status))
	case batch.StatusError:
		return statusStyleError.Render(string(status))
	case batch.StatusTimeout:
		return statusStyleTimed.Render(string(status))
	case batch.StatusSkipped:
		return statusStyleSkip.Render(string(status))
	case batch.StatusRunning:
		return statusStyleActive.Render(string(status))
	default:
		return statusStyleIdle.Render(string(status))
	}
}

// RenderSummary formats the end-of-run report: status counts, spend,
// and the per-agent timing table. The plain-mode CLI prints the same
// block, so the two surfaces never drift apart.
func RenderSummary(summary *batch.Summary) string {
	counts := make(map[batch.Status]int)
	for _, res := range summary.Results {
		counts[res.Status]++
	}
	var out strings.Builder
	out.WriteString(titleStyle.Render("summary") + "\n")
	for _, status := range []batch.Status{batch.StatusDone, batch.StatusSkipped, batch.StatusError, batch.StatusTimeout, batch.StatusPending} {
		if counts[status] > 0 {
			fmt.Fprintf(&out, "  %-8s %d\n", status, counts[status])
		}
	}
	fmt.Fprintf(&out, "  spent    $%.4f\n", summary.SpentUSD)
	fmt.Fprintf(&out, "  output   %d chars\n", summary.OutputChars)
	fmt.Fprintf(&out, "  elapsed  %s\n", summary.Elapsed.Round(time.Millisecond))
	if len(summary.AgentTotals) > 0 {
		out.WriteString("  agent totals:\n")
		names := make([]string, 0, len(summary.AgentTotals))
		for name := range summary.AgentTotals {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&out, "    %-12s %s\n", name, summary.AgentTotals[name].Round(time.Millisecond))
		}
	}
	return out.String()
}

// Run blocks until the batch finishes or the user quits the board.
func Run(topics []string, events <-chan batch.Event, done <-chan *batch.Summary) error {
	program := tea.NewProgram(NewBoard(topics, events, done))
	_, err := program.Run()
	return err
}
