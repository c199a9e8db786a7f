package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/saint0x/ggrowth/pkg/analysis"
	"github.com/saint0x/ggrowth/pkg/pipeline"
	"github.com/saint0x/ggrowth/pkg/plan"
	"github.com/saint0x/ggrowth/pkg/scheduler"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Pick pipeline actions from a menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := buildPipeline(cmd.Context(), logger, env, setup)
		if err != nil {
			return err
		}
		sched := newScheduler(logger, pipe)

		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}

		// the menu owns the terminal; keep the console logger out of it
		logger.SetOutput(io.Discard)

		m := newMenuModel(cmd.Context(), pipe, sched, func(md string) string {
			out, err := renderer.Render(md)
			if err != nil {
				return md
			}
			return out
		})
		_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	},
}

// analyzer is the pipeline surface the menu drives
type analyzer interface {
	Analyze(ctx context.Context) (*analysis.Report, error)
	LastPlan() *plan.Plan
	LastResult() *pipeline.RunResult
}

// runController triggers guarded runs and reports state
type runController interface {
	RunNow(ctx context.Context) error
	Status() scheduler.Status
}

const (
	actionAnalyze = "analyze"
	actionRun     = "run"
	actionPreview = "preview"
	actionStatus  = "status"
	actionQuit    = "quit"
)

type menuItem struct {
	key, title, desc string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

var menuItems = []list.Item{
	menuItem{actionAnalyze, "Run analysis only", "Analyze target files and show the selected improvement"},
	menuItem{actionRun, "Run full pipeline", "Analyze, plan, apply and open a pull request"},
	menuItem{actionPreview, "Preview last plan", "Show the most recent change plan"},
	menuItem{actionStatus, "Show status", "Scheduler state and last run"},
	menuItem{actionQuit, "Quit", "Exit ggrowth"},
}

// actionDoneMsg carries the markdown produced by a finished action
type actionDoneMsg struct {
	markdown string
	err      error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6BCB77")).MarginBottom(1)
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	errorStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#FF6B6B")).Padding(0, 1)
)

type menuModel struct {
	ctx     context.Context
	pipe    analyzer
	ctl     runController
	render  func(string) string
	list    list.Model
	spinner spinner.Model
	busy    string
	output  string
}

func newMenuModel(ctx context.Context, pipe analyzer, ctl runController, render func(string) string) menuModel {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	l := list.New(menuItems, delegate, 60, 14)
	l.Title = "ggrowth"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return menuModel{
		ctx:     ctx,
		pipe:    pipe,
		ctl:     ctl,
		render:  render,
		list:    l,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, 14)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if m.busy != "" {
				return m, nil
			}
			item, ok := m.list.SelectedItem().(menuItem)
			if !ok {
				return m, nil
			}
			if item.key == actionQuit {
				return m, tea.Quit
			}
			m.busy = item.title
			m.output = ""
			return m, tea.Batch(m.spinner.Tick, m.perform(item.key))
		}

	case actionDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.output = errorStyle.Render(fmt.Sprintf("⚠ %v", msg.err))
		} else {
			m.output = m.render(msg.markdown)
		}
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m menuModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🌱 Website improvement agent"))
	b.WriteString("\n")
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.busy != "" {
		b.WriteString(busyStyle.Render(fmt.Sprintf("%s %s...", m.spinner.View(), m.busy)))
	} else if m.output != "" {
		b.WriteString(m.output)
	}
	return b.String()
}

// perform runs one menu action off the UI goroutine
func (m menuModel) perform(key string) tea.Cmd {
	return func() tea.Msg {
		switch key {
		case actionAnalyze:
			report, err := m.pipe.Analyze(m.ctx)
			if err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{markdown: analysisMarkdown(report)}

		case actionRun:
			if err := m.ctl.RunNow(m.ctx); err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{markdown: resultMarkdown(m.pipe.LastResult())}

		case actionPreview:
			p := m.pipe.LastPlan()
			if p == nil {
				return actionDoneMsg{markdown: "_No plan has been built yet. Run the full pipeline first._"}
			}
			return actionDoneMsg{markdown: p.Summary()}

		case actionStatus:
			st := m.ctl.Status()
			return actionDoneMsg{markdown: "```\n" + formatStatus(&st) + "```\n"}
		}
		return actionDoneMsg{err: fmt.Errorf("unknown action %q", key)}
	}
}

func analysisMarkdown(r *analysis.Report) string {
	items := r.Items()
	selected := analysis.Prioritize(items)

	var b strings.Builder
	b.WriteString("## Analysis\n\n")
	fmt.Fprintf(&b, "%d suggestions. Next improvement: **%s**: %s\n\n", len(items), selected.Type, selected.Item)

	var current analysis.Category
	for _, it := range items {
		if it.Type != current {
			fmt.Fprintf(&b, "\n### %s\n\n", it.Type)
			current = it.Type
		}
		fmt.Fprintf(&b, "- %s\n", it.Item)
	}
	if r.CodeQuality.Score > 0 {
		fmt.Fprintf(&b, "\n**Code quality score:** %.1f\n", r.CodeQuality.Score)
	}
	return b.String()
}

func resultMarkdown(res *pipeline.RunResult) string {
	if res == nil {
		return "_No run recorded._"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Run `%s`\n\n", res.RunID)
	fmt.Fprintf(&b, "- **Improvement:** %s: %s\n", res.Item.Type, res.Item.Item)
	if res.Branch != "" {
		fmt.Fprintf(&b, "- **Branch:** `%s`\n", res.Branch)
	}
	if res.PRURL != "" {
		fmt.Fprintf(&b, "- **Pull request:** [#%d](%s)\n", res.PRNumber, res.PRURL)
	}
	if failed := res.Changes.Failed(); len(failed) > 0 {
		fmt.Fprintf(&b, "- **Changes not applied:** %d\n", len(failed))
	}
	if res.Plan != nil {
		b.WriteString("\n")
		b.WriteString(res.Plan.Summary())
	}
	return b.String()
}
