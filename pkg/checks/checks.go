// Package checks runs the project's own build, lint, test and type-check
// scripts before a pull request is opened and renders the outcome.
package checks

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/saint0x/ggrowth/pkg/log"
)

// maxOutput is how much of a command's tail is kept for the PR body.
const maxOutput = 3000

// Check is one script to run.
type Check struct {
	Name   string `yaml:"name"`
	Script string `yaml:"script"`
	// Fatal checks fail the report when they fail. Non-fatal ones are
	// recorded as not configured.
	Fatal bool `yaml:"fatal"`
}

// DefaultChecks mirrors the usual package.json scripts of a Next.js site.
var DefaultChecks = []Check{
	{Name: "build", Script: "build", Fatal: true},
	{Name: "lint", Script: "lint", Fatal: true},
	{Name: "type-check", Script: "type-check", Fatal: true},
	{Name: "test", Script: "test", Fatal: false},
}

// Result is the outcome of one check.
type Result struct {
	Name     string
	Command  string
	Passed   bool
	Fatal    bool
	Skipped  bool
	Output   string
	Duration time.Duration
}

// Report groups the results of one run.
type Report struct {
	Results []Result
}

// Passed reports whether every fatal check passed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if res.Fatal && !res.Passed {
			return false
		}
	}
	return true
}

// Markdown renders the report for a pull request body.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("### Pre-merge checks\n\n")
	if r.Passed() {
		b.WriteString("All required checks passed.\n\n")
	} else {
		b.WriteString("**Some required checks failed.**\n\n")
	}

	for _, res := range r.Results {
		status := "✅ passed"
		switch {
		case res.Skipped:
			status = "⏭️ tests not configured"
		case !res.Passed:
			status = "❌ failed"
		}
		fmt.Fprintf(&b, "- **%s** (`%s`): %s\n", res.Name, res.Command, status)
	}

	for _, res := range r.Results {
		if res.Passed || res.Output == "" {
			continue
		}
		fmt.Fprintf(&b, "\n<details><summary>%s output</summary>\n\n```\n%s\n```\n</details>\n", res.Name, res.Output)
	}
	return b.String()
}

// Runner executes checks through a package-script runner in a directory.
type Runner struct {
	logger  *log.Logger
	dir     string
	command []string
	checks  []Check
}

// NewRunner creates a runner. command is the script runner prefix, e.g.
// ["npm", "run"]; nil means npm. checks nil means DefaultChecks.
func NewRunner(logger *log.Logger, dir string, command []string, checks []Check) *Runner {
	if len(command) == 0 {
		command = []string{"npm", "run"}
	}
	if checks == nil {
		checks = DefaultChecks
	}
	return &Runner{logger: logger, dir: dir, command: command, checks: checks}
}

// Run executes every check sequentially and always returns a report.
func (r *Runner) Run(ctx context.Context) *Report {
	report := &Report{}
	for _, c := range r.checks {
		res := r.runOne(ctx, c)
		switch {
		case res.Passed:
			r.logger.Success("%s passed (%s)", c.Name, res.Duration.Round(time.Millisecond))
		case res.Skipped:
			r.logger.Warning("%s failed or is not configured, continuing", c.Name)
		default:
			r.logger.Error("%s failed", c.Name)
		}
		report.Results = append(report.Results, res)
	}
	return report
}

func (r *Runner) runOne(ctx context.Context, c Check) Result {
	args := append(append([]string{}, r.command[1:]...), c.Script)
	cmd := exec.CommandContext(ctx, r.command[0], args...)
	cmd.Dir = r.dir

	start := time.Now()
	out, err := cmd.CombinedOutput()

	res := Result{
		Name:     c.Name,
		Command:  strings.Join(append([]string{r.command[0]}, args...), " "),
		Fatal:    c.Fatal,
		Passed:   err == nil,
		Output:   tail(string(out), maxOutput),
		Duration: time.Since(start),
	}
	if err != nil && !c.Fatal {
		res.Skipped = true
	}
	return res
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return "..." + s[start:]
}
