// Package pipeline runs one improvement cycle end to end: analyze the site,
// pick an improvement, plan it, apply it and open a pull request.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"

	"github.com/saint0x/ggrowth/pkg/analysis"
	"github.com/saint0x/ggrowth/pkg/checks"
	"github.com/saint0x/ggrowth/pkg/config"
	ghclient "github.com/saint0x/ggrowth/pkg/github"
	"github.com/saint0x/ggrowth/pkg/log"
	"github.com/saint0x/ggrowth/pkg/plan"
	"github.com/saint0x/ggrowth/pkg/workspace"
)

// Generator produces analyses and change plans
type Generator interface {
	AnalyzeFile(ctx context.Context, path, content string) analysis.Report
	BuildPlan(ctx context.Context, item analysis.Item) (*plan.Plan, error)
}

// Workspace reads and writes the local checkout
type Workspace interface {
	List(patterns []string) ([]string, error)
	Read(path string) (string, error)
	Apply(changes []plan.FileChange) workspace.Results
	DryRun(changes []plan.FileChange)
}

// Publisher performs the GitHub side of a run
type Publisher interface {
	CreateBranch(ctx context.Context, base, branch string) (string, error)
	CommitFiles(ctx context.Context, branch, parentSHA, message string, files []ghclient.TreeFile) (string, error)
	FindOpenPR(ctx context.Context, title string) (*github.PullRequest, error)
	CreatePR(ctx context.Context, title, body, head, base string) (*github.PullRequest, error)
	AddLabels(ctx context.Context, number int, labels ...string) error
	RequestReviewers(ctx context.Context, number int, reviewers ...string) error
	AddAssignees(ctx context.Context, number int, assignees ...string) error
	SetMilestone(ctx context.Context, number int, title string) (bool, error)
	CreateCheckRun(ctx context.Context, headSHA, name, summary string) error
}

// CheckRunner runs the pre-merge scripts
type CheckRunner interface {
	Run(ctx context.Context) *checks.Report
}

// Options control what a run touches.
type Options struct {
	Targets      []string
	BaseBranch   string
	CommitViaAPI bool
	DryRun       bool
	PullRequest  config.PullRequestOptions
}

// RunResult describes one pipeline invocation.
type RunResult struct {
	RunID    uuid.UUID
	Item     analysis.Item
	Plan     *plan.Plan
	Changes  workspace.Results
	Checks   *checks.Report
	Branch   string
	HeadSHA  string
	PRNumber int
	PRURL    string
	Started  time.Time
	Finished time.Time
	Err      error
}

// Pipeline wires the components of one run together.
type Pipeline struct {
	logger    *log.Logger
	generator Generator
	workspace Workspace
	publisher Publisher
	checks    CheckRunner
	opts      Options

	mu       sync.Mutex
	lastPlan *plan.Plan
	last     *RunResult
}

// New creates a pipeline. runner may be nil to skip pre-merge scripts.
func New(logger *log.Logger, gen Generator, ws Workspace, pub Publisher, runner CheckRunner, opts Options) (*Pipeline, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if ws == nil {
		return nil, fmt.Errorf("workspace is required")
	}
	if pub == nil && !opts.DryRun {
		return nil, fmt.Errorf("publisher is required")
	}
	if opts.BaseBranch == "" {
		opts.BaseBranch = "main"
	}

	return &Pipeline{
		logger:    logger.Named("pipeline"),
		generator: gen,
		workspace: ws,
		publisher: pub,
		checks:    runner,
		opts:      opts,
	}, nil
}

// Analyze reads every target file and merges the per-file reports. Files
// that cannot be read are skipped.
func (p *Pipeline) Analyze(ctx context.Context) (*analysis.Report, error) {
	files, err := p.workspace.List(p.opts.Targets)
	if err != nil {
		return nil, fmt.Errorf("failed to list target files: %w", err)
	}
	if len(files) == 0 {
		p.logger.Warning("No target files matched %v", p.opts.Targets)
	}

	report := &analysis.Report{}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := p.workspace.Read(path)
		if err != nil {
			p.logger.Warning("Skipping %s: %v", path, err)
			continue
		}
		p.logger.Loading("Analyzing %s (%d/%d)", path, i+1, len(files))
		report.Merge(p.generator.AnalyzeFile(ctx, path, content))
	}

	p.logger.Info("Analysis found %d improvement opportunities in %d files", len(report.Items()), len(files))
	return report, nil
}

// Run executes one full improvement cycle.
func (p *Pipeline) Run(ctx context.Context) (res RunResult) {
	res.RunID = uuid.New()
	res.Started = time.Now()
	logger := p.logger.Named("pipeline/" + res.RunID.String()[:8])

	defer func() {
		res.Finished = time.Now()
		p.mu.Lock()
		last := res
		p.last = &last
		p.mu.Unlock()
	}()

	res.Err = p.run(ctx, logger, &res)
	return res
}

// RunErr adapts Run to a plain error result.
func (p *Pipeline) RunErr(ctx context.Context) error {
	return p.Run(ctx).Err
}

// LastPlan returns the plan built by the most recent run, if any.
func (p *Pipeline) LastPlan() *plan.Plan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPlan
}

// LastResult returns the most recent run result, if any.
func (p *Pipeline) LastResult() *RunResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Pipeline) run(ctx context.Context, logger *log.Logger, res *RunResult) error {
	logger.Step("Analyzing site...")
	report, err := p.Analyze(ctx)
	if err != nil {
		return err
	}

	res.Item = analysis.Prioritize(report.Items())
	logger.Info("Selected %s improvement: %s", res.Item.Type, res.Item.Item)

	logger.Step("Building change plan...")
	pl, err := p.generator.BuildPlan(ctx, res.Item)
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}
	res.Plan = pl
	p.mu.Lock()
	p.lastPlan = pl
	p.mu.Unlock()
	logger.Success("Plan %q touches %d files", pl.Title, len(pl.Changes))

	if p.opts.DryRun {
		p.workspace.DryRun(pl.Changes)
		logger.Info("Dry run: nothing applied or published")
		return nil
	}

	if existing, err := p.publisher.FindOpenPR(ctx, pl.Title); err != nil {
		logger.Warning("Could not check for an existing pull request: %v", err)
	} else if existing != nil {
		res.PRNumber = existing.GetNumber()
		res.PRURL = existing.GetHTMLURL()
		logger.PR("Pull request #%d already proposes %q, skipping publish", res.PRNumber, pl.Title)
		return nil
	}

	logger.Step("Applying changes...")
	res.Changes = p.workspace.Apply(pl.Changes)
	applied := res.Changes.Applied()
	if failed := res.Changes.Failed(); len(failed) > 0 {
		logger.Warning("%d of %d changes failed to apply", len(failed), len(res.Changes))
	}
	if len(applied) == 0 {
		return fmt.Errorf("no changes could be applied")
	}

	res.Branch = branchName(res.Item.Type, res.Started)
	logger.Step("Creating branch...")
	sha, err := p.publisher.CreateBranch(ctx, p.opts.BaseBranch, res.Branch)
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	res.HeadSHA = sha
	logger.Branch("Created %s from %s", res.Branch, p.opts.BaseBranch)

	if p.opts.CommitViaAPI {
		logger.Step("Committing changes...")
		sha, err := p.publisher.CommitFiles(ctx, res.Branch, res.HeadSHA, commitMessage(pl), treeFiles(applied))
		if err != nil {
			return fmt.Errorf("failed to commit changes: %w", err)
		}
		res.HeadSHA = sha
		logger.Git("Committed %d files as %s", len(applied), shortSHA(sha))
	} else {
		logger.Info("Commit via API disabled; push %s externally", res.Branch)
	}

	if p.checks != nil {
		logger.Step("Running pre-merge checks...")
		res.Checks = p.checks.Run(ctx)
		if res.Checks.Passed() {
			logger.Success("Pre-merge checks passed")
		} else {
			logger.Warning("Pre-merge checks failed; opening pull request anyway")
		}
	}

	logger.Step("Creating pull request...")
	pr, err := p.publisher.CreatePR(ctx, pl.Title, prBody(res), res.Branch, p.opts.BaseBranch)
	if err != nil {
		return fmt.Errorf("failed to create pull request: %w", err)
	}
	res.PRNumber = pr.GetNumber()
	res.PRURL = pr.GetHTMLURL()
	logger.Success("Created PR #%d", res.PRNumber)
	logger.PR("URL: %s", res.PRURL)

	p.configurePR(ctx, logger, res.PRNumber)
	p.createCheckRuns(ctx, logger, res)
	return nil
}

// configurePR attaches metadata one entry at a time. Failures are logged
// and skipped; the remaining entries are still attached.
func (p *Pipeline) configurePR(ctx context.Context, logger *log.Logger, number int) {
	o := p.opts.PullRequest

	for _, label := range o.Labels {
		if err := p.publisher.AddLabels(ctx, number, label); err != nil {
			logger.Warning("Skipping label %q: %v", label, err)
			continue
		}
		logger.PR("Label: %s", label)
	}
	for _, reviewer := range o.Reviewers {
		if err := p.publisher.RequestReviewers(ctx, number, reviewer); err != nil {
			logger.Warning("Skipping reviewer %q: %v", reviewer, err)
			continue
		}
		logger.PR("Reviewer: %s", reviewer)
	}
	for _, assignee := range o.Assignees {
		if err := p.publisher.AddAssignees(ctx, number, assignee); err != nil {
			logger.Warning("Skipping assignee %q: %v", assignee, err)
			continue
		}
		logger.PR("Assignee: %s", assignee)
	}
	if o.Milestone != "" {
		found, err := p.publisher.SetMilestone(ctx, number, o.Milestone)
		switch {
		case err != nil:
			logger.Warning("Skipping milestone: %v", err)
		case !found:
			logger.Debug("No open milestone named %q", o.Milestone)
		default:
			logger.PR("Milestone: %s", o.Milestone)
		}
	}
}

func (p *Pipeline) createCheckRuns(ctx context.Context, logger *log.Logger, res *RunResult) {
	for _, name := range p.opts.PullRequest.CheckRuns {
		summary := fmt.Sprintf("%s improvement: %s", res.Item.Type, res.Item.Item)
		if err := p.publisher.CreateCheckRun(ctx, res.HeadSHA, name, summary); err != nil {
			logger.Warning("Skipping check run %q: %v", name, err)
		}
	}
}

func branchName(category analysis.Category, at time.Time) string {
	return fmt.Sprintf("ggrowth/%s-%d", category, at.Unix())
}

func commitMessage(pl *plan.Plan) string {
	return fmt.Sprintf("%s: %s\n\n%s", pl.Type, pl.Title, pl.Description)
}

func treeFiles(changes []plan.FileChange) []ghclient.TreeFile {
	files := make([]ghclient.TreeFile, 0, len(changes))
	for _, c := range changes {
		f := ghclient.TreeFile{Path: c.Filepath}
		if c.Action != plan.ActionDelete {
			content := c.Content
			f.Content = &content
		}
		files = append(files, f)
	}
	return files
}

func prBody(res *RunResult) string {
	var b strings.Builder
	b.WriteString(res.Plan.Summary())

	if failed := res.Changes.Failed(); len(failed) > 0 {
		b.WriteString("\n### Changes not applied\n\n")
		for _, f := range failed {
			fmt.Fprintf(&b, "- `%s` (%s): %v\n", f.Change.Filepath, f.Change.Action, f.Err)
		}
	}
	if res.Checks != nil {
		b.WriteString("\n")
		b.WriteString(res.Checks.Markdown())
	}

	fmt.Fprintf(&b, "\n---\n_Opened by ggrowth run `%s`._\n", res.RunID)
	return b.String()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
