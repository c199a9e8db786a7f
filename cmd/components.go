package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/saint0x/ggrowth/pkg/ai"
	"github.com/saint0x/ggrowth/pkg/checks"
	"github.com/saint0x/ggrowth/pkg/config"
	"github.com/saint0x/ggrowth/pkg/gemini"
	"github.com/saint0x/ggrowth/pkg/github"
	"github.com/saint0x/ggrowth/pkg/log"
	"github.com/saint0x/ggrowth/pkg/openai"
	"github.com/saint0x/ggrowth/pkg/pipeline"
	"github.com/saint0x/ggrowth/pkg/scheduler"
	"github.com/saint0x/ggrowth/pkg/workspace"
)

// newCompleter returns the completion backend selected by GGROWTH_PROVIDER.
func newCompleter(ctx context.Context, e *config.Environment) (ai.Completer, error) {
	limiter := rate.NewLimiter(rate.Every(500*time.Millisecond), 1)

	switch e.Provider {
	case config.ProviderGemini:
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:  e.GeminiKey,
			Model:   e.Model,
			Limiter: limiter,
		})
	default:
		return openai.NewClient(e.OpenAIKey, e.Model, openai.WithLimiter(limiter)), nil
	}
}

// buildPipeline wires every component from configuration.
func buildPipeline(ctx context.Context, logger *log.Logger, e *config.Environment, p *config.Pipeline) (*pipeline.Pipeline, error) {
	logger.Loading("Initializing components...")

	completer, err := newCompleter(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", e.Provider, err)
	}
	gen := ai.New(logger.Named("ai"), completer, p.Site)
	logger.Debug("- Generator: %s ✓", e.Provider)

	ws, err := workspace.New(logger.Named("workspace"), e.Workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	logger.Debug("- Workspace: %s ✓", ws.Root())

	var ghOpts []github.Option
	if e.GitHubAPIURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(e.GitHubAPIURL))
	}
	gh := github.New(logger.Named("github"), e.GitHubToken, e.Owner, e.Repo, ghOpts...)
	if gh == nil {
		return nil, fmt.Errorf("failed to initialize GitHub client")
	}
	logger.Debug("- GitHub: %s ✓", gh.Repo())

	if def, err := gh.GetDefaultBranch(ctx); err != nil {
		logger.Warning("Could not fetch repository info for %s: %v", gh.Repo(), err)
	} else if def != e.BaseBranch {
		logger.Warning("Base branch %s is not the repository default (%s)", e.BaseBranch, def)
	}

	var runner pipeline.CheckRunner
	if e.RunChecks {
		runner = checks.NewRunner(logger.Named("checks"), ws.Root(), p.Checks.Runner, p.Checks.Checks)
		logger.Debug("- Checks: enabled ✓")
	}

	pipe, err := pipeline.New(logger, gen, ws, gh, runner, pipeline.Options{
		Targets:      p.Targets,
		BaseBranch:   e.BaseBranch,
		CommitViaAPI: e.CommitViaAPI,
		DryRun:       e.DryRun,
		PullRequest:  p.PullRequest,
	})
	if err != nil {
		return nil, err
	}

	logger.Success("Components ready")
	return pipe, nil
}

// newScheduler builds a scheduler whose runs go through pipe.
func newScheduler(logger *log.Logger, pipe *pipeline.Pipeline) *scheduler.Scheduler {
	return scheduler.New(logger, func(ctx context.Context) error {
		res := pipe.Run(ctx)
		if res.Err == nil && res.PRURL != "" {
			logger.PR("Run %s: %s", res.RunID, res.PRURL)
		}
		return res.Err
	})
}
