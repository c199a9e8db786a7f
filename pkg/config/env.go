package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/saint0x/ggrowth/pkg/github"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Environment holds validated environment configuration
type Environment struct {
	GitHubToken      string `env:"GITHUB_TOKEN,required,notEmpty"`
	Owner            string `env:"GITHUB_OWNER"`
	Repo             string `env:"GITHUB_REPO"`
	GitHubRepository string `env:"GITHUB_REPOSITORY"`
	GitHubAPIURL     string `env:"GITHUB_API_URL"`

	Provider  string `env:"GGROWTH_PROVIDER" envDefault:"openai"`
	OpenAIKey string `env:"OPENAI_API_KEY"`
	GeminiKey string `env:"GEMINI_API_KEY"`
	Model     string `env:"GGROWTH_MODEL"`

	Workspace    string `env:"GGROWTH_WORKSPACE"`
	ConfigFile   string `env:"GGROWTH_CONFIG"`
	Cron         string `env:"GGROWTH_CRON" envDefault:"0 9 * * *"`
	BaseBranch   string `env:"GGROWTH_BASE_BRANCH" envDefault:"main"`
	Port         string `env:"GGROWTH_PORT" envDefault:"8787"`
	LogFile      string `env:"GGROWTH_LOG_FILE"`
	RunChecks    bool   `env:"GGROWTH_RUN_CHECKS" envDefault:"false"`
	CommitViaAPI bool   `env:"GGROWTH_COMMIT_VIA_API" envDefault:"true"`
	DryRun       bool   `env:"GGROWTH_DRY_RUN" envDefault:"false"`
	Debug        bool   `env:"DEBUG"`
}

// MissingError lists every required variable that is not set.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Names, ", "))
}

// Validate reads the process environment and checks every required variable.
// It never touches the network.
func Validate() (*Environment, error) {
	return parse(env.Options{})
}

// ValidateFrom is Validate over an explicit set of variables.
func ValidateFrom(vars map[string]string) (*Environment, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Environment, error) {
	e := &Environment{}
	missing := map[string]bool{}

	if err := env.ParseWithOptions(e, opts); err != nil {
		var agg env.AggregateError
		if !errors.As(err, &agg) {
			return nil, fmt.Errorf("parse env: %w", err)
		}
		for _, inner := range agg.Errors {
			var notSet env.VarIsNotSetError
			var empty env.EmptyVarError
			switch {
			case errors.As(inner, &notSet):
				missing[notSet.Key] = true
			case errors.As(inner, &empty):
				missing[empty.Key] = true
			default:
				return nil, fmt.Errorf("parse env: %w", err)
			}
		}
	}

	// GITHUB_REPOSITORY (owner/repo, as set in GitHub Actions) fills in
	// whatever GITHUB_OWNER and GITHUB_REPO leave out.
	if (e.Owner == "" || e.Repo == "") && e.GitHubRepository != "" {
		owner, repo, err := github.ParseRepoURL(e.GitHubRepository)
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_REPOSITORY: %w", err)
		}
		if e.Owner == "" {
			e.Owner = owner
		}
		if e.Repo == "" {
			e.Repo = repo
		}
	}
	if e.Owner == "" {
		missing["GITHUB_OWNER"] = true
	}
	if e.Repo == "" {
		missing["GITHUB_REPO"] = true
	}

	switch e.Provider {
	case ProviderOpenAI:
		if e.OpenAIKey == "" {
			missing["OPENAI_API_KEY"] = true
		}
	case ProviderGemini:
		if e.GeminiKey == "" {
			missing["GEMINI_API_KEY"] = true
		}
	default:
		return nil, fmt.Errorf("unknown GGROWTH_PROVIDER %q (want %s or %s)", e.Provider, ProviderOpenAI, ProviderGemini)
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, &MissingError{Names: names}
	}

	if e.Workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		e.Workspace = wd
	}
	if e.ConfigFile == "" {
		e.ConfigFile = filepath.Join(e.Workspace, ".ggrowth.yaml")
	}

	return e, nil
}

// APIKey returns the key for the configured completion provider.
func (e *Environment) APIKey() string {
	if e.Provider == ProviderGemini {
		return e.GeminiKey
	}
	return e.OpenAIKey
}
