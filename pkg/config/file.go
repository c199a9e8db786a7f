package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/saint0x/ggrowth/pkg/ai"
	"github.com/saint0x/ggrowth/pkg/checks"
)

// PullRequestOptions holds the optional metadata attached to every PR.
type PullRequestOptions struct {
	Labels    []string `yaml:"labels"`
	Reviewers []string `yaml:"reviewers"`
	Assignees []string `yaml:"assignees"`
	Milestone string   `yaml:"milestone"`
	CheckRuns []string `yaml:"check_runs"`
}

// ChecksOptions configures the pre-merge script runs.
type ChecksOptions struct {
	Runner []string       `yaml:"runner"`
	Checks []checks.Check `yaml:"checks"`
}

// Pipeline is the optional YAML file describing the site and PR conventions.
type Pipeline struct {
	Site        ai.SiteContext     `yaml:"site"`
	Targets     []string           `yaml:"targets"`
	PullRequest PullRequestOptions `yaml:"pull_request"`
	Checks      ChecksOptions      `yaml:"checks"`
}

// DefaultPipeline describes a typical Next.js marketing site.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Site: ai.SiteContext{
			Name:     "the website",
			Purpose:  "marketing site presenting portfolio work, sectors served and product demos",
			Audience: "prospective clients evaluating the agency",
			Platform: "Vercel",
			Stack:    "Next.js, React, TypeScript, Tailwind CSS",
		},
		Targets: []string{
			"app/*.tsx",
			"app/*/*.tsx",
			"pages/*.tsx",
			"components/*.tsx",
			"next.config.js",
			"package.json",
		},
		PullRequest: PullRequestOptions{
			Labels:    []string{"automated", "improvement"},
			CheckRuns: []string{"ggrowth/analysis", "ggrowth/plan"},
		},
	}
}

// LoadPipeline reads the YAML file at path over the defaults. A missing file
// yields the defaults.
func LoadPipeline(path string) (*Pipeline, error) {
	p := DefaultPipeline()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(p.Targets) == 0 {
		return nil, fmt.Errorf("%s: targets must not be empty", path)
	}
	return p, nil
}
