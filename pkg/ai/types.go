package ai

import (
	"context"
	"fmt"
)

// Completer sends one prompt to a hosted completion model and returns its text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SiteContext is the static description of the site under improvement that
// goes into every prompt.
type SiteContext struct {
	Name     string `yaml:"name"`
	Purpose  string `yaml:"purpose"`
	Audience string `yaml:"audience"`
	Platform string `yaml:"platform"`
	Stack    string `yaml:"stack"`
}

// PlanError reports why no usable plan could be produced.
type PlanError struct {
	Stage string // completion, parse or validate
	Err   error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("failed to build plan (%s): %v", e.Stage, e.Err)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}
