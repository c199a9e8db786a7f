// Package plan describes a concrete change plan for one improvement.
package plan

import (
	"fmt"
	"strings"
)

// Action is what to do with one file.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// FileChange is one file touched by a plan. Content holds the complete new
// file, never a diff.
type FileChange struct {
	Filepath string `json:"filepath"`
	Action   Action `json:"action"`
	Content  string `json:"content,omitempty"`
	Reason   string `json:"reason"`
}

// Plan is the structured change plan for one selected improvement.
type Plan struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Type            string       `json:"type"`
	Priority        string       `json:"priority"`
	EstimatedImpact string       `json:"estimatedImpact"`
	Files           []string     `json:"files"`
	Changes         []FileChange `json:"changes"`
}

// Validate checks the plan has the shape the applier and publisher rely on.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("plan has no title")
	}
	if len(p.Changes) == 0 {
		return fmt.Errorf("plan has no changes")
	}

	for i, c := range p.Changes {
		if strings.TrimSpace(c.Filepath) == "" {
			return fmt.Errorf("change %d has no filepath", i)
		}
		switch c.Action {
		case ActionCreate, ActionModify:
			if c.Content == "" {
				return fmt.Errorf("change %d (%s %s) has no content", i, c.Action, c.Filepath)
			}
		case ActionDelete:
		default:
			return fmt.Errorf("change %d has unknown action %q", i, c.Action)
		}
	}
	return nil
}

// Paths returns the file paths of every change, in order.
func (p *Plan) Paths() []string {
	paths := make([]string, 0, len(p.Changes))
	for _, c := range p.Changes {
		paths = append(paths, c.Filepath)
	}
	return paths
}

// Summary renders the plan as markdown for logs, previews and PR bodies.
func (p *Plan) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Description)
	}
	fmt.Fprintf(&b, "- **Type:** %s\n", p.Type)
	fmt.Fprintf(&b, "- **Priority:** %s\n", p.Priority)
	fmt.Fprintf(&b, "- **Estimated impact:** %s\n\n", p.EstimatedImpact)

	b.WriteString("### Changes\n\n")
	for _, c := range p.Changes {
		if c.Reason != "" {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", c.Filepath, c.Action, c.Reason)
		} else {
			fmt.Fprintf(&b, "- `%s` (%s)\n", c.Filepath, c.Action)
		}
	}
	return b.String()
}
