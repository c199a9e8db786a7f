package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/saint0x/ggrowth/pkg/analysis"
	"github.com/saint0x/ggrowth/pkg/log"
	"github.com/saint0x/ggrowth/pkg/plan"
)

// Generator turns file contents into analysis reports and improvement items
// into change plans using a completion model.
type Generator struct {
	logger    *log.Logger
	completer Completer
	site      SiteContext
}

// New creates a new Generator instance
func New(logger *log.Logger, completer Completer, site SiteContext) *Generator {
	return &Generator{
		logger:    logger,
		completer: completer,
		site:      site,
	}
}

// AnalyzeFile asks the model for improvement suggestions on one file. Any
// failure, including unusable output, yields an empty report.
func (g *Generator) AnalyzeFile(ctx context.Context, path, content string) analysis.Report {
	raw, err := g.completer.Complete(ctx, analysisPrompt(g.site, path, content))
	if err != nil {
		g.logger.Warning("Analysis of %s failed: %v", path, err)
		return analysis.Report{}
	}

	report, err := ParseAnalysis(raw)
	if err != nil {
		g.logger.Warning("Ignoring analysis of %s: %v", path, err)
		if g.logger.IsDebug() {
			g.logger.Debug("Raw response: %s", raw)
		}
		return analysis.Report{}
	}

	g.logger.Debug("Analyzed %s: %d suggestions", path, len(report.Items()))
	return report
}

// ParseAnalysis decodes a model response into a partial report. Responses
// that are not a JSON object of string lists are rejected.
func ParseAnalysis(raw string) (analysis.Report, error) {
	var report analysis.Report
	body := stripFences(raw)
	if !strings.HasPrefix(body, "{") {
		return analysis.Report{}, fmt.Errorf("response is not a JSON object")
	}
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return analysis.Report{}, fmt.Errorf("failed to parse analysis: %w", err)
	}
	return report, nil
}

// BuildPlan asks the model for a complete change plan for item. Unlike
// AnalyzeFile there is no fallback: every failure is returned as *PlanError.
func (g *Generator) BuildPlan(ctx context.Context, item analysis.Item) (*plan.Plan, error) {
	raw, err := g.completer.Complete(ctx, planPrompt(g.site, item))
	if err != nil {
		return nil, &PlanError{Stage: "completion", Err: err}
	}

	p, err := ParsePlan(raw)
	if err != nil {
		return nil, err
	}
	if p.Type == "" {
		p.Type = string(item.Type)
	}
	if len(p.Files) == 0 {
		p.Files = p.Paths()
	}

	return p, nil
}

// ParsePlan decodes and validates a plan response.
func ParsePlan(raw string) (*plan.Plan, error) {
	var p plan.Plan
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		return nil, &PlanError{Stage: "parse", Err: err}
	}
	if err := p.Validate(); err != nil {
		return nil, &PlanError{Stage: "validate", Err: err}
	}
	return &p, nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
