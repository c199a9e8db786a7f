package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/saint0x/ggrowth/pkg/plan"
)

// ChangeResult is the outcome of applying one file change.
type ChangeResult struct {
	Change plan.FileChange
	Err    error
}

// Results holds one ChangeResult per change, in application order.
type Results []ChangeResult

// Failed returns the results that did not apply.
func (r Results) Failed() Results {
	var failed Results
	for _, res := range r {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Applied returns the changes that were applied successfully.
func (r Results) Applied() []plan.FileChange {
	var applied []plan.FileChange
	for _, res := range r {
		if res.Err == nil {
			applied = append(applied, res.Change)
		}
	}
	return applied
}

// Apply executes changes one at a time in order. A failing change is logged
// and recorded; it never stops the rest of the batch.
func (w *Workspace) Apply(changes []plan.FileChange) Results {
	results := make(Results, 0, len(changes))
	for _, c := range changes {
		err := w.applyOne(c)
		if err != nil {
			w.logger.Error("Failed to %s %s: %v", c.Action, c.Filepath, err)
		} else {
			w.logger.Diff("%s %s", c.Action, c.Filepath)
		}
		results = append(results, ChangeResult{Change: c, Err: err})
	}
	return results
}

// DryRun logs what Apply would do without touching the disk.
func (w *Workspace) DryRun(changes []plan.FileChange) {
	for _, c := range changes {
		w.logger.Diff("[dry-run] %s %s (%d bytes)", c.Action, c.Filepath, len(c.Content))
	}
}

func (w *Workspace) applyOne(c plan.FileChange) error {
	abs, err := w.resolve(c.Filepath)
	if err != nil {
		return err
	}

	switch c.Action {
	case plan.ActionCreate:
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return fmt.Errorf("failed to create parent directories: %w", err)
		}
		return os.WriteFile(abs, []byte(c.Content), 0644)

	case plan.ActionModify:
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("cannot modify: %w", err)
		}
		return os.WriteFile(abs, []byte(c.Content), info.Mode().Perm())

	case plan.ActionDelete:
		return os.Remove(abs)

	default:
		return fmt.Errorf("unknown action %q", c.Action)
	}
}
