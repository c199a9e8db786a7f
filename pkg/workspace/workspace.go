// Package workspace reads source files from and applies file changes to the
// local working tree the pipeline operates on.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/saint0x/ggrowth/pkg/log"
)

// Workspace is a directory on local disk treated as the project root.
type Workspace struct {
	root   string
	logger *log.Logger
}

// New returns a workspace rooted at root. An empty root means the current
// working directory.
func New(logger *log.Logger, root string) (*Workspace, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}

	return &Workspace{root: abs, logger: logger}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// resolve turns a workspace-relative path into an absolute one, refusing
// anything that would land outside the root.
func (w *Workspace) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %s must be relative to the workspace", rel)
	}
	abs := filepath.Join(w.root, filepath.FromSlash(rel))
	if abs != w.root && !strings.HasPrefix(abs, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the workspace", rel)
	}
	return abs, nil
}

// List expands glob patterns relative to the root and returns the matching
// regular files as sorted, slash separated relative paths.
func (w *Workspace) List(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		abs, err := w.resolve(pattern)
		if err != nil {
			return nil, err
		}
		matches, err := filepath.Glob(abs)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			w.logger.Debug("No files match %s", pattern)
		}

		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			rel, err := filepath.Rel(w.root, m)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !seen[rel] {
				seen[rel] = true
				files = append(files, rel)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// Read returns the text content of a workspace-relative file.
func (w *Workspace) Read(rel string) (string, error) {
	abs, err := w.resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(data), nil
}
