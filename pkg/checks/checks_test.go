package checks

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saint0x/ggrowth/pkg/log"
)

func quietLogger() *log.Logger {
	logger := log.New(false)
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func TestRunAllPass(t *testing.T) {
	runner := NewRunner(quietLogger(), t.TempDir(), []string{"sh", "-c"}, []Check{
		{Name: "build", Script: "echo built", Fatal: true},
		{Name: "test", Script: "echo tested"},
	})

	report := runner.Run(context.Background())
	require.Len(t, report.Results, 2)
	assert.True(t, report.Passed())
	assert.Equal(t, "built", report.Results[0].Output)
	assert.Contains(t, report.Markdown(), "All required checks passed")
}

func TestRunFatalFailure(t *testing.T) {
	runner := NewRunner(quietLogger(), t.TempDir(), []string{"sh", "-c"}, []Check{
		{Name: "lint", Script: "echo 'unused var' >&2; exit 1", Fatal: true},
		{Name: "build", Script: "true", Fatal: true},
	})

	report := runner.Run(context.Background())
	assert.False(t, report.Passed())
	assert.False(t, report.Results[0].Passed)
	assert.True(t, report.Results[1].Passed, "checks after a failure still run")

	md := report.Markdown()
	assert.Contains(t, md, "Some required checks failed")
	assert.Contains(t, md, "unused var")
}

func TestRunMissingTestsNonFatal(t *testing.T) {
	runner := NewRunner(quietLogger(), t.TempDir(), []string{"sh", "-c"}, []Check{
		{Name: "build", Script: "true", Fatal: true},
		{Name: "test", Script: "echo 'Missing script: test'; exit 1"},
	})

	report := runner.Run(context.Background())
	assert.True(t, report.Passed())
	assert.True(t, report.Results[1].Skipped)
	assert.Contains(t, report.Markdown(), "tests not configured")
}

func TestDefaults(t *testing.T) {
	runner := NewRunner(quietLogger(), ".", nil, nil)
	assert.Equal(t, []string{"npm", "run"}, runner.command)
	assert.Len(t, runner.checks, 4)
}

func TestTail(t *testing.T) {
	long := strings.Repeat("x", maxOutput+10)
	got := tail(long, maxOutput)
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.Len(t, got, maxOutput+3)
}

func TestTailRuneBoundary(t *testing.T) {
	got := tail(strings.Repeat("é", 10), 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "...éé", got)
}
