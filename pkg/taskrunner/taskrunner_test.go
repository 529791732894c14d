package taskrunner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
	"github.com/tyemirov/buildgraph/internal/taskgraph"
)

type fakeExecutor struct {
	report taskgraph.RunReport
	err    error
}

func (executor fakeExecutor) Execute(context.Context, string, buildcontext.ExecutionContext) (taskgraph.RunReport, error) {
	return executor.report, executor.err
}

func sampleReport() taskgraph.RunReport {
	startTime := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return taskgraph.RunReport{
		RunID:     "3f0c7c1e-0000-4000-8000-000000000000",
		Goal:      "pack",
		StartTime: startTime,
		EndTime:   startTime.Add(1500 * time.Millisecond),
		Duration:  1500 * time.Millisecond,
		Results: []taskgraph.RunResult{
			{TaskName: "compile", Outcome: taskgraph.OutcomeSucceeded, Duration: 1200 * time.Millisecond},
			{TaskName: "pack", Outcome: taskgraph.OutcomeSucceeded, Duration: 300 * time.Millisecond},
			{TaskName: "publish-github", Outcome: taskgraph.OutcomeSkipped, SkipReason: "precondition not met: on a develop branch", Triggered: true, TriggeredBy: "pack"},
			{TaskName: "publish-nuget", Outcome: taskgraph.OutcomeFailed, Err: errors.New("dotnet command exited with code 1"), Triggered: true, TriggeredBy: "pack"},
		},
	}
}

func TestRenderSummaryLineFormatsCounts(t *testing.T) {
	summary := RenderSummaryLine(sampleReport())
	require.Equal(t, "Summary: goal=pack total.tasks=4 succeeded=2 skipped=1 failed=1 duration_human=1.5s duration_ms=1500", summary)
}

func TestRenderSummaryLineWithoutDuration(t *testing.T) {
	summary := RenderSummaryLine(taskgraph.RunReport{Goal: "clean"})
	require.Equal(t, "Summary: goal=clean total.tasks=0 succeeded=0 skipped=0 failed=0 duration_human=0s duration_ms=0", summary)
}

func TestResultTableRendersRowsWithoutColor(t *testing.T) {
	buffer := &bytes.Buffer{}
	NewResultTable(false).Render(buffer, sampleReport())

	lines := strings.Split(strings.TrimRight(buffer.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	require.True(t, strings.HasPrefix(lines[0], "TASK"))
	require.NotContains(t, buffer.String(), "\x1b[")
	require.Contains(t, lines[2], "compile")
	require.Contains(t, lines[4], "publish-github (triggered)")
	require.Contains(t, lines[4], "precondition not met")
	require.Contains(t, lines[5], "dotnet command exited with code 1")
}

func TestResultTableColorsOutcomesWhenEnabled(t *testing.T) {
	buffer := &bytes.Buffer{}
	NewResultTable(true).Render(buffer, sampleReport())
	require.Contains(t, buffer.String(), "\x1b[")
}

func TestSummaryExecutorPrintsTableAndSummary(t *testing.T) {
	buffer := &bytes.Buffer{}
	executor := Resolve(fakeExecutor{report: sampleReport()}, SummaryOptions{Errors: buffer})

	_, runError := executor.Execute(context.Background(), "pack", buildcontext.ExecutionContext{})
	require.NoError(t, runError)
	require.Contains(t, buffer.String(), "TASK")
	require.Contains(t, buffer.String(), "Summary: goal=pack total.tasks=4")
}

func TestSummaryExecutorHonorsDisableSummary(t *testing.T) {
	buffer := &bytes.Buffer{}
	executor := Resolve(fakeExecutor{report: sampleReport()}, SummaryOptions{Errors: buffer, DisableSummary: true})

	_, runError := executor.Execute(context.Background(), "pack", buildcontext.ExecutionContext{})
	require.NoError(t, runError)
	require.Empty(t, buffer.String())
}

func TestSummaryExecutorWritesReportEvenOnFailure(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "reports", "run.yaml")
	runFailure := errors.New("task \"publish-nuget\" failed")
	executor := Resolve(fakeExecutor{report: sampleReport(), err: runFailure}, SummaryOptions{Output: &bytes.Buffer{}, ReportPath: reportPath})

	_, runError := executor.Execute(context.Background(), "pack", buildcontext.ExecutionContext{})
	require.ErrorIs(t, runError, runFailure)

	contents, readError := os.ReadFile(reportPath)
	require.NoError(t, readError)

	var document ReportDocument
	require.NoError(t, yaml.Unmarshal(contents, &document))
	require.Equal(t, "pack", document.Goal)
	require.False(t, document.Succeeded)
	require.Equal(t, int64(1500), document.DurationMs)
	require.Equal(t, "2024-03-01T10:00:00Z", document.StartedAt)
	require.Len(t, document.Tasks, 4)
	require.Equal(t, TaskDocument{
		Name:        "publish-nuget",
		Outcome:     "failed",
		Error:       "dotnet command exited with code 1",
		Triggered:   true,
		TriggeredBy: "pack",
	}, document.Tasks[3])
	require.NotContains(t, string(contents), "skip_reason: \"\"")
}

func TestSummaryExecutorReportsUnwritableReportPath(t *testing.T) {
	blockingFile := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blockingFile, []byte("x"), 0o644))

	executor := Resolve(fakeExecutor{report: sampleReport()}, SummaryOptions{Output: &bytes.Buffer{}, ReportPath: filepath.Join(blockingFile, "run.yaml")})
	_, runError := executor.Execute(context.Background(), "pack", buildcontext.ExecutionContext{})
	require.Error(t, runError)
}
