package taskrunner

import (
	"fmt"
	"strings"
	"time"

	"github.com/tyemirov/buildgraph/internal/taskgraph"
)

// RenderSummaryLine returns the summary line printed after a run.
func RenderSummaryLine(report taskgraph.RunReport) string {
	parts := []string{
		fmt.Sprintf("Summary: goal=%s", report.Goal),
		fmt.Sprintf("total.tasks=%d", len(report.Results)),
	}
	for _, outcome := range []taskgraph.Outcome{taskgraph.OutcomeSucceeded, taskgraph.OutcomeSkipped, taskgraph.OutcomeFailed} {
		parts = append(parts, fmt.Sprintf("%s=%d", outcome, report.Count(outcome)))
	}

	durationHuman := report.Duration.Round(time.Millisecond).String()
	if report.Duration <= 0 {
		durationHuman = "0s"
	}
	parts = append(parts, fmt.Sprintf("duration_human=%s", durationHuman))
	parts = append(parts, fmt.Sprintf("duration_ms=%d", report.Duration.Milliseconds()))

	return strings.Join(parts, " ")
}
