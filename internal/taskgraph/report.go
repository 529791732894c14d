package taskgraph

import (
	"time"
)

// RunResult records what happened to one task.
type RunResult struct {
	TaskName    string
	Outcome     Outcome
	SkipReason  string
	Err         error
	Duration    time.Duration
	Triggered   bool
	TriggeredBy string
}

// RunReport aggregates the results of one Execute call in execution order.
type RunReport struct {
	RunID     string
	Goal      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Results   []RunResult
}

// Succeeded reports whether no task failed.
func (report RunReport) Succeeded() bool {
	for _, result := range report.Results {
		if result.Outcome == OutcomeFailed {
			return false
		}
	}
	return true
}

// Count returns how many tasks ended with outcome.
func (report RunReport) Count(outcome Outcome) int {
	count := 0
	for _, result := range report.Results {
		if result.Outcome == outcome {
			count++
		}
	}
	return count
}

// Result returns the result recorded for taskName.
func (report RunReport) Result(taskName string) (RunResult, bool) {
	for _, result := range report.Results {
		if result.TaskName == taskName {
			return result, true
		}
	}
	return RunResult{}, false
}

// ExecutedTaskNames lists the tasks that reached Succeeded or Failed, in order.
func (report RunReport) ExecutedTaskNames() []string {
	names := make([]string, 0, len(report.Results))
	for _, result := range report.Results {
		if result.Outcome == OutcomeSkipped {
			continue
		}
		names = append(names, result.TaskName)
	}
	return names
}
