package taskgraph

import (
	"context"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
)

// Body performs the work of a task.
type Body func(ctx context.Context, executionContext buildcontext.ExecutionContext) error

// Condition is a named predicate over the execution context.
type Condition struct {
	Description string
	Check       func(executionContext buildcontext.ExecutionContext) bool
}

// Task is a unit of work in the graph.
type Task struct {
	Name         string
	Description  string
	Dependencies []string
	// Before and After order tasks that share a plan without pulling either one into it.
	Before        []string
	After         []string
	Preconditions []Condition
	Requirements  []Condition
	// Produces lists path globs the task promises to create. Relative globs resolve against the root directory.
	Produces []string
	Triggers []string
	Body     Body
}

func (task Task) clone() Task {
	cloned := task
	cloned.Dependencies = cloneStrings(task.Dependencies)
	cloned.Before = cloneStrings(task.Before)
	cloned.After = cloneStrings(task.After)
	cloned.Produces = cloneStrings(task.Produces)
	cloned.Triggers = cloneStrings(task.Triggers)
	cloned.Preconditions = append([]Condition(nil), task.Preconditions...)
	cloned.Requirements = append([]Condition(nil), task.Requirements...)
	return cloned
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}

// Outcome is the terminal state of a task in a run.
type Outcome string

// Task outcomes.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// State tracks a task through a run: Pending, then Skipped, or Running followed by Succeeded or Failed.
type State string

// Task states.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSkipped   State = State(OutcomeSkipped)
	StateSucceeded State = State(OutcomeSucceeded)
	StateFailed    State = State(OutcomeFailed)
)

// Terminal reports whether no further transition is possible.
func (state State) Terminal() bool {
	return state == StateSkipped || state == StateSucceeded || state == StateFailed
}
