package taskgraph

import (
	"errors"
	"fmt"
	"strings"
)

const (
	cyclePathSeparatorConstant = " -> "
)

// ErrTaskNameMissing indicates a task registered without a name.
var ErrTaskNameMissing = errors.New("task name required")

// DuplicateTaskError indicates a second registration under an existing name.
type DuplicateTaskError struct {
	TaskName string
}

func (duplicateError DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %q already registered", duplicateError.TaskName)
}

// UnknownTaskError indicates a goal or reference naming an unregistered task.
type UnknownTaskError struct {
	TaskName     string
	ReferencedBy string
}

func (unknownError UnknownTaskError) Error() string {
	if len(unknownError.ReferencedBy) == 0 {
		return fmt.Sprintf("unknown task %q", unknownError.TaskName)
	}
	return fmt.Sprintf("unknown task %q referenced by %q", unknownError.TaskName, unknownError.ReferencedBy)
}

// CycleDetectedError lists the tasks forming a cycle; the first and last entries coincide.
// Each arrow reads "waits for".
type CycleDetectedError struct {
	Path []string
}

func (cycleError CycleDetectedError) Error() string {
	return "dependency cycle detected: " + strings.Join(cycleError.Path, cyclePathSeparatorConstant)
}

// ConfigurationError indicates a task requirement that the execution context does not satisfy.
type ConfigurationError struct {
	TaskName    string
	Requirement string
}

func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf("task %q requirement not met: %s", configurationError.TaskName, configurationError.Requirement)
}

// MissingArtifactError indicates a succeeded task whose declared outputs do not exist.
type MissingArtifactError struct {
	TaskName string
	Patterns []string
}

func (missingError MissingArtifactError) Error() string {
	return fmt.Sprintf("task %q produced no files matching %s", missingError.TaskName, strings.Join(missingError.Patterns, ", "))
}

// TaskExecutionError halts a run. Results holds the outcomes recorded up to and including the failure.
type TaskExecutionError struct {
	TaskName string
	Cause    error
	Results  []RunResult
}

func (executionError TaskExecutionError) Error() string {
	if executionError.Cause == nil {
		return fmt.Sprintf("task %q failed", executionError.TaskName)
	}
	return fmt.Sprintf("task %q failed: %v", executionError.TaskName, executionError.Cause)
}

func (executionError TaskExecutionError) Unwrap() error {
	return executionError.Cause
}
