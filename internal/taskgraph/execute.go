package taskgraph

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/buildgraph/internal/artifacts"
	"github.com/tyemirov/buildgraph/internal/buildcontext"
)

const (
	preconditionFailedReasonTemplate = "precondition not met: "
	unnamedConditionDescription      = "unnamed condition"
)

type runState struct {
	graph            *Graph
	executionContext buildcontext.ExecutionContext
	report           RunReport
	states           map[string]State
}

// Execute runs goal and its dependencies in resolved order, then the triggers of succeeded tasks once the goal succeeded.
// The returned report is populated even when an error is returned.
func (graph *Graph) Execute(ctx context.Context, goal string, executionContext buildcontext.ExecutionContext) (RunReport, error) {
	run := &runState{
		graph:            graph,
		executionContext: executionContext,
		report: RunReport{
			RunID:     graph.runIDGenerator(),
			Goal:      strings.TrimSpace(goal),
			StartTime: graph.clock(),
		},
		states: make(map[string]State),
	}

	plan, planError := graph.Plan(goal)
	if planError != nil {
		graph.logger.Error("run planning failed", zap.String("run_id", run.report.RunID), zap.String("goal", run.report.Goal), zap.Error(planError))
		return run.finish(), planError
	}
	if requirementError := graph.checkRequirements(plan, executionContext); requirementError != nil {
		graph.logger.Error("run requirements not met", zap.String("run_id", run.report.RunID), zap.String("goal", run.report.Goal), zap.Error(requirementError))
		return run.finish(), requirementError
	}
	for _, name := range plan.Order {
		run.states[name] = StatePending
	}

	graph.logger.Info("run started",
		zap.String("run_id", run.report.RunID),
		zap.String("goal", plan.Goal),
		zap.Strings("order", plan.Order),
	)

	for _, name := range plan.Order {
		if executionError := run.execute(ctx, name, false, ""); executionError != nil {
			return run.finish(), executionError
		}
	}

	if run.states[plan.Goal] != StateSucceeded {
		graph.logger.Info("goal did not succeed; triggers suppressed", zap.String("goal", plan.Goal), zap.String("state", string(run.states[plan.Goal])))
		return run.finish(), nil
	}

	if triggerError := run.fireTriggers(ctx, plan.Order); triggerError != nil {
		return run.finish(), triggerError
	}

	report := run.finish()
	graph.logger.Info("run completed",
		zap.String("run_id", report.RunID),
		zap.String("goal", report.Goal),
		zap.Int("succeeded", report.Count(OutcomeSucceeded)),
		zap.Int("skipped", report.Count(OutcomeSkipped)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (run *runState) fireTriggers(ctx context.Context, completedOrder []string) error {
	queue := make([]TriggerEdge, 0)
	for _, name := range completedOrder {
		queue = run.enqueueTriggers(queue, name)
	}

	for len(queue) > 0 {
		edge := queue[0]
		queue = queue[1:]
		if run.states[edge.Target].Terminal() {
			continue
		}

		order, resolveError := run.graph.Resolve(edge.Target)
		if resolveError != nil {
			return resolveError
		}
		for _, name := range order {
			if run.states[name].Terminal() {
				continue
			}
			triggeredBy := edge.Target
			if name == edge.Target {
				triggeredBy = edge.Source
			}
			run.graph.logger.Info("task triggered", zap.String("task", name), zap.String("triggered_by", triggeredBy))
			if executionError := run.execute(ctx, name, true, triggeredBy); executionError != nil {
				return executionError
			}
			queue = run.enqueueTriggers(queue, name)
		}
	}
	return nil
}

func (run *runState) enqueueTriggers(queue []TriggerEdge, source string) []TriggerEdge {
	if run.states[source] != StateSucceeded {
		return queue
	}
	for _, target := range run.graph.tasks[source].Triggers {
		queue = append(queue, TriggerEdge{Source: source, Target: target})
	}
	return queue
}

func (run *runState) execute(ctx context.Context, name string, triggered bool, triggeredBy string) error {
	task := run.graph.tasks[name]
	logger := run.graph.logger.With(zap.String("task", name))
	result := RunResult{TaskName: name, Triggered: triggered, TriggeredBy: triggeredBy}

	if contextError := ctx.Err(); contextError != nil {
		logger.Warn("run cancelled before task started", zap.Error(contextError))
		return run.halt(name, contextError)
	}

	if unmet, met := firstFailing(task.Preconditions, run.executionContext); !met {
		result.Outcome = OutcomeSkipped
		result.SkipReason = preconditionFailedReasonTemplate + unmet
		run.states[name] = StateSkipped
		run.report.Results = append(run.report.Results, result)
		logger.Info("task skipped", zap.String("reason", result.SkipReason))
		return nil
	}

	run.states[name] = StateRunning
	startTime := run.graph.clock()
	logger.Info("task started", zap.String("description", task.Description))

	taskError := run.runBody(ctx, task)
	result.Duration = run.graph.clock().Sub(startTime)
	if taskError != nil {
		result.Outcome = OutcomeFailed
		result.Err = taskError
		run.states[name] = StateFailed
		run.report.Results = append(run.report.Results, result)
		logger.Error("task failed", zap.Duration("duration", result.Duration), zap.Error(taskError))
		return run.halt(name, taskError)
	}

	result.Outcome = OutcomeSucceeded
	run.states[name] = StateSucceeded
	run.report.Results = append(run.report.Results, result)
	logger.Info("task succeeded", zap.Duration("duration", result.Duration))
	return nil
}

// checkRequirements validates every task that may run for plan, triggered ones included.
// Tasks whose preconditions do not hold are skipped at run time and are not checked.
func (graph *Graph) checkRequirements(plan Plan, executionContext buildcontext.ExecutionContext) error {
	candidates := append([]string(nil), plan.Order...)
	for _, edge := range plan.Triggers {
		triggeredOrder, resolveError := graph.Resolve(edge.Target)
		if resolveError != nil {
			return resolveError
		}
		candidates = append(candidates, triggeredOrder...)
	}

	checked := make(taskSet, len(candidates))
	for _, name := range candidates {
		if checked.contains(name) {
			continue
		}
		checked[name] = struct{}{}
		task := graph.tasks[name]
		if _, met := firstFailing(task.Preconditions, executionContext); !met {
			continue
		}
		if unmet, met := firstFailing(task.Requirements, executionContext); !met {
			return ConfigurationError{TaskName: name, Requirement: unmet}
		}
	}
	return nil
}

func (run *runState) runBody(ctx context.Context, task Task) error {
	if task.Body != nil {
		if bodyError := task.Body(ctx, run.executionContext); bodyError != nil {
			return bodyError
		}
	}
	if contextError := ctx.Err(); contextError != nil {
		return contextError
	}
	if run.graph.verifyProduces {
		return run.verifyProduces(task)
	}
	return nil
}

func (run *runState) verifyProduces(task Task) error {
	if len(task.Produces) == 0 {
		return nil
	}
	rootDirectory := run.executionContext.Parameters().RootDirectory
	missing := make([]string, 0)
	for _, pattern := range task.Produces {
		matched, matchError := artifacts.Matches(rootDirectory, pattern)
		if matchError != nil {
			return matchError
		}
		if !matched {
			missing = append(missing, pattern)
		}
	}
	if len(missing) > 0 {
		return MissingArtifactError{TaskName: task.Name, Patterns: missing}
	}
	return nil
}

func (run *runState) halt(name string, cause error) error {
	return TaskExecutionError{
		TaskName: name,
		Cause:    cause,
		Results:  append([]RunResult(nil), run.report.Results...),
	}
}

func (run *runState) finish() RunReport {
	run.report.EndTime = run.graph.clock()
	run.report.Duration = run.report.EndTime.Sub(run.report.StartTime)
	if run.report.Duration < 0 {
		run.report.Duration = time.Duration(0)
	}
	return run.report
}

// firstFailing returns the description of the first condition that does not hold.
func firstFailing(conditions []Condition, executionContext buildcontext.ExecutionContext) (string, bool) {
	for _, condition := range conditions {
		if condition.Check == nil || condition.Check(executionContext) {
			continue
		}
		description := strings.TrimSpace(condition.Description)
		if len(description) == 0 {
			description = unnamedConditionDescription
		}
		return description, false
	}
	return "", true
}
