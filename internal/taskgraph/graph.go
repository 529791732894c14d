package taskgraph

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Graph holds registered tasks and runs them.
type Graph struct {
	tasks             map[string]Task
	registrationOrder []string
	registrationIndex map[string]int
	logger            *zap.Logger
	clock             func() time.Time
	runIDGenerator    func() string
	verifyProduces    bool
}

// Option customizes a Graph.
type Option func(*Graph)

// WithLogger sets the logger receiving task lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(graph *Graph) {
		if logger != nil {
			graph.logger = logger
		}
	}
}

// WithClock replaces time.Now for durations and report timestamps.
func WithClock(clock func() time.Time) Option {
	return func(graph *Graph) {
		if clock != nil {
			graph.clock = clock
		}
	}
}

// WithRunIDGenerator replaces the random run identifier source.
func WithRunIDGenerator(generator func() string) Option {
	return func(graph *Graph) {
		if generator != nil {
			graph.runIDGenerator = generator
		}
	}
}

// WithProducesVerification enables MissingArtifactError checks after each succeeded task.
func WithProducesVerification(enabled bool) Option {
	return func(graph *Graph) {
		graph.verifyProduces = enabled
	}
}

// NewGraph returns an empty Graph.
func NewGraph(options ...Option) *Graph {
	graph := &Graph{
		tasks:             make(map[string]Task),
		registrationIndex: make(map[string]int),
		logger:            zap.NewNop(),
		clock:             time.Now,
		runIDGenerator:    uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(graph)
		}
	}
	return graph
}

// Register adds task to the graph. The graph keeps its own copy.
func (graph *Graph) Register(task Task) error {
	name := strings.TrimSpace(task.Name)
	if len(name) == 0 {
		return ErrTaskNameMissing
	}
	if _, exists := graph.tasks[name]; exists {
		return DuplicateTaskError{TaskName: name}
	}

	stored := task.clone()
	stored.Name = name
	stored.Dependencies = normalizeNames(stored.Dependencies)
	stored.Before = normalizeNames(stored.Before)
	stored.After = normalizeNames(stored.After)
	stored.Triggers = normalizeNames(stored.Triggers)

	graph.tasks[name] = stored
	graph.registrationIndex[name] = len(graph.registrationOrder)
	graph.registrationOrder = append(graph.registrationOrder, name)
	graph.logger.Debug("task registered",
		zap.String("task", name),
		zap.Strings("dependencies", stored.Dependencies),
		zap.Strings("triggers", stored.Triggers),
	)
	return nil
}

// Task returns a copy of the named task.
func (graph *Graph) Task(name string) (Task, bool) {
	task, exists := graph.tasks[strings.TrimSpace(name)]
	if !exists {
		return Task{}, false
	}
	return task.clone(), true
}

// Tasks returns copies of all tasks in registration order.
func (graph *Graph) Tasks() []Task {
	tasks := make([]Task, 0, len(graph.registrationOrder))
	for _, name := range graph.registrationOrder {
		tasks = append(tasks, graph.tasks[name].clone())
	}
	return tasks
}

func normalizeNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if len(trimmed) == 0 {
			continue
		}
		if _, duplicate := seen[trimmed]; duplicate {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
