// Package taskrunner hosts the shared plumbing between the CLI and the task graph.
// BuildDependencies resolves the shell, git and dotnet collaborators once, and Resolve wraps
// any Executor (normally *taskgraph.Graph) so every run ends with a task table, a one-line
// summary and, when requested, a YAML report on disk.
package taskrunner
