package taskrunner

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/buildgraph/internal/execshell"
)

type recordingCommandRunner struct {
	commands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.commands = append(runner.commands, command)
	return execshell.ExecutionResult{StandardOutput: "develop\n"}, nil
}

func TestBuildDependenciesWiresSharedRunner(t *testing.T) {
	runner := &recordingCommandRunner{}
	outputBuffer := &bytes.Buffer{}
	errorBuffer := &bytes.Buffer{}

	result, buildError := BuildDependencies(
		DependenciesConfig{
			LoggerProvider: func() *zap.Logger { return zap.NewNop() },
			CommandRunner:  runner,
		},
		DependenciesOptions{Output: outputBuffer, Errors: errorBuffer, WorkingDirectory: "/src"},
	)
	require.NoError(t, buildError)
	require.Same(t, outputBuffer, result.Output)
	require.Same(t, errorBuffer, result.Errors)

	branch, branchError := result.RepositoryManager.GetCurrentBranch(context.Background(), "/src")
	require.NoError(t, branchError)
	require.Equal(t, "develop", branch)

	require.NoError(t, result.DotNet.Restore(context.Background(), "Hello.csproj"))
	require.Len(t, runner.commands, 2)
	require.Equal(t, execshell.CommandGit, runner.commands[0].Name)
	require.Equal(t, execshell.CommandDotNet, runner.commands[1].Name)
	require.Equal(t, "/src", runner.commands[1].Details.WorkingDirectory)
}

func TestBuildDependenciesFallsBackToCommandWriters(t *testing.T) {
	command := &cobra.Command{}
	outputBuffer := &bytes.Buffer{}
	errorBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(errorBuffer)

	result, buildError := BuildDependencies(DependenciesConfig{CommandRunner: &recordingCommandRunner{}}, DependenciesOptions{Command: command})
	require.NoError(t, buildError)
	require.Same(t, outputBuffer, result.Output)
	require.Same(t, errorBuffer, result.Errors)
	require.NotNil(t, result.Logger)
}
