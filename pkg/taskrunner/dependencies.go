package taskrunner

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/buildgraph/internal/buildplan"
	"github.com/tyemirov/buildgraph/internal/execshell"
	"github.com/tyemirov/buildgraph/internal/gitrepo"
	"github.com/tyemirov/buildgraph/internal/utils"
)

// DependenciesConfig captures providers required to build run dependencies.
type DependenciesConfig struct {
	LoggerProvider               func() *zap.Logger
	HumanReadableLoggingProvider func() bool
	CommandRunner                execshell.CommandRunner
}

// DependenciesOptions allows per-command overrides when resolving dependencies.
type DependenciesOptions struct {
	Command          *cobra.Command
	Output           io.Writer
	Errors           io.Writer
	WorkingDirectory string
}

// DependenciesResult exposes the resolved collaborators. Git output is captured silently while
// toolchain output streams to the error writer.
type DependenciesResult struct {
	Logger            *zap.Logger
	RepositoryManager *gitrepo.RepositoryManager
	DotNet            *buildplan.DotNetCLI
	Output            io.Writer
	Errors            io.Writer
}

// BuildDependencies resolves the shell executor, git repository manager and dotnet CLI for a run.
func BuildDependencies(config DependenciesConfig, options DependenciesOptions) (DependenciesResult, error) {
	logger := resolveLogger(config.LoggerProvider)
	humanReadable := false
	if config.HumanReadableLoggingProvider != nil {
		humanReadable = config.HumanReadableLoggingProvider()
	}

	outputWriter := resolveWriter(options.Output, options.Command, true)
	errorWriter := resolveWriter(options.Errors, options.Command, false)

	gitRunner := config.CommandRunner
	toolchainRunner := config.CommandRunner
	if config.CommandRunner == nil {
		gitRunner = execshell.NewOSCommandRunner()
		toolchainRunner = execshell.NewOSCommandRunner().WithOutput(utils.NewFlushingWriter(errorWriter))
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, gitRunner, humanReadable)
	if executorError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.shell_executor: %w", executorError)
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(shellExecutor)
	if managerError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.git_manager: %w", managerError)
	}

	toolchainExecutor, toolchainExecutorError := execshell.NewShellExecutor(logger, toolchainRunner, humanReadable)
	if toolchainExecutorError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.toolchain_executor: %w", toolchainExecutorError)
	}

	dotnet, dotnetError := buildplan.NewDotNetCLI(toolchainExecutor, options.WorkingDirectory)
	if dotnetError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.dotnet: %w", dotnetError)
	}

	return DependenciesResult{
		Logger:            logger,
		RepositoryManager: repositoryManager,
		DotNet:            dotnet,
		Output:            outputWriter,
		Errors:            errorWriter,
	}, nil
}

func resolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWriter(provided io.Writer, command *cobra.Command, useStdout bool) io.Writer {
	if provided != nil {
		return provided
	}
	if command != nil {
		if useStdout {
			if writer := command.OutOrStdout(); writer != nil && writer != io.Discard {
				return writer
			}
		} else {
			if writer := command.ErrOrStderr(); writer != nil && writer != io.Discard {
				return writer
			}
		}
	}
	if useStdout {
		return os.Stdout
	}
	return os.Stderr
}
