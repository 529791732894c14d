package execshell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// OSCommandRunner executes commands through os/exec, optionally streaming output to a writer.
type OSCommandRunner struct {
	outputWriter io.Writer
}

// NewOSCommandRunner constructs a runner that only captures output.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// WithOutput returns a runner that also streams standard output and standard error to writer.
func (runner *OSCommandRunner) WithOutput(writer io.Writer) *OSCommandRunner {
	return &OSCommandRunner{outputWriter: writer}
}

// Run executes the command and reports non-zero exits through ExecutionResult rather than an error.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory

	if len(command.Details.EnvironmentVariables) > 0 {
		environment := os.Environ()
		for key, value := range command.Details.EnvironmentVariables {
			environment = append(environment, key+"="+value)
		}
		process.Env = environment
	}

	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	if runner.outputWriter != nil {
		process.Stdout = io.MultiWriter(&standardOutput, runner.outputWriter)
		process.Stderr = io.MultiWriter(&standardError, runner.outputWriter)
	} else {
		process.Stdout = &standardOutput
		process.Stderr = &standardError
	}

	runError := process.Run()
	result := ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
	}

	if runError == nil {
		return result, nil
	}

	if contextError := executionContext.Err(); contextError != nil {
		return result, contextError
	}

	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}

	return result, runError
}
