package utils

import (
	"context"
	"strings"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	logLevelContextKeyConstant              = commandContextKey("logLevel")
	runOptionsContextKeyConstant            = commandContextKey("runOptions")
)

type commandContextKey string

// RunOptions captures run-level modifiers derived from CLI flags.
type RunOptions struct {
	Goal           string
	PlanOnly       bool
	VerifyProduces bool
	ReportPath     string
}

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// WithLogLevel attaches the effective log level to the provided context.
func (accessor CommandContextAccessor) WithLogLevel(parentContext context.Context, logLevel string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	trimmedLogLevel := strings.TrimSpace(logLevel)
	if len(trimmedLogLevel) == 0 {
		return parentContext
	}
	return context.WithValue(parentContext, logLevelContextKeyConstant, trimmedLogLevel)
}

// WithRunOptions attaches normalized run options to the provided context.
func (accessor CommandContextAccessor) WithRunOptions(parentContext context.Context, options RunOptions) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	normalized := RunOptions{
		Goal:           strings.TrimSpace(options.Goal),
		PlanOnly:       options.PlanOnly,
		VerifyProduces: options.VerifyProduces,
		ReportPath:     strings.TrimSpace(options.ReportPath),
	}
	return context.WithValue(parentContext, runOptionsContextKeyConstant, normalized)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	if !configurationFilePathAvailable {
		return "", false
	}
	return configurationFilePath, true
}

// LogLevel extracts the effective log level from the provided context.
func (accessor CommandContextAccessor) LogLevel(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, valueAvailable := executionContext.Value(logLevelContextKeyConstant).(string)
	if !valueAvailable {
		return "", false
	}
	return value, true
}

// RunOptions extracts run options from the provided context.
func (accessor CommandContextAccessor) RunOptions(executionContext context.Context) (RunOptions, bool) {
	if executionContext == nil {
		return RunOptions{}, false
	}
	value, valueAvailable := executionContext.Value(runOptionsContextKeyConstant).(RunOptions)
	if !valueAvailable {
		return RunOptions{}, false
	}
	return value, true
}
