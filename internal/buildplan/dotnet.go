package buildplan

import (
	"context"
	"errors"
	"strings"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
	"github.com/tyemirov/buildgraph/internal/execshell"
)

const (
	dotnetCleanSubcommandConstant     = "clean"
	dotnetRestoreSubcommandConstant   = "restore"
	dotnetBuildSubcommandConstant     = "build"
	dotnetPackSubcommandConstant      = "pack"
	dotnetNuGetSubcommandConstant     = "nuget"
	dotnetPushSubcommandConstant      = "push"
	configurationFlagConstant         = "--configuration"
	outputFlagConstant                = "--output"
	noRestoreFlagConstant             = "--no-restore"
	noBuildFlagConstant               = "--no-build"
	sourceFlagConstant                = "--source"
	apiKeyFlagConstant                = "--api-key"
	skipDuplicateFlagConstant         = "--skip-duplicate"
	propertyPrefixConstant            = "/property:"
	versionPropertyConstant           = "Version"
	assemblyVersionPropertyConstant   = "AssemblyVersion"
	fileVersionPropertyConstant       = "FileVersion"
	informationalPropertyConstant     = "InformationalVersion"
	copyrightPropertyConstant         = "Copyright"
	dotnetExecutorMissingMessage      = "dotnet executor not configured"
	propertyKeyValueSeparatorConstant = "="
)

// ErrDotNetExecutorNotConfigured indicates a DotNetCLI without an executor.
var ErrDotNetExecutorNotConfigured = errors.New(dotnetExecutorMissingMessage)

// DotNetExecutor runs dotnet commands.
type DotNetExecutor interface {
	ExecuteDotNet(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// DotNetCLI builds dotnet invocations for the build targets.
type DotNetCLI struct {
	executor         DotNetExecutor
	workingDirectory string
}

// NewDotNetCLI wraps executor; commands run in workingDirectory.
func NewDotNetCLI(executor DotNetExecutor, workingDirectory string) (*DotNetCLI, error) {
	if executor == nil {
		return nil, ErrDotNetExecutorNotConfigured
	}
	return &DotNetCLI{executor: executor, workingDirectory: workingDirectory}, nil
}

// BuildSettings configures `dotnet build` and `dotnet pack`.
type BuildSettings struct {
	Project         string
	Configuration   buildcontext.Configuration
	Version         buildcontext.VersionInfo
	Copyright       string
	OutputDirectory string
}

// PushSettings configures `dotnet nuget push`.
type PushSettings struct {
	PackagePath string
	Source      string
	APIKey      string
}

// Clean runs `dotnet clean <project>`.
func (cli *DotNetCLI) Clean(executionContext context.Context, project string) error {
	return cli.run(executionContext, nil, dotnetCleanSubcommandConstant, project)
}

// Restore runs `dotnet restore <project>`.
func (cli *DotNetCLI) Restore(executionContext context.Context, project string) error {
	return cli.run(executionContext, nil, dotnetRestoreSubcommandConstant, project)
}

// Build compiles the project with version properties and without restoring.
func (cli *DotNetCLI) Build(executionContext context.Context, settings BuildSettings) error {
	arguments := []string{dotnetBuildSubcommandConstant, settings.Project, configurationFlagConstant, string(settings.Configuration)}
	arguments = append(arguments, versionProperties(settings.Version)...)
	arguments = append(arguments, noRestoreFlagConstant)
	return cli.run(executionContext, nil, arguments...)
}

// Pack packages the already built project into settings.OutputDirectory.
func (cli *DotNetCLI) Pack(executionContext context.Context, settings BuildSettings) error {
	arguments := []string{
		dotnetPackSubcommandConstant, settings.Project,
		configurationFlagConstant, string(settings.Configuration),
		outputFlagConstant, settings.OutputDirectory,
		noBuildFlagConstant, noRestoreFlagConstant,
	}
	if copyright := strings.TrimSpace(settings.Copyright); len(copyright) > 0 {
		arguments = append(arguments, property(copyrightPropertyConstant, copyright))
	}
	arguments = append(arguments, versionProperties(settings.Version)...)
	return cli.run(executionContext, nil, arguments...)
}

// Push uploads one package, ignoring versions the feed already has.
func (cli *DotNetCLI) Push(executionContext context.Context, settings PushSettings) error {
	arguments := []string{
		dotnetNuGetSubcommandConstant, dotnetPushSubcommandConstant, settings.PackagePath,
		sourceFlagConstant, settings.Source,
		apiKeyFlagConstant, settings.APIKey,
		skipDuplicateFlagConstant,
	}
	return cli.run(executionContext, []string{settings.APIKey}, arguments...)
}

func (cli *DotNetCLI) run(executionContext context.Context, sensitiveValues []string, arguments ...string) error {
	_, executionError := cli.executor.ExecuteDotNet(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: cli.workingDirectory,
		SensitiveValues:  sensitiveValues,
	})
	return executionError
}

func versionProperties(version buildcontext.VersionInfo) []string {
	properties := make([]string, 0, 4)
	for _, entry := range [][2]string{
		{versionPropertyConstant, version.NuGetVersionV2},
		{assemblyVersionPropertyConstant, version.AssemblySemVer},
		{informationalPropertyConstant, version.InformationalVersion},
		{fileVersionPropertyConstant, version.AssemblySemFileVer},
	} {
		if len(strings.TrimSpace(entry[1])) == 0 {
			continue
		}
		properties = append(properties, property(entry[0], entry[1]))
	}
	return properties
}

// msbuildValueEscaper keeps MSBuild from splitting property values on its list separators.
var msbuildValueEscaper = strings.NewReplacer("%", "%25", ";", "%3B", ",", "%2C")

func property(name string, value string) string {
	return propertyPrefixConstant + name + propertyKeyValueSeparatorConstant + msbuildValueEscaper.Replace(value)
}
