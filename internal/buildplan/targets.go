// Package buildplan declares the build targets: clean, restore, compile, pack and the two publish targets.
package buildplan

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/buildgraph/internal/artifacts"
	"github.com/tyemirov/buildgraph/internal/buildcontext"
	"github.com/tyemirov/buildgraph/internal/taskgraph"
)

// Target names.
const (
	TargetClean         = "clean"
	TargetRestore       = "restore"
	TargetCompile       = "compile"
	TargetPack          = "pack"
	TargetPublishGitHub = "publish-github"
	TargetPublishNuGet  = "publish-nuget"

	// DefaultGoal runs when no goal is given.
	DefaultGoal = TargetPack

	requirementReleaseConfigurationConstant = "configuration is Release"
	requirementProjectConstant              = "project is set"
	requirementGitHubTokenConstant          = "GitHub token is set"
	requirementGitHubOwnerConstant          = "GitHub repository owner is known"
	requirementNuGetFeedConstant            = "nuget_feed is set"
	requirementNuGetAPIKeyConstant          = "nuget_api_key is set"
	requirementArtifactsTypeConstant        = "artifacts_type is set"
	preconditionDevelopOrPullRequest        = "on a develop branch or building a pull request"
	preconditionMainOrMaster                = "on the main or master branch"
	noArtifactsMessageConstant              = "no artifacts matched %s in %s"
)

// Toolchain is the subset of DotNetCLI the targets use.
type Toolchain interface {
	Clean(executionContext context.Context, project string) error
	Restore(executionContext context.Context, project string) error
	Build(executionContext context.Context, settings BuildSettings) error
	Pack(executionContext context.Context, settings BuildSettings) error
	Push(executionContext context.Context, settings PushSettings) error
}

// Targets builds task definitions bound to a toolchain.
type Targets struct {
	toolchain Toolchain
	logger    *zap.Logger
}

// NewTargets returns the build targets backed by toolchain.
func NewTargets(toolchain Toolchain, logger *zap.Logger) *Targets {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Targets{toolchain: toolchain, logger: logger}
}

// Register adds every target to graph. executionContext supplies the declared pack outputs.
func (targets *Targets) Register(graph *taskgraph.Graph, executionContext buildcontext.ExecutionContext) error {
	for _, task := range targets.Tasks(executionContext) {
		if registrationError := graph.Register(task); registrationError != nil {
			return fmt.Errorf("register %s: %w", task.Name, registrationError)
		}
	}
	return nil
}

// Tasks returns the target definitions in registration order.
func (targets *Targets) Tasks(executionContext buildcontext.ExecutionContext) []taskgraph.Task {
	releaseOnly := taskgraph.Condition{Description: requirementReleaseConfigurationConstant, Check: buildcontext.ExecutionContext.IsRelease}
	projectSet := taskgraph.Condition{Description: requirementProjectConstant, Check: func(executionContext buildcontext.ExecutionContext) bool {
		return len(strings.TrimSpace(executionContext.Parameters().ProjectPath)) > 0
	}}
	artifactsTypeSet := taskgraph.Condition{Description: requirementArtifactsTypeConstant, Check: func(executionContext buildcontext.ExecutionContext) bool {
		return len(strings.TrimSpace(executionContext.Parameters().ArtifactsType)) > 0
	}}

	var packOutputs []string
	if artifactsType := strings.TrimSpace(executionContext.Parameters().ArtifactsType); len(artifactsType) > 0 {
		packOutputs = []string{filepath.Join(executionContext.ArtifactsDirectory(), artifactsType)}
	}

	return []taskgraph.Task{
		{
			Name:         TargetClean,
			Description:  "Cleaning project.",
			Before:       []string{TargetRestore},
			Requirements: []taskgraph.Condition{projectSet},
			Body:         targets.clean,
		},
		{
			Name:         TargetRestore,
			Description:  "Restoring project dependencies.",
			Dependencies: []string{TargetClean},
			Requirements: []taskgraph.Condition{projectSet},
			Body:         targets.restore,
		},
		{
			Name:         TargetCompile,
			Description:  "Building project with the version.",
			Dependencies: []string{TargetRestore},
			Requirements: []taskgraph.Condition{projectSet},
			Body:         targets.compile,
		},
		{
			Name:         TargetPack,
			Description:  "Packing project with the version.",
			Dependencies: []string{TargetCompile},
			Requirements: []taskgraph.Condition{releaseOnly, projectSet},
			Produces:     packOutputs,
			Triggers:     []string{TargetPublishGitHub, TargetPublishNuGet},
			Body:         targets.pack,
		},
		{
			Name:        TargetPublishGitHub,
			Description: "Publishing to GitHub Packages for development only.",
			Preconditions: []taskgraph.Condition{{
				Description: preconditionDevelopOrPullRequest,
				Check: func(executionContext buildcontext.ExecutionContext) bool {
					return executionContext.IsOnDevelopBranch() || executionContext.IsPullRequest()
				},
			}},
			Requirements: []taskgraph.Condition{
				releaseOnly,
				artifactsTypeSet,
				{Description: requirementGitHubTokenConstant, Check: func(executionContext buildcontext.ExecutionContext) bool {
					return len(strings.TrimSpace(executionContext.Environment().Token)) > 0
				}},
				{Description: requirementGitHubOwnerConstant, Check: func(executionContext buildcontext.ExecutionContext) bool {
					return len(executionContext.GitHubPackagesFeed()) > 0
				}},
			},
			Body: targets.publishGitHub,
		},
		{
			Name:        TargetPublishNuGet,
			Description: "Publishing to NuGet with the version.",
			Preconditions: []taskgraph.Condition{{
				Description: preconditionMainOrMaster,
				Check:       buildcontext.ExecutionContext.IsOnMainOrMasterBranch,
			}},
			Requirements: []taskgraph.Condition{
				releaseOnly,
				artifactsTypeSet,
				{Description: requirementNuGetFeedConstant, Check: func(executionContext buildcontext.ExecutionContext) bool {
					return len(strings.TrimSpace(executionContext.Parameters().NuGetFeed)) > 0
				}},
				{Description: requirementNuGetAPIKeyConstant, Check: func(executionContext buildcontext.ExecutionContext) bool {
					return len(strings.TrimSpace(executionContext.Parameters().NuGetAPIKey)) > 0
				}},
			},
			Body: targets.publishNuGet,
		},
	}
}

func (targets *Targets) clean(ctx context.Context, executionContext buildcontext.ExecutionContext) error {
	if cleanError := targets.toolchain.Clean(ctx, executionContext.Parameters().ProjectPath); cleanError != nil {
		return cleanError
	}
	targets.logger.Debug("cleaning artifacts directory", zap.String("path", executionContext.ArtifactsDirectory()))
	return artifacts.EnsureCleanDirectory(executionContext.ArtifactsDirectory())
}

func (targets *Targets) restore(ctx context.Context, executionContext buildcontext.ExecutionContext) error {
	return targets.toolchain.Restore(ctx, executionContext.Parameters().ProjectPath)
}

func (targets *Targets) compile(ctx context.Context, executionContext buildcontext.ExecutionContext) error {
	return targets.toolchain.Build(ctx, buildSettings(executionContext))
}

func (targets *Targets) pack(ctx context.Context, executionContext buildcontext.ExecutionContext) error {
	settings := buildSettings(executionContext)
	settings.Copyright = executionContext.Parameters().Copyright
	settings.OutputDirectory = executionContext.ArtifactsDirectory()
	return targets.toolchain.Pack(ctx, settings)
}

func (targets *Targets) publishGitHub(ctx context.Context, executionContext buildcontext.ExecutionContext) error {
	return targets.pushAll(ctx, executionContext, executionContext.GitHubPackagesFeed(), executionContext.Environment().Token)
}

func (targets *Targets) publishNuGet(ctx context.Context, executionContext buildcontext.ExecutionContext) error {
	parameters := executionContext.Parameters()
	return targets.pushAll(ctx, executionContext, parameters.NuGetFeed, parameters.NuGetAPIKey)
}

func (targets *Targets) pushAll(ctx context.Context, executionContext buildcontext.ExecutionContext, source string, apiKey string) error {
	parameters := executionContext.Parameters()
	packagePaths, globError := artifacts.Glob(executionContext.ArtifactsDirectory(), parameters.ArtifactsType, parameters.ExcludedArtifactsType)
	if globError != nil {
		return globError
	}
	if len(packagePaths) == 0 {
		targets.logger.Warn(fmt.Sprintf(noArtifactsMessageConstant, parameters.ArtifactsType, executionContext.ArtifactsDirectory()))
		return nil
	}
	for _, packagePath := range packagePaths {
		targets.logger.Info("pushing package", zap.String("package", filepath.Base(packagePath)), zap.String("source", source))
		if pushError := targets.toolchain.Push(ctx, PushSettings{PackagePath: packagePath, Source: source, APIKey: apiKey}); pushError != nil {
			return fmt.Errorf("push %s: %w", filepath.Base(packagePath), pushError)
		}
	}
	return nil
}

func buildSettings(executionContext buildcontext.ExecutionContext) BuildSettings {
	return BuildSettings{
		Project:       executionContext.Parameters().ProjectPath,
		Configuration: executionContext.Configuration(),
		Version:       executionContext.Version(),
	}
}
