package buildplan_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
	"github.com/tyemirov/buildgraph/internal/buildplan"
	"github.com/tyemirov/buildgraph/internal/taskgraph"
)

const (
	testProjectConstant     = "src/Hello/Hello.csproj"
	testArtifactsTypeConst  = "*.nupkg"
	testExcludedTypeConst   = ".symbols.nupkg"
	testGitHubTokenConstant = "ghs_secret"
	testNuGetKeyConstant    = "nuget_secret"
	testNuGetFeedConstant   = "https://api.nuget.org/v3/index.json"
)

type fakeToolchain struct {
	calls       []string
	pushes      []buildplan.PushSettings
	packed      []string
	packError   error
	lastBuild   buildplan.BuildSettings
	lastPackSet buildplan.BuildSettings
}

func (toolchain *fakeToolchain) Clean(_ context.Context, project string) error {
	toolchain.calls = append(toolchain.calls, "clean "+project)
	return nil
}

func (toolchain *fakeToolchain) Restore(_ context.Context, project string) error {
	toolchain.calls = append(toolchain.calls, "restore "+project)
	return nil
}

func (toolchain *fakeToolchain) Build(_ context.Context, settings buildplan.BuildSettings) error {
	toolchain.calls = append(toolchain.calls, "build "+settings.Project)
	toolchain.lastBuild = settings
	return nil
}

func (toolchain *fakeToolchain) Pack(_ context.Context, settings buildplan.BuildSettings) error {
	toolchain.calls = append(toolchain.calls, "pack "+settings.Project)
	toolchain.lastPackSet = settings
	if toolchain.packError != nil {
		return toolchain.packError
	}
	for _, name := range toolchain.packed {
		if writeError := os.WriteFile(filepath.Join(settings.OutputDirectory, name), []byte("package"), 0o644); writeError != nil {
			return writeError
		}
	}
	return nil
}

func (toolchain *fakeToolchain) Push(_ context.Context, settings buildplan.PushSettings) error {
	toolchain.calls = append(toolchain.calls, "push "+filepath.Base(settings.PackagePath))
	toolchain.pushes = append(toolchain.pushes, settings)
	return nil
}

func newExecutionContext(rootDirectory string, configuration buildcontext.Configuration, environment buildcontext.CIEnvironment) buildcontext.ExecutionContext {
	return buildcontext.NewExecutionContext(buildcontext.Parameters{
		Configuration:         configuration,
		RootDirectory:         rootDirectory,
		ProjectPath:           testProjectConstant,
		ArtifactsType:         testArtifactsTypeConst,
		ExcludedArtifactsType: testExcludedTypeConst,
		NuGetFeed:             testNuGetFeedConstant,
		NuGetAPIKey:           testNuGetKeyConstant,
		Copyright:             "Copyright Example",
	}, buildcontext.VersionInfo{NuGetVersionV2: "1.0.0"}, environment)
}

func runGoal(testInstance *testing.T, toolchain *fakeToolchain, executionContext buildcontext.ExecutionContext, goal string, options ...taskgraph.Option) (taskgraph.RunReport, error) {
	testInstance.Helper()
	graph := taskgraph.NewGraph(options...)
	require.NoError(testInstance, buildplan.NewTargets(toolchain, zap.NewNop()).Register(graph, executionContext))
	return graph.Execute(context.Background(), goal, executionContext)
}

func TestTargetsResolveInBuildOrder(testInstance *testing.T) {
	graph := taskgraph.NewGraph()
	executionContext := newExecutionContext(testInstance.TempDir(), buildcontext.ConfigurationRelease, buildcontext.CIEnvironment{})
	require.NoError(testInstance, buildplan.NewTargets(&fakeToolchain{}, nil).Register(graph, executionContext))

	plan, planError := graph.Plan(buildplan.DefaultGoal)
	require.NoError(testInstance, planError)
	require.Equal(testInstance, []string{"clean", "restore", "compile", "pack"}, plan.Order)
	require.Equal(testInstance, []taskgraph.TriggerEdge{
		{Source: "pack", Target: "publish-github"},
		{Source: "pack", Target: "publish-nuget"},
	}, plan.Triggers)

	packTask, found := graph.Task(buildplan.TargetPack)
	require.True(testInstance, found)
	require.Equal(testInstance, []string{filepath.Join(executionContext.ArtifactsDirectory(), testArtifactsTypeConst)}, packTask.Produces)
}

func TestPackRequiresReleaseConfiguration(testInstance *testing.T) {
	toolchain := &fakeToolchain{}
	executionContext := newExecutionContext(testInstance.TempDir(), buildcontext.ConfigurationDebug, buildcontext.CIEnvironment{})

	report, executeError := runGoal(testInstance, toolchain, executionContext, buildplan.TargetPack)

	var configurationError taskgraph.ConfigurationError
	require.ErrorAs(testInstance, executeError, &configurationError)
	require.Equal(testInstance, buildplan.TargetPack, configurationError.TaskName)
	require.Empty(testInstance, toolchain.calls)
	require.Empty(testInstance, report.Results)
}

func TestRelativeRootResolvesArtifactsOnce(testInstance *testing.T) {
	testInstance.Chdir(testInstance.TempDir())
	require.NoError(testInstance, os.MkdirAll("sub", 0o755))
	expectedArtifactsDirectory, absoluteError := filepath.Abs(filepath.Join("sub", ".artifacts"))
	require.NoError(testInstance, absoluteError)

	toolchain := &fakeToolchain{packed: []string{"Hello.1.0.0.nupkg"}}
	executionContext := newExecutionContext("sub", buildcontext.ConfigurationRelease, buildcontext.CIEnvironment{})

	_, executeError := runGoal(testInstance, toolchain, executionContext, buildplan.DefaultGoal, taskgraph.WithProducesVerification(true))
	require.NoError(testInstance, executeError)
	require.Equal(testInstance, expectedArtifactsDirectory, toolchain.lastPackSet.OutputDirectory)
	require.FileExists(testInstance, filepath.Join("sub", ".artifacts", "Hello.1.0.0.nupkg"))
	require.NoDirExists(testInstance, filepath.Join("sub", "sub"))
}

func TestCompileLocallyNeedsNoRelease(testInstance *testing.T) {
	toolchain := &fakeToolchain{}
	rootDirectory := testInstance.TempDir()
	staleArtifact := filepath.Join(rootDirectory, ".artifacts", "stale.nupkg")
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(staleArtifact), 0o755))
	require.NoError(testInstance, os.WriteFile(staleArtifact, []byte("old"), 0o644))

	executionContext := newExecutionContext(rootDirectory, "", buildcontext.CIEnvironment{})
	_, executeError := runGoal(testInstance, toolchain, executionContext, buildplan.TargetCompile)

	require.NoError(testInstance, executeError)
	require.Equal(testInstance, buildcontext.ConfigurationDebug, toolchain.lastBuild.Configuration)
	require.NoFileExists(testInstance, staleArtifact)
}

func TestPublishTargetsFollowBranchRules(testInstance *testing.T) {
	testCases := []struct {
		name            string
		environment     buildcontext.CIEnvironment
		expectedSources []string
		expectedSkipped []string
		expectedAPIKey  string
	}{
		{
			name:            "develop_branch_publishes_to_github",
			environment:     buildcontext.CIEnvironment{IsServerBuild: true, Branch: "develop", RepositoryOwner: "octo-org", Token: testGitHubTokenConstant},
			expectedSources: []string{"https://nuget.pkg.github.com/octo-org/index.json", "https://nuget.pkg.github.com/octo-org/index.json"},
			expectedSkipped: []string{buildplan.TargetPublishNuGet},
			expectedAPIKey:  testGitHubTokenConstant,
		},
		{
			name:            "pull_request_publishes_to_github",
			environment:     buildcontext.CIEnvironment{IsServerBuild: true, Branch: "feature/x", IsPullRequest: true, RepositoryOwner: "octo-org", Token: testGitHubTokenConstant},
			expectedSources: []string{"https://nuget.pkg.github.com/octo-org/index.json", "https://nuget.pkg.github.com/octo-org/index.json"},
			expectedSkipped: []string{buildplan.TargetPublishNuGet},
			expectedAPIKey:  testGitHubTokenConstant,
		},
		{
			name:            "main_branch_publishes_to_nuget",
			environment:     buildcontext.CIEnvironment{IsServerBuild: true, Branch: "main", RepositoryOwner: "octo-org", Token: testGitHubTokenConstant},
			expectedSources: []string{testNuGetFeedConstant, testNuGetFeedConstant},
			expectedSkipped: []string{buildplan.TargetPublishGitHub},
			expectedAPIKey:  testNuGetKeyConstant,
		},
		{
			name:            "release_branch_publishes_nothing",
			environment:     buildcontext.CIEnvironment{IsServerBuild: true, Branch: "releases/1.0"},
			expectedSkipped: []string{buildplan.TargetPublishGitHub, buildplan.TargetPublishNuGet},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			toolchain := &fakeToolchain{packed: []string{"Hello.1.0.0.nupkg", "Hello.1.0.0.symbols.nupkg", "World.1.0.0.nupkg"}}
			executionContext := newExecutionContext(testInstance.TempDir(), "", testCase.environment)

			report, executeError := runGoal(testInstance, toolchain, executionContext, buildplan.DefaultGoal, taskgraph.WithProducesVerification(true))
			require.NoError(testInstance, executeError)

			sources := make([]string, 0, len(toolchain.pushes))
			for _, push := range toolchain.pushes {
				sources = append(sources, push.Source)
				require.Equal(testInstance, testCase.expectedAPIKey, push.APIKey)
				require.NotContains(testInstance, push.PackagePath, "symbols")
			}
			if len(testCase.expectedSources) == 0 {
				require.Empty(testInstance, sources)
			} else {
				require.Equal(testInstance, testCase.expectedSources, sources)
				require.Equal(testInstance, "Hello.1.0.0.nupkg", filepath.Base(toolchain.pushes[0].PackagePath))
				require.Equal(testInstance, "World.1.0.0.nupkg", filepath.Base(toolchain.pushes[1].PackagePath))
			}

			for _, skippedTask := range testCase.expectedSkipped {
				result, found := report.Result(skippedTask)
				require.True(testInstance, found, skippedTask)
				require.Equal(testInstance, taskgraph.OutcomeSkipped, result.Outcome)
			}
			require.Equal(testInstance, "Copyright Example", toolchain.lastPackSet.Copyright)
			require.Equal(testInstance, executionContext.ArtifactsDirectory(), toolchain.lastPackSet.OutputDirectory)
		})
	}
}

func TestPublishNuGetRequiresAPIKey(testInstance *testing.T) {
	toolchain := &fakeToolchain{packed: []string{"Hello.1.0.0.nupkg"}}
	executionContext := buildcontext.NewExecutionContext(buildcontext.Parameters{
		Configuration: buildcontext.ConfigurationRelease,
		RootDirectory: testInstance.TempDir(),
		ProjectPath:   testProjectConstant,
		ArtifactsType: testArtifactsTypeConst,
		NuGetFeed:     testNuGetFeedConstant,
	}, buildcontext.VersionInfo{}, buildcontext.CIEnvironment{IsServerBuild: true, Branch: "master"})

	_, executeError := runGoal(testInstance, toolchain, executionContext, buildplan.DefaultGoal)

	var configurationError taskgraph.ConfigurationError
	require.ErrorAs(testInstance, executeError, &configurationError)
	require.Equal(testInstance, taskgraph.ConfigurationError{TaskName: buildplan.TargetPublishNuGet, Requirement: "nuget_api_key is set"}, configurationError)
	require.Empty(testInstance, toolchain.calls)
}

func TestPackFailureSkipsPublishing(testInstance *testing.T) {
	toolchain := &fakeToolchain{packError: errors.New("dotnet command exited with code 1")}
	executionContext := newExecutionContext(testInstance.TempDir(), buildcontext.ConfigurationRelease, buildcontext.CIEnvironment{Branch: "main"})

	report, executeError := runGoal(testInstance, toolchain, executionContext, buildplan.DefaultGoal)

	var executionError taskgraph.TaskExecutionError
	require.ErrorAs(testInstance, executeError, &executionError)
	require.Equal(testInstance, buildplan.TargetPack, executionError.TaskName)
	require.Empty(testInstance, toolchain.pushes)
	_, published := report.Result(buildplan.TargetPublishNuGet)
	require.False(testInstance, published)
}

func TestPublishWarnsWhenNothingMatches(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zap.WarnLevel)
	toolchain := &fakeToolchain{}
	executionContext := newExecutionContext(testInstance.TempDir(), buildcontext.ConfigurationRelease, buildcontext.CIEnvironment{Branch: "main"})
	graph := taskgraph.NewGraph()
	require.NoError(testInstance, buildplan.NewTargets(toolchain, zap.New(observedCore)).Register(graph, executionContext))

	_, executeError := graph.Execute(context.Background(), buildplan.DefaultGoal, executionContext)
	require.NoError(testInstance, executeError)
	require.Empty(testInstance, toolchain.pushes)
	require.Equal(testInstance, 1, observedLogs.Len())
}
