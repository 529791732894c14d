package buildplan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
	"github.com/tyemirov/buildgraph/internal/buildplan"
	"github.com/tyemirov/buildgraph/internal/execshell"
)

type recordingDotNetExecutor struct {
	recordedDetails []execshell.CommandDetails
}

func (executor *recordingDotNetExecutor) ExecuteDotNet(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	return execshell.ExecutionResult{}, nil
}

func TestNewDotNetCLIRequiresExecutor(testInstance *testing.T) {
	cli, creationError := buildplan.NewDotNetCLI(nil, ".")
	require.ErrorIs(testInstance, creationError, buildplan.ErrDotNetExecutorNotConfigured)
	require.Nil(testInstance, cli)
}

func TestDotNetCLIArguments(testInstance *testing.T) {
	version := buildcontext.VersionInfo{
		NuGetVersionV2:       "1.2.4-develop.5",
		AssemblySemVer:       "1.2.4.0",
		AssemblySemFileVer:   "1.2.4.0",
		InformationalVersion: "1.2.4-develop.5+5.Branch.develop.Sha.abc1234",
	}

	testCases := []struct {
		name              string
		invoke            func(*buildplan.DotNetCLI) error
		expectedArguments []string
		expectedSensitive []string
	}{
		{
			name:              "clean",
			invoke:            func(cli *buildplan.DotNetCLI) error { return cli.Clean(context.Background(), "src/Hello/Hello.csproj") },
			expectedArguments: []string{"clean", "src/Hello/Hello.csproj"},
		},
		{
			name: "restore",
			invoke: func(cli *buildplan.DotNetCLI) error {
				return cli.Restore(context.Background(), "src/Hello/Hello.csproj")
			},
			expectedArguments: []string{"restore", "src/Hello/Hello.csproj"},
		},
		{
			name: "build",
			invoke: func(cli *buildplan.DotNetCLI) error {
				return cli.Build(context.Background(), buildplan.BuildSettings{Project: "Hello.csproj", Configuration: buildcontext.ConfigurationRelease, Version: version})
			},
			expectedArguments: []string{
				"build", "Hello.csproj", "--configuration", "Release",
				"/property:Version=1.2.4-develop.5",
				"/property:AssemblyVersion=1.2.4.0",
				"/property:InformationalVersion=1.2.4-develop.5+5.Branch.develop.Sha.abc1234",
				"/property:FileVersion=1.2.4.0",
				"--no-restore",
			},
		},
		{
			name: "pack",
			invoke: func(cli *buildplan.DotNetCLI) error {
				return cli.Pack(context.Background(), buildplan.BuildSettings{
					Project:         "Hello.csproj",
					Configuration:   buildcontext.ConfigurationRelease,
					Version:         buildcontext.VersionInfo{NuGetVersionV2: "2.0.0"},
					Copyright:       "Copyright 2024 Example",
					OutputDirectory: "/src/.artifacts",
				})
			},
			expectedArguments: []string{
				"pack", "Hello.csproj", "--configuration", "Release", "--output", "/src/.artifacts",
				"--no-build", "--no-restore",
				"/property:Copyright=Copyright 2024 Example",
				"/property:Version=2.0.0",
			},
		},
		{
			name: "pack_escapes_msbuild_separators",
			invoke: func(cli *buildplan.DotNetCLI) error {
				return cli.Pack(context.Background(), buildplan.BuildSettings{
					Project:         "Hello.csproj",
					Configuration:   buildcontext.ConfigurationRelease,
					Copyright:       "Copyright 2024 Example, Inc; 100% owned",
					OutputDirectory: "/src/.artifacts",
				})
			},
			expectedArguments: []string{
				"pack", "Hello.csproj", "--configuration", "Release", "--output", "/src/.artifacts",
				"--no-build", "--no-restore",
				"/property:Copyright=Copyright 2024 Example%2C Inc%3B 100%25 owned",
			},
		},
		{
			name: "push",
			invoke: func(cli *buildplan.DotNetCLI) error {
				return cli.Push(context.Background(), buildplan.PushSettings{PackagePath: "/a/Hello.2.0.0.nupkg", Source: "https://api.nuget.org/v3/index.json", APIKey: "secret-key"})
			},
			expectedArguments: []string{
				"nuget", "push", "/a/Hello.2.0.0.nupkg",
				"--source", "https://api.nuget.org/v3/index.json",
				"--api-key", "secret-key",
				"--skip-duplicate",
			},
			expectedSensitive: []string{"secret-key"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingDotNetExecutor{}
			cli, creationError := buildplan.NewDotNetCLI(executor, "/src")
			require.NoError(testInstance, creationError)

			require.NoError(testInstance, testCase.invoke(cli))
			require.Len(testInstance, executor.recordedDetails, 1)
			require.Equal(testInstance, testCase.expectedArguments, executor.recordedDetails[0].Arguments)
			require.Equal(testInstance, "/src", executor.recordedDetails[0].WorkingDirectory)
			require.Equal(testInstance, testCase.expectedSensitive, executor.recordedDetails[0].SensitiveValues)
		})
	}
}
