package buildcontext

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	defaultArtifactsDirectoryNameConstant = ".artifacts"
	githubPackagesFeedTemplateConstant    = "https://nuget.pkg.github.com/%s/index.json"
	mainBranchNameConstant                = "main"
	masterBranchNameConstant              = "master"
	releaseBranchPrefixConstant           = "release/"
	releasesBranchPrefixConstant          = "releases/"
)

var developBranchNames = []string{"dev", "develop", "development"}

// Parameters are the user-supplied build inputs (configuration file, environment, flags).
type Parameters struct {
	Configuration         Configuration
	RootDirectory         string
	ProjectPath           string
	ArtifactsDirectory    string
	ArtifactsType         string
	ExcludedArtifactsType string
	NuGetFeed             string
	NuGetAPIKey           string
	Copyright             string
}

// VersionInfo carries the version strings calculated from repository history.
type VersionInfo struct {
	SemVer               string
	NuGetVersionV2       string
	AssemblySemVer       string
	AssemblySemFileVer   string
	InformationalVersion string
	Sha                  string
	CommitsSinceTag      int
}

// CIEnvironment describes the CI provider and the ref being built.
type CIEnvironment struct {
	Provider        string
	IsServerBuild   bool
	Branch          string
	BaseBranch      string
	EventName       string
	IsPullRequest   bool
	RepositoryOwner string
	Token           string
}

// ExecutionContext is the immutable configuration snapshot passed to every task.
type ExecutionContext struct {
	parameters  Parameters
	version     VersionInfo
	environment CIEnvironment
}

// NewExecutionContext resolves derived defaults and freezes the supplied values.
func NewExecutionContext(parameters Parameters, version VersionInfo, environment CIEnvironment) ExecutionContext {
	resolved := parameters
	resolved.RootDirectory = strings.TrimSpace(resolved.RootDirectory)
	if len(resolved.RootDirectory) == 0 {
		resolved.RootDirectory = "."
	}
	if absoluteRoot, absoluteError := filepath.Abs(resolved.RootDirectory); absoluteError == nil {
		resolved.RootDirectory = absoluteRoot
	}
	resolved.ArtifactsDirectory = strings.TrimSpace(resolved.ArtifactsDirectory)
	if len(resolved.ArtifactsDirectory) == 0 {
		resolved.ArtifactsDirectory = filepath.Join(resolved.RootDirectory, defaultArtifactsDirectoryNameConstant)
	} else if !filepath.IsAbs(resolved.ArtifactsDirectory) {
		resolved.ArtifactsDirectory = filepath.Join(resolved.RootDirectory, resolved.ArtifactsDirectory)
	}
	if len(resolved.Configuration) == 0 {
		resolved.Configuration = DefaultConfiguration(environment)
	}
	environment.Branch = strings.TrimSpace(environment.Branch)
	return ExecutionContext{parameters: resolved, version: version, environment: environment}
}

// Parameters returns a copy of the build parameters.
func (executionContext ExecutionContext) Parameters() Parameters {
	return executionContext.parameters
}

// Version returns a copy of the calculated version.
func (executionContext ExecutionContext) Version() VersionInfo {
	return executionContext.version
}

// Environment returns a copy of the CI environment.
func (executionContext ExecutionContext) Environment() CIEnvironment {
	return executionContext.environment
}

// Configuration returns the effective build configuration.
func (executionContext ExecutionContext) Configuration() Configuration {
	return executionContext.parameters.Configuration
}

// ArtifactsDirectory returns the directory cleaned at the start of a run and filled by packing.
func (executionContext ExecutionContext) ArtifactsDirectory() string {
	return executionContext.parameters.ArtifactsDirectory
}

// IsRelease reports whether the build runs in Release configuration.
func (executionContext ExecutionContext) IsRelease() bool {
	return executionContext.parameters.Configuration == ConfigurationRelease
}

// IsLocalBuild reports whether the run happens outside a CI server.
func (executionContext ExecutionContext) IsLocalBuild() bool {
	return !executionContext.environment.IsServerBuild
}

// IsPullRequest reports whether the CI event is a pull request.
func (executionContext ExecutionContext) IsPullRequest() bool {
	return executionContext.environment.IsPullRequest
}

// IsOnMainOrMasterBranch reports whether the current branch is main or master.
func (executionContext ExecutionContext) IsOnMainOrMasterBranch() bool {
	branch := executionContext.environment.Branch
	return strings.EqualFold(branch, mainBranchNameConstant) || strings.EqualFold(branch, masterBranchNameConstant)
}

// IsOnDevelopBranch reports whether the current branch is a development branch.
func (executionContext ExecutionContext) IsOnDevelopBranch() bool {
	for _, developBranchName := range developBranchNames {
		if strings.EqualFold(executionContext.environment.Branch, developBranchName) {
			return true
		}
	}
	return false
}

// IsOnReleaseBranch reports whether the current branch lives under release/ or releases/.
func (executionContext ExecutionContext) IsOnReleaseBranch() bool {
	branch := strings.ToLower(executionContext.environment.Branch)
	return strings.HasPrefix(branch, releaseBranchPrefixConstant) || strings.HasPrefix(branch, releasesBranchPrefixConstant)
}

// GitHubPackagesFeed returns the GitHub Packages NuGet feed of the repository owner, or an empty string locally.
func (executionContext ExecutionContext) GitHubPackagesFeed() string {
	owner := strings.TrimSpace(executionContext.environment.RepositoryOwner)
	if len(owner) == 0 {
		return ""
	}
	return fmt.Sprintf(githubPackagesFeedTemplateConstant, owner)
}

// SensitiveValues lists secrets that must never appear in logs.
func (executionContext ExecutionContext) SensitiveValues() []string {
	values := make([]string, 0, 2)
	for _, candidate := range []string{executionContext.parameters.NuGetAPIKey, executionContext.environment.Token} {
		if len(strings.TrimSpace(candidate)) > 0 {
			values = append(values, candidate)
		}
	}
	return values
}
