// Package version reports the version of the buildgraph binary itself.
package version

import (
	"context"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/buildgraph/internal/gitversion"
)

const (
	unknownVersionFallbackConstant = "unknown"
	buildInfoDevelVersionValue     = "devel"
	versionPrefixConstant          = "v"
)

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// RepositoryReader is the part of gitrepo.RepositoryManager the detector consults for source checkouts.
type RepositoryReader interface {
	gitversion.RepositoryReader
	GetRepositoryRoot(executionContext context.Context, repositoryPath string) (string, error)
	GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
}

// Dependencies describes the collaborators required for version detection.
type Dependencies struct {
	BuildInfoProvider BuildInfoProvider
	Repository        RepositoryReader
	WorkingDirectory  string
	Logger            *zap.Logger
}

// Detector resolves the binary version: module build info first, then the
// version gitversion calculates for the source checkout.
type Detector struct {
	buildInfoProvider BuildInfoProvider
	repository        RepositoryReader
	workingDirectory  string
	logger            *zap.Logger
}

// NewDetector constructs a Detector. Without a repository only build info is consulted.
func NewDetector(dependencies Dependencies) *Detector {
	provider := dependencies.BuildInfoProvider
	if provider == nil {
		provider = runtimeBuildInfoProvider{}
	}

	workingDirectory := strings.TrimSpace(dependencies.WorkingDirectory)
	if len(workingDirectory) == 0 {
		if currentDirectory, workingDirectoryError := os.Getwd(); workingDirectoryError == nil {
			workingDirectory = currentDirectory
		}
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Detector{
		buildInfoProvider: provider,
		repository:        dependencies.Repository,
		workingDirectory:  workingDirectory,
		logger:            logger,
	}
}

// Detect resolves the binary version using the supplied dependencies.
func Detect(executionContext context.Context, dependencies Dependencies) string {
	return NewDetector(dependencies).Version(executionContext)
}

// Version returns the detected version string, or "unknown".
func (detector *Detector) Version(executionContext context.Context) string {
	if detector == nil {
		return unknownVersionFallbackConstant
	}
	if buildVersion := detector.versionFromBuildInfo(); len(buildVersion) > 0 {
		return buildVersion
	}
	if checkoutVersion := detector.versionFromCheckout(executionContext); len(checkoutVersion) > 0 {
		return checkoutVersion
	}
	return unknownVersionFallbackConstant
}

func (detector *Detector) versionFromBuildInfo() string {
	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return ""
	}
	trimmedVersion := strings.TrimSpace(buildInfo.Main.Version)
	if len(trimmedVersion) == 0 || strings.EqualFold(trimmedVersion, buildInfoDevelVersionValue) {
		return ""
	}
	return trimmedVersion
}

// versionFromCheckout is the tag on HEAD for release commits, the informational version otherwise.
func (detector *Detector) versionFromCheckout(executionContext context.Context) string {
	if detector.repository == nil || len(detector.workingDirectory) == 0 {
		return ""
	}

	repositoryRoot, rootError := detector.repository.GetRepositoryRoot(executionContext, detector.workingDirectory)
	if rootError != nil || len(strings.TrimSpace(repositoryRoot)) == 0 {
		detector.logger.Debug("source checkout not found", zap.String("path", detector.workingDirectory), zap.Error(rootError))
		return ""
	}

	branch, branchError := detector.repository.GetCurrentBranch(executionContext, repositoryRoot)
	if branchError != nil {
		detector.logger.Debug("branch lookup failed", zap.Error(branchError))
	}

	versionInfo, calculationError := gitversion.NewCalculator(detector.repository, "", detector.logger).Calculate(executionContext, repositoryRoot, branch)
	if calculationError != nil {
		detector.logger.Debug("version lookup via git failed", zap.String("path", repositoryRoot), zap.Error(calculationError))
		return ""
	}

	if versionInfo.CommitsSinceTag == 0 {
		return versionPrefixConstant + versionInfo.SemVer
	}
	return versionPrefixConstant + versionInfo.InformationalVersion
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
