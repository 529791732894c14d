// Package cienv detects the CI provider a build runs under and the ref being built.
package cienv

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
)

const (
	// ProviderGitHubActions identifies GitHub Actions runners.
	ProviderGitHubActions = "github-actions"
	// ProviderGeneric identifies any other CI server advertising CI=true.
	ProviderGeneric = "ci"
	// ProviderLocal identifies a developer machine.
	ProviderLocal = "local"

	githubActionsVariableConstant   = "GITHUB_ACTIONS"
	githubRefVariableConstant       = "GITHUB_REF"
	githubRefNameVariableConstant   = "GITHUB_REF_NAME"
	githubHeadRefVariableConstant   = "GITHUB_HEAD_REF"
	githubBaseRefVariableConstant   = "GITHUB_BASE_REF"
	githubEventNameVariableConstant = "GITHUB_EVENT_NAME"
	githubOwnerVariableConstant     = "GITHUB_REPOSITORY_OWNER"
	githubTokenVariableConstant     = "GITHUB_TOKEN"
	githubCLITokenVariableConstant  = "GH_TOKEN"
	genericCIVariableConstant       = "CI"
	truthyValueConstant             = "true"
	branchReferencePrefixConstant   = "refs/heads/"
	pullRequestEventPrefixConstant  = "pull_request"
)

// EnvironmentLookup reads one environment variable.
type EnvironmentLookup func(name string) (string, bool)

// BranchResolver resolves the checked-out branch when the CI provider does not report one.
type BranchResolver interface {
	GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
}

// Detector inspects environment variables and, as a fallback, the local repository.
type Detector struct {
	lookup         EnvironmentLookup
	branchResolver BranchResolver
	logger         *zap.Logger
}

// NewDetector builds a Detector. A nil lookup reads the process environment; a nil resolver disables the git fallback.
func NewDetector(lookup EnvironmentLookup, branchResolver BranchResolver, logger *zap.Logger) *Detector {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{lookup: lookup, branchResolver: branchResolver, logger: logger}
}

// Detect returns the CI environment of the current process.
func (detector *Detector) Detect(executionContext context.Context, repositoryPath string) buildcontext.CIEnvironment {
	if detector.flag(githubActionsVariableConstant) {
		environment := detector.detectGitHubActions()
		detector.logger.Debug("ci environment detected",
			zap.String("provider", environment.Provider),
			zap.String("branch", environment.Branch),
			zap.String("event", environment.EventName),
			zap.Bool("pull_request", environment.IsPullRequest),
		)
		return environment
	}

	environment := buildcontext.CIEnvironment{Provider: ProviderLocal}
	if detector.flag(genericCIVariableConstant) {
		environment.Provider = ProviderGeneric
		environment.IsServerBuild = true
	}
	environment.Token = detector.token()
	environment.Branch = detector.resolveBranch(executionContext, repositoryPath)
	detector.logger.Debug("ci environment detected",
		zap.String("provider", environment.Provider),
		zap.String("branch", environment.Branch),
	)
	return environment
}

func (detector *Detector) detectGitHubActions() buildcontext.CIEnvironment {
	eventName := detector.value(githubEventNameVariableConstant)
	headReference := detector.value(githubHeadRefVariableConstant)
	isPullRequest := strings.HasPrefix(eventName, pullRequestEventPrefixConstant) || len(headReference) > 0

	branch := headReference
	if !isPullRequest || len(branch) == 0 {
		branch = detector.value(githubRefNameVariableConstant)
	}
	if len(branch) == 0 {
		branch = strings.TrimPrefix(detector.value(githubRefVariableConstant), branchReferencePrefixConstant)
	}

	return buildcontext.CIEnvironment{
		Provider:        ProviderGitHubActions,
		IsServerBuild:   true,
		Branch:          branch,
		BaseBranch:      detector.value(githubBaseRefVariableConstant),
		EventName:       eventName,
		IsPullRequest:   isPullRequest,
		RepositoryOwner: detector.value(githubOwnerVariableConstant),
		Token:           detector.token(),
	}
}

func (detector *Detector) resolveBranch(executionContext context.Context, repositoryPath string) string {
	if detector.branchResolver == nil {
		return ""
	}
	branch, resolveError := detector.branchResolver.GetCurrentBranch(executionContext, repositoryPath)
	if resolveError != nil {
		detector.logger.Debug("branch resolution failed", zap.String("path", repositoryPath), zap.Error(resolveError))
		return ""
	}
	return branch
}

func (detector *Detector) token() string {
	if token := detector.value(githubTokenVariableConstant); len(token) > 0 {
		return token
	}
	return detector.value(githubCLITokenVariableConstant)
}

func (detector *Detector) flag(name string) bool {
	return strings.EqualFold(detector.value(name), truthyValueConstant)
}

func (detector *Detector) value(name string) string {
	raw, found := detector.lookup(name)
	if !found {
		return ""
	}
	return strings.TrimSpace(raw)
}
