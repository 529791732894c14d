package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tyemirov/buildgraph/internal/execshell"
)

const (
	gitStatusSubcommandConstant               = "status"
	gitStatusPorcelainFlagConstant            = "--porcelain"
	gitRevParseSubcommandConstant             = "rev-parse"
	gitAbbrevRefFlagConstant                  = "--abbrev-ref"
	gitShowTopLevelFlagConstant               = "--show-toplevel"
	gitShortFlagConstant                      = "--short"
	gitHeadReferenceConstant                  = "HEAD"
	gitDescribeSubcommandConstant             = "describe"
	gitTagsFlagConstant                       = "--tags"
	gitLongFlagConstant                       = "--long"
	gitAbbrevFlagConstant                     = "--abbrev=7"
	gitMatchFlagConstant                      = "--match"
	gitRevListSubcommandConstant              = "rev-list"
	gitCountFlagConstant                      = "--count"
	gitTerminalPromptEnvironmentNameConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentValueConstant = "0"
	repositoryPathFieldNameConstant           = "repository_path"
	requiredValueMessageConstant              = "value required"
	executorNotConfiguredMessageConstant      = "git executor not configured"
	repositoryOperationErrorTemplateConstant  = "%s operation failed"
	repositoryOperationErrorWithCauseConstant = "%s operation failed: %s"
	invalidRepositoryInputTemplateConstant    = "%s: %s"
	cleanWorktreeOperationNameConstant        = RepositoryOperationName("CheckCleanWorktree")
	currentBranchOperationNameConstant        = RepositoryOperationName("GetCurrentBranch")
	repositoryRootOperationNameConstant       = RepositoryOperationName("GetRepositoryRoot")
	headCommitOperationNameConstant           = RepositoryOperationName("GetHeadCommit")
	describeOperationNameConstant             = RepositoryOperationName("DescribeHead")
	countCommitsOperationNameConstant         = RepositoryOperationName("CountCommits")
	detachedHeadBranchNameConstant            = "HEAD"
)

// GitCommandExecutor exposes the subset of execshell functionality required by RepositoryManager.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager reads repository metadata through execshell.
type RepositoryManager struct {
	executor GitCommandExecutor
}

var (
	// ErrGitExecutorNotConfigured indicates the RepositoryManager was constructed without a git executor.
	ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrNoTagsFound indicates git describe found no tag reachable from HEAD.
	ErrNoTagsFound = errors.New("no tags reachable from HEAD")
)

// InvalidRepositoryInputError indicates validation failures for repository operations.
type InvalidRepositoryInputError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (inputError InvalidRepositoryInputError) Error() string {
	return fmt.Sprintf(invalidRepositoryInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryOperationName captures descriptive names for repository operations.
type RepositoryOperationName string

// RepositoryOperationError wraps execution failures for git operations.
type RepositoryOperationError struct {
	Operation RepositoryOperationName
	Cause     error
}

// Error describes the repository operation failure.
func (operationError RepositoryOperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(repositoryOperationErrorTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(repositoryOperationErrorWithCauseConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError RepositoryOperationError) Unwrap() error {
	return operationError.Cause
}

// NewRepositoryManager constructs a RepositoryManager for the provided executor.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// CheckCleanWorktree returns true when the repository has no staged or unstaged changes.
func (manager *RepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error) {
	trimmedOutput, executionError := manager.run(executionContext, cleanWorktreeOperationNameConstant, repositoryPath, gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant)
	if executionError != nil {
		return false, executionError
	}
	return len(trimmedOutput) == 0, nil
}

// GetCurrentBranch resolves the current branch name. A detached HEAD yields an empty name.
func (manager *RepositoryManager) GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	branchName, executionError := manager.run(executionContext, currentBranchOperationNameConstant, repositoryPath, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", executionError
	}
	if branchName == detachedHeadBranchNameConstant {
		return "", nil
	}
	return branchName, nil
}

// GetRepositoryRoot returns the top-level directory of the repository containing repositoryPath.
func (manager *RepositoryManager) GetRepositoryRoot(executionContext context.Context, repositoryPath string) (string, error) {
	return manager.run(executionContext, repositoryRootOperationNameConstant, repositoryPath, gitRevParseSubcommandConstant, gitShowTopLevelFlagConstant)
}

// GetHeadCommit returns the abbreviated commit hash of HEAD.
func (manager *RepositoryManager) GetHeadCommit(executionContext context.Context, repositoryPath string) (string, error) {
	return manager.run(executionContext, headCommitOperationNameConstant, repositoryPath, gitRevParseSubcommandConstant, gitShortFlagConstant, gitHeadReferenceConstant)
}

// CountCommits returns the number of commits reachable from HEAD.
func (manager *RepositoryManager) CountCommits(executionContext context.Context, repositoryPath string) (int, error) {
	countOutput, executionError := manager.run(executionContext, countCommitsOperationNameConstant, repositoryPath, gitRevListSubcommandConstant, gitCountFlagConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return 0, executionError
	}
	commitCount, parseError := strconv.Atoi(countOutput)
	if parseError != nil {
		return 0, RepositoryOperationError{Operation: countCommitsOperationNameConstant, Cause: parseError}
	}
	return commitCount, nil
}

// DescribeHead returns `git describe --tags --long` output for the newest tag matching tagPattern.
// ErrNoTagsFound is returned when the repository has no matching tag.
func (manager *RepositoryManager) DescribeHead(executionContext context.Context, repositoryPath string, tagPattern string) (string, error) {
	arguments := []string{gitDescribeSubcommandConstant, gitTagsFlagConstant, gitLongFlagConstant, gitAbbrevFlagConstant}
	if trimmedPattern := strings.TrimSpace(tagPattern); len(trimmedPattern) > 0 {
		arguments = append(arguments, gitMatchFlagConstant, trimmedPattern)
	}

	description, executionError := manager.run(executionContext, describeOperationNameConstant, repositoryPath, arguments...)
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) {
			return "", RepositoryOperationError{Operation: describeOperationNameConstant, Cause: ErrNoTagsFound}
		}
		return "", executionError
	}
	return description, nil
}

func (manager *RepositoryManager) run(executionContext context.Context, operation RepositoryOperationName, repositoryPath string, arguments ...string) (string, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return "", InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: trimmedPath,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentValueConstant,
		},
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return "", RepositoryOperationError{Operation: operation, Cause: executionError}
	}

	return strings.TrimSpace(executionResult.StandardOutput), nil
}
