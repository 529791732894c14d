package gitrepo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/buildgraph/internal/execshell"
	"github.com/tyemirov/buildgraph/internal/gitrepo"
)

const (
	testRepositoryPathConstant                = "/tmp/repo"
	testCleanWorktreeCaseNameConstant         = "clean"
	testDirtyWorktreeCaseNameConstant         = "dirty"
	testWorktreeErrorCaseNameConstant         = "error"
	testValidationCaseNameConstant            = "validation"
	testCurrentBranchSuccessCaseNameConstant  = "current_branch_success"
	testCurrentBranchDetachedCaseNameConstant = "current_branch_detached"
	testCurrentBranchErrorCaseNameConstant    = "current_branch_error"
)

type stubGitExecutor struct {
	executeFunc     func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error)
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if executor.executeFunc != nil {
		return executor.executeFunc(executionContext, details)
	}
	return execshell.ExecutionResult{}, nil
}

func respondWith(output string) func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{StandardOutput: output}, nil
	}
}

func TestNewRepositoryManagerValidation(testInstance *testing.T) {
	testInstance.Run(testValidationCaseNameConstant, func(testInstance *testing.T) {
		manager, creationError := gitrepo.NewRepositoryManager(nil)
		require.Error(testInstance, creationError)
		require.ErrorIs(testInstance, creationError, gitrepo.ErrGitExecutorNotConfigured)
		require.Nil(testInstance, manager)
	})
}

func TestCheckCleanWorktree(testInstance *testing.T) {
	testCases := []struct {
		name        string
		executor    *stubGitExecutor
		expected    bool
		expectError bool
	}{
		{
			name:     testCleanWorktreeCaseNameConstant,
			executor: &stubGitExecutor{executeFunc: respondWith("")},
			expected: true,
		},
		{
			name:     testDirtyWorktreeCaseNameConstant,
			executor: &stubGitExecutor{executeFunc: respondWith(" M build.go\n")},
			expected: false,
		},
		{
			name: testWorktreeErrorCaseNameConstant,
			executor: &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{}, errors.New("boom")
			}},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			clean, checkError := manager.CheckCleanWorktree(context.Background(), testRepositoryPathConstant)
			if testCase.expectError {
				require.Error(testInstance, checkError)
				require.IsType(testInstance, gitrepo.RepositoryOperationError{}, checkError)
				return
			}
			require.NoError(testInstance, checkError)
			require.Equal(testInstance, testCase.expected, clean)
			require.Equal(testInstance, []string{"status", "--porcelain"}, testCase.executor.recordedDetails[0].Arguments)
		})
	}
}

func TestGetCurrentBranch(testInstance *testing.T) {
	testCases := []struct {
		name           string
		executor       *stubGitExecutor
		expectedBranch string
		expectError    bool
	}{
		{
			name:           testCurrentBranchSuccessCaseNameConstant,
			executor:       &stubGitExecutor{executeFunc: respondWith("develop\n")},
			expectedBranch: "develop",
		},
		{
			name:           testCurrentBranchDetachedCaseNameConstant,
			executor:       &stubGitExecutor{executeFunc: respondWith("HEAD\n")},
			expectedBranch: "",
		},
		{
			name: testCurrentBranchErrorCaseNameConstant,
			executor: &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{}, errors.New("not a repository")
			}},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			branchName, branchError := manager.GetCurrentBranch(context.Background(), testRepositoryPathConstant)
			if testCase.expectError {
				require.Error(testInstance, branchError)
				return
			}
			require.NoError(testInstance, branchError)
			require.Equal(testInstance, testCase.expectedBranch, branchName)
			require.Equal(testInstance, "0", testCase.executor.recordedDetails[0].EnvironmentVariables["GIT_TERMINAL_PROMPT"])
		})
	}
}

func TestRepositoryOperationsRequirePath(testInstance *testing.T) {
	manager, creationError := gitrepo.NewRepositoryManager(&stubGitExecutor{})
	require.NoError(testInstance, creationError)

	_, branchError := manager.GetCurrentBranch(context.Background(), "  ")
	require.IsType(testInstance, gitrepo.InvalidRepositoryInputError{}, branchError)

	_, rootError := manager.GetRepositoryRoot(context.Background(), "")
	require.IsType(testInstance, gitrepo.InvalidRepositoryInputError{}, rootError)
}

func TestDescribeHeadPassesTagPattern(testInstance *testing.T) {
	executor := &stubGitExecutor{executeFunc: respondWith("v1.4.0-3-gabc1234\n")}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	description, describeError := manager.DescribeHead(context.Background(), testRepositoryPathConstant, "v*")
	require.NoError(testInstance, describeError)
	require.Equal(testInstance, "v1.4.0-3-gabc1234", description)
	require.Equal(testInstance, []string{"describe", "--tags", "--long", "--abbrev=7", "--match", "v*"}, executor.recordedDetails[0].Arguments)
}

func TestDescribeHeadReportsMissingTags(testInstance *testing.T) {
	executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{}, execshell.CommandFailedError{
			Command: execshell.ShellCommand{Name: execshell.CommandGit},
			Result:  execshell.ExecutionResult{ExitCode: 128, StandardError: "fatal: No names found, cannot describe anything."},
		}
	}}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	_, describeError := manager.DescribeHead(context.Background(), testRepositoryPathConstant, "")
	require.ErrorIs(testInstance, describeError, gitrepo.ErrNoTagsFound)
}

func TestCountCommits(testInstance *testing.T) {
	executor := &stubGitExecutor{executeFunc: respondWith("42\n")}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	commitCount, countError := manager.CountCommits(context.Background(), testRepositoryPathConstant)
	require.NoError(testInstance, countError)
	require.Equal(testInstance, 42, commitCount)
	require.Equal(testInstance, []string{"rev-list", "--count", "HEAD"}, executor.recordedDetails[0].Arguments)

	garbageManager, _ := gitrepo.NewRepositoryManager(&stubGitExecutor{executeFunc: respondWith("many")})
	_, parseError := garbageManager.CountCommits(context.Background(), testRepositoryPathConstant)
	require.Error(testInstance, parseError)
	require.IsType(testInstance, gitrepo.RepositoryOperationError{}, parseError)
}
