// Package gitversion derives package and assembly version strings from repository tags.
package gitversion

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
	"github.com/tyemirov/buildgraph/internal/gitrepo"
)

const (
	initialMajorConstant            = 0
	initialMinorConstant            = 1
	initialPatchConstant            = 0
	fallbackBranchLabelConstant     = "ci"
	informationalTemplateConstant   = "%s+%d.Branch.%s.Sha.%s"
	assemblyVersionTemplateConstant = "%d.%d.%d.0"
	coreVersionTemplateConstant     = "%d.%d.%d"
	unknownBranchNameConstant       = "unknown"
)

var mainlineBranchNames = []string{"main", "master"}

// RepositoryReader exposes the repository queries the calculator needs.
type RepositoryReader interface {
	DescribeHead(executionContext context.Context, repositoryPath string, tagPattern string) (string, error)
	GetHeadCommit(executionContext context.Context, repositoryPath string) (string, error)
	CountCommits(executionContext context.Context, repositoryPath string) (int, error)
}

// Calculator computes version strings.
type Calculator struct {
	reader     RepositoryReader
	tagPattern string
	logger     *zap.Logger
}

// NewCalculator builds a Calculator; tagPattern restricts which tags count as releases.
func NewCalculator(reader RepositoryReader, tagPattern string, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{reader: reader, tagPattern: tagPattern, logger: logger}
}

// Calculate resolves the version of the repository at repositoryPath built from branch.
func (calculator *Calculator) Calculate(executionContext context.Context, repositoryPath string, branch string) (buildcontext.VersionInfo, error) {
	description, describeError := calculator.describe(executionContext, repositoryPath)
	if describeError != nil {
		return buildcontext.VersionInfo{}, describeError
	}

	versionInfo := Derive(description, branch)
	calculator.logger.Debug("version calculated",
		zap.String("tag", description.Tag),
		zap.Int("commits_since_tag", description.CommitsSinceTag),
		zap.String("semver", versionInfo.SemVer),
		zap.String("informational_version", versionInfo.InformationalVersion),
	)
	return versionInfo, nil
}

func (calculator *Calculator) describe(executionContext context.Context, repositoryPath string) (Description, error) {
	rawDescription, describeError := calculator.reader.DescribeHead(executionContext, repositoryPath, calculator.tagPattern)
	if describeError == nil {
		return ParseDescription(rawDescription)
	}
	if !errors.Is(describeError, gitrepo.ErrNoTagsFound) {
		return Description{}, describeError
	}

	calculator.logger.Debug("no version tags found; starting from initial version", zap.String("path", repositoryPath))
	sha, shaError := calculator.reader.GetHeadCommit(executionContext, repositoryPath)
	if shaError != nil {
		return Description{}, shaError
	}
	commitCount, countError := calculator.reader.CountCommits(executionContext, repositoryPath)
	if countError != nil {
		return Description{}, countError
	}
	return Description{
		Major:           initialMajorConstant,
		Minor:           initialMinorConstant,
		Patch:           initialPatchConstant,
		CommitsSinceTag: commitCount,
		Sha:             sha,
	}, nil
}

// Derive computes the version strings for a parsed description on the given branch.
// A tagged commit keeps the tag version; later commits bump the patch and, off the mainline, carry a branch pre-release label.
// Untagged repositories start at 0.1.0.
func Derive(description Description, branch string) buildcontext.VersionInfo {
	major, minor, patch := description.Major, description.Minor, description.Patch
	preRelease := description.PreRelease
	isTagged := len(description.Tag) > 0

	if isTagged && description.CommitsSinceTag > 0 && len(preRelease) == 0 {
		patch++
	}
	if (!isTagged || description.CommitsSinceTag > 0) && !isMainlineBranch(branch) {
		preRelease = BranchLabel(branch) + "." + strconv.Itoa(description.CommitsSinceTag)
	}

	coreVersion := fmt.Sprintf(coreVersionTemplateConstant, major, minor, patch)
	semVer := coreVersion
	if len(preRelease) > 0 {
		semVer = coreVersion + "-" + preRelease
	}

	branchName := strings.TrimSpace(branch)
	if len(branchName) == 0 {
		branchName = unknownBranchNameConstant
	}

	assemblyVersion := fmt.Sprintf(assemblyVersionTemplateConstant, major, minor, patch)
	return buildcontext.VersionInfo{
		SemVer:               semVer,
		NuGetVersionV2:       semVer,
		AssemblySemVer:       assemblyVersion,
		AssemblySemFileVer:   assemblyVersion,
		InformationalVersion: fmt.Sprintf(informationalTemplateConstant, semVer, description.CommitsSinceTag, branchName, description.Sha),
		Sha:                  description.Sha,
		CommitsSinceTag:      description.CommitsSinceTag,
	}
}

// BranchLabel converts a branch name into a pre-release identifier: lower case, alphanumerics and hyphens only.
func BranchLabel(branch string) string {
	var builder strings.Builder
	lastWasHyphen := false
	for _, character := range strings.ToLower(strings.TrimSpace(branch)) {
		isAlphanumeric := (character >= 'a' && character <= 'z') || (character >= '0' && character <= '9')
		if isAlphanumeric {
			builder.WriteRune(character)
			lastWasHyphen = false
			continue
		}
		if !lastWasHyphen && builder.Len() > 0 {
			builder.WriteByte('-')
			lastWasHyphen = true
		}
	}
	label := strings.TrimSuffix(builder.String(), "-")
	if len(label) == 0 {
		return fallbackBranchLabelConstant
	}
	return label
}

func isMainlineBranch(branch string) bool {
	for _, mainlineBranchName := range mainlineBranchNames {
		if strings.EqualFold(strings.TrimSpace(branch), mainlineBranchName) {
			return true
		}
	}
	return false
}
