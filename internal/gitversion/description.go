package gitversion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	semverPrefixConstant            = "v"
	shaPrefixConstant               = "g"
	describeSeparatorConstant       = "-"
	invalidDescriptionTemplate      = "unrecognized git describe output %q"
	invalidTagTemplate              = "tag %q is not a semantic version"
	invalidCommitCountTemplate      = "invalid commit count in %q"
	versionComponentCountConstant   = 3
	versionComponentSeparatorString = "."
)

// ErrInvalidDescription indicates git describe output that does not follow <tag>-<count>-g<sha>.
var ErrInvalidDescription = errors.New("invalid git describe output")

// Description is the parsed form of `git describe --tags --long`.
type Description struct {
	Tag             string
	Major           int
	Minor           int
	Patch           int
	PreRelease      string
	CommitsSinceTag int
	Sha             string
}

// ParseDescription splits `v1.2.3-5-gabc1234` into its tag, commit count and abbreviated sha.
// Tags are accepted with or without the leading v.
func ParseDescription(raw string) (Description, error) {
	trimmed := strings.TrimSpace(raw)
	shaSeparatorIndex := strings.LastIndex(trimmed, describeSeparatorConstant)
	if shaSeparatorIndex <= 0 {
		return Description{}, fmt.Errorf("%w: "+invalidDescriptionTemplate, ErrInvalidDescription, raw)
	}
	shaSegment := trimmed[shaSeparatorIndex+1:]
	remainder := trimmed[:shaSeparatorIndex]

	countSeparatorIndex := strings.LastIndex(remainder, describeSeparatorConstant)
	if countSeparatorIndex <= 0 || !strings.HasPrefix(shaSegment, shaPrefixConstant) {
		return Description{}, fmt.Errorf("%w: "+invalidDescriptionTemplate, ErrInvalidDescription, raw)
	}
	commitCount, countError := strconv.Atoi(remainder[countSeparatorIndex+1:])
	if countError != nil || commitCount < 0 {
		return Description{}, fmt.Errorf("%w: "+invalidCommitCountTemplate, ErrInvalidDescription, raw)
	}

	description, tagError := ParseTag(remainder[:countSeparatorIndex])
	if tagError != nil {
		return Description{}, tagError
	}
	description.CommitsSinceTag = commitCount
	description.Sha = strings.TrimPrefix(shaSegment, shaPrefixConstant)
	return description, nil
}

// ParseTag validates a version tag and extracts its numeric components.
func ParseTag(tag string) (Description, error) {
	trimmedTag := strings.TrimSpace(tag)
	candidate := trimmedTag
	if !strings.HasPrefix(candidate, semverPrefixConstant) {
		candidate = semverPrefixConstant + candidate
	}
	if !semver.IsValid(candidate) {
		return Description{}, fmt.Errorf("%w: "+invalidTagTemplate, ErrInvalidDescription, tag)
	}

	canonical := semver.Canonical(candidate)
	preRelease := semver.Prerelease(canonical)
	core := strings.TrimPrefix(strings.TrimSuffix(canonical, preRelease), semverPrefixConstant)
	components := strings.Split(core, versionComponentSeparatorString)
	if len(components) != versionComponentCountConstant {
		return Description{}, fmt.Errorf("%w: "+invalidTagTemplate, ErrInvalidDescription, tag)
	}

	numbers := make([]int, versionComponentCountConstant)
	for index, component := range components {
		number, conversionError := strconv.Atoi(component)
		if conversionError != nil {
			return Description{}, fmt.Errorf("%w: "+invalidTagTemplate, ErrInvalidDescription, tag)
		}
		numbers[index] = number
	}

	return Description{
		Tag:        trimmedTag,
		Major:      numbers[0],
		Minor:      numbers[1],
		Patch:      numbers[2],
		PreRelease: strings.TrimPrefix(preRelease, describeSeparatorConstant),
	}, nil
}
