package cli

import (
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
	"github.com/tyemirov/buildgraph/internal/buildplan"
	flagutils "github.com/tyemirov/buildgraph/internal/utils/flags"
)

const (
	buildConfigurationKeyConstant       = "build"
	buildGoalKeyConstant                = "goal"
	buildConfigurationModeKeyConstant   = "configuration"
	buildRootDirectoryKeyConstant       = "root_directory"
	buildProjectKeyConstant             = "project"
	buildArtifactsDirectoryKeyConstant  = "artifacts_directory"
	buildArtifactsTypeKeyConstant       = "artifacts_type"
	buildExcludedArtifactsKeyConstant   = "excluded_artifacts_type"
	buildNuGetFeedKeyConstant           = "nuget_feed"
	buildNuGetAPIKeyKeyConstant         = "nuget_api_key"
	buildCopyrightKeyConstant           = "copyright"
	buildTagPatternKeyConstant          = "tag_pattern"
	buildVerifyProducesKeyConstant      = "verify_produces"
	buildReportKeyConstant              = "report"
	buildOverrideDecodeErrorTemplate    = "unable to apply build flags: %w"
	buildOverrideDecoderErrorTemplate   = "unable to prepare build flag decoder: %w"
	buildConfigurationInvalidTemplate   = "invalid build configuration: %w"
	configurationFlagNameConstant       = "configuration"
	projectFlagNameConstant             = "project"
	rootDirectoryFlagNameConstant       = "root"
	artifactsDirectoryFlagNameConstant  = "artifacts-directory"
	artifactsTypeFlagNameConstant       = "artifacts-type"
	excludedArtifactsFlagNameConstant   = "excluded-artifacts-type"
	nugetFeedFlagNameConstant           = "nuget-feed"
	nugetAPIKeyFlagNameConstant         = "nuget-api-key"
	copyrightFlagNameConstant           = "copyright"
	tagPatternFlagNameConstant          = "tag-pattern"
	verifyProducesFlagNameConstant      = "verify-produces"
	planFlagNameConstant                = "plan"
	reportFlagNameConstant              = "report"
	configurationFlagUsageConstant      = "Build configuration (Debug or Release). Defaults to Debug locally and Release on a CI server."
	projectFlagUsageConstant            = "Project or solution file passed to dotnet."
	rootDirectoryFlagUsageConstant      = "Repository root used for git metadata and relative paths."
	artifactsDirectoryFlagUsageConstant = "Directory receiving packed artifacts."
	artifactsTypeFlagUsageConstant      = "Glob selecting packed artifacts (for example *.nupkg)."
	excludedArtifactsFlagUsageConstant  = "File suffix excluded from publishing (for example .symbols.nupkg)."
	nugetFeedFlagUsageConstant          = "NuGet feed URL used by publish-nuget."
	nugetAPIKeyFlagUsageConstant        = "NuGet API key used by publish-nuget."
	copyrightFlagUsageConstant          = "Copyright stamped into packages."
	tagPatternFlagUsageConstant         = "Glob restricting which git tags count as versions."
	verifyProducesFlagUsageConstant     = "Fail tasks whose declared outputs are missing after they succeed."
	planFlagUsageConstant               = "Print the execution plan without running any task."
	reportFlagUsageConstant             = "Write a YAML run report to the given path."
)

var buildConfigurationKeysByFlagName = map[string]string{
	configurationFlagNameConstant:      buildConfigurationModeKeyConstant,
	projectFlagNameConstant:            buildProjectKeyConstant,
	rootDirectoryFlagNameConstant:      buildRootDirectoryKeyConstant,
	artifactsDirectoryFlagNameConstant: buildArtifactsDirectoryKeyConstant,
	artifactsTypeFlagNameConstant:      buildArtifactsTypeKeyConstant,
	excludedArtifactsFlagNameConstant:  buildExcludedArtifactsKeyConstant,
	nugetFeedFlagNameConstant:          buildNuGetFeedKeyConstant,
	nugetAPIKeyFlagNameConstant:        buildNuGetAPIKeyKeyConstant,
	copyrightFlagNameConstant:          buildCopyrightKeyConstant,
	tagPatternFlagNameConstant:         buildTagPatternKeyConstant,
	verifyProducesFlagNameConstant:     buildVerifyProducesKeyConstant,
	reportFlagNameConstant:             buildReportKeyConstant,
}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Build  BuildConfiguration             `mapstructure:"build"`
}

// ApplicationCommonConfiguration stores logging defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// BuildConfiguration holds the build parameters after configuration file and environment layering.
type BuildConfiguration struct {
	Goal                  string `mapstructure:"goal"`
	Configuration         string `mapstructure:"configuration"`
	RootDirectory         string `mapstructure:"root_directory"`
	Project               string `mapstructure:"project"`
	ArtifactsDirectory    string `mapstructure:"artifacts_directory"`
	ArtifactsType         string `mapstructure:"artifacts_type"`
	ExcludedArtifactsType string `mapstructure:"excluded_artifacts_type"`
	NuGetFeed             string `mapstructure:"nuget_feed"`
	NuGetAPIKey           string `mapstructure:"nuget_api_key"`
	Copyright             string `mapstructure:"copyright"`
	TagPattern            string `mapstructure:"tag_pattern"`
	VerifyProduces        bool   `mapstructure:"verify_produces"`
	Report                string `mapstructure:"report"`
}

// ResolveGoal picks the goal from the positional argument, then configuration, then the default target.
func (configuration BuildConfiguration) ResolveGoal(arguments []string) string {
	if len(arguments) > 0 {
		if trimmed := strings.TrimSpace(arguments[0]); len(trimmed) > 0 {
			return trimmed
		}
	}
	if trimmed := strings.TrimSpace(configuration.Goal); len(trimmed) > 0 {
		return trimmed
	}
	return buildplan.DefaultGoal
}

// Parameters converts the configuration into build parameters. An empty configuration name resolves to fallback.
func (configuration BuildConfiguration) Parameters(fallback buildcontext.Configuration) (buildcontext.Parameters, error) {
	buildMode, parseError := buildcontext.ParseConfiguration(configuration.Configuration, fallback)
	if parseError != nil {
		return buildcontext.Parameters{}, fmt.Errorf(buildConfigurationInvalidTemplate, parseError)
	}
	return buildcontext.Parameters{
		Configuration:         buildMode,
		RootDirectory:         strings.TrimSpace(configuration.RootDirectory),
		ProjectPath:           strings.TrimSpace(configuration.Project),
		ArtifactsDirectory:    strings.TrimSpace(configuration.ArtifactsDirectory),
		ArtifactsType:         strings.TrimSpace(configuration.ArtifactsType),
		ExcludedArtifactsType: strings.TrimSpace(configuration.ExcludedArtifactsType),
		NuGetFeed:             strings.TrimSpace(configuration.NuGetFeed),
		NuGetAPIKey:           strings.TrimSpace(configuration.NuGetAPIKey),
		Copyright:             strings.TrimSpace(configuration.Copyright),
	}, nil
}

// applyBuildFlagOverrides layers explicitly set build flags over the loaded configuration.
func applyBuildFlagOverrides(command *cobra.Command, configuration BuildConfiguration) (BuildConfiguration, error) {
	overrides := flagutils.ChangedValues(command, buildConfigurationKeysByFlagName)
	if len(overrides) == 0 {
		return configuration, nil
	}

	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &configuration,
	})
	if decoderError != nil {
		return BuildConfiguration{}, fmt.Errorf(buildOverrideDecoderErrorTemplate, decoderError)
	}
	if decodeError := decoder.Decode(overrides); decodeError != nil {
		return BuildConfiguration{}, fmt.Errorf(buildOverrideDecodeErrorTemplate, decodeError)
	}
	return configuration, nil
}

func bindBuildFlags(command *cobra.Command) {
	flagSet := command.PersistentFlags()
	flagSet.String(configurationFlagNameConstant, "", configurationFlagUsageConstant)
	flagSet.String(projectFlagNameConstant, "", projectFlagUsageConstant)
	flagSet.String(rootDirectoryFlagNameConstant, "", rootDirectoryFlagUsageConstant)
	flagSet.String(artifactsDirectoryFlagNameConstant, "", artifactsDirectoryFlagUsageConstant)
	flagSet.String(artifactsTypeFlagNameConstant, "", artifactsTypeFlagUsageConstant)
	flagSet.String(excludedArtifactsFlagNameConstant, "", excludedArtifactsFlagUsageConstant)
	flagSet.String(nugetFeedFlagNameConstant, "", nugetFeedFlagUsageConstant)
	flagSet.String(nugetAPIKeyFlagNameConstant, "", nugetAPIKeyFlagUsageConstant)
	flagSet.String(copyrightFlagNameConstant, "", copyrightFlagUsageConstant)
	flagSet.String(tagPatternFlagNameConstant, "", tagPatternFlagUsageConstant)
	flagSet.Bool(verifyProducesFlagNameConstant, false, verifyProducesFlagUsageConstant)
	flagSet.Bool(planFlagNameConstant, false, planFlagUsageConstant)
	flagSet.String(reportFlagNameConstant, "", reportFlagUsageConstant)
}
