package buildcontext

import (
	"fmt"
	"strings"
)

// Configuration is the build mode passed to the toolchain.
type Configuration string

// Supported build configurations.
const (
	ConfigurationDebug   Configuration = "Debug"
	ConfigurationRelease Configuration = "Release"
)

const unsupportedConfigurationTemplateConstant = "unsupported configuration %q (expected Debug or Release)"

// ParseConfiguration normalizes a configuration name case-insensitively.
// An empty value resolves to fallback.
func ParseConfiguration(raw string, fallback Configuration) (Configuration, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fallback, nil
	}
	switch {
	case strings.EqualFold(trimmed, string(ConfigurationDebug)):
		return ConfigurationDebug, nil
	case strings.EqualFold(trimmed, string(ConfigurationRelease)):
		return ConfigurationRelease, nil
	default:
		return "", fmt.Errorf(unsupportedConfigurationTemplateConstant, raw)
	}
}

// DefaultConfiguration mirrors the convention of debug builds locally and release builds on a CI server.
func DefaultConfiguration(environment CIEnvironment) Configuration {
	if environment.IsServerBuild {
		return ConfigurationRelease
	}
	return ConfigurationDebug
}
