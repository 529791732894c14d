package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithConfigurationFilePathStoresValue(t *testing.T) {
	accessor := NewCommandContextAccessor()
	enriched := accessor.WithConfigurationFilePath(context.Background(), "/etc/buildgraph/config.yaml")

	configurationFilePath, exists := accessor.ConfigurationFilePath(enriched)
	require.True(t, exists)
	require.Equal(t, "/etc/buildgraph/config.yaml", configurationFilePath)
}

func TestWithLogLevelSkipsBlankValues(t *testing.T) {
	accessor := NewCommandContextAccessor()
	enriched := accessor.WithLogLevel(context.Background(), "   ")

	_, exists := accessor.LogLevel(enriched)
	require.False(t, exists)
}

func TestWithLogLevelStoresTrimmedValue(t *testing.T) {
	accessor := NewCommandContextAccessor()
	enriched := accessor.WithLogLevel(context.Background(), " debug ")

	logLevel, exists := accessor.LogLevel(enriched)
	require.True(t, exists)
	require.Equal(t, "debug", logLevel)
}

func TestWithRunOptionsStoresNormalizedValues(t *testing.T) {
	accessor := NewCommandContextAccessor()
	enriched := accessor.WithRunOptions(context.Background(), RunOptions{Goal: " pack ", VerifyProduces: true, ReportPath: " report.yaml "})

	options, exists := accessor.RunOptions(enriched)
	require.True(t, exists)
	require.Equal(t, "pack", options.Goal)
	require.True(t, options.VerifyProduces)
	require.False(t, options.PlanOnly)
	require.Equal(t, "report.yaml", options.ReportPath)
}

func TestRunOptionsHandlesMissingContext(t *testing.T) {
	accessor := NewCommandContextAccessor()

	_, exists := accessor.RunOptions(context.Background())
	require.False(t, exists)
}
