package utils_test

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/buildgraph/internal/utils"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("terminal closed")
}

func TestFlushingWriterStreamsToolOutputLineByLine(testInstance *testing.T) {
	var terminal bytes.Buffer
	buffered := bufio.NewWriterSize(&terminal, 4096)
	writer := utils.NewFlushingWriter(buffered)

	toolOutput := []string{
		"  Determining projects to restore...\n",
		"  Hello -> /src/Hello/bin/Release/net8.0/Hello.dll\n",
		"  Successfully created package '/src/.artifacts/Hello.1.2.3.nupkg'.\n",
	}
	streamed := ""
	for _, line := range toolOutput {
		bytesWritten, writeError := writer.Write([]byte(line))
		require.NoError(testInstance, writeError)
		require.Equal(testInstance, len(line), bytesWritten)

		streamed += line
		require.Equal(testInstance, streamed, terminal.String())
		require.Zero(testInstance, buffered.Buffered())
	}
}

func TestFlushingWriterReportsFlushFailure(testInstance *testing.T) {
	writer := utils.NewFlushingWriter(bufio.NewWriter(failingWriter{}))

	bytesWritten, writeError := writer.Write([]byte("Build succeeded.\n"))
	require.EqualError(testInstance, writeError, "terminal closed")
	require.Equal(testInstance, len("Build succeeded.\n"), bytesWritten)
}

func TestFlushingWriterPassesThroughUnbufferedWriters(testInstance *testing.T) {
	var errorStream bytes.Buffer
	writer := utils.NewFlushingWriter(&errorStream)

	_, writeError := writer.Write([]byte("error NU1101: Unable to find package\n"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, "error NU1101: Unable to find package\n", errorStream.String())
}
