package utils

import "io"

type flusher interface {
	Flush() error
}

type flushingWriter struct {
	writer io.Writer
}

// NewFlushingWriter wraps writer so buffered destinations are flushed after every write.
func NewFlushingWriter(writer io.Writer) io.Writer {
	return flushingWriter{writer: writer}
}

func (wrapper flushingWriter) Write(data []byte) (int, error) {
	bytesWritten, writeError := wrapper.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	if flushable, ok := wrapper.writer.(flusher); ok {
		if flushError := flushable.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}
	return bytesWritten, nil
}
