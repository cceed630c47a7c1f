package midi

import (
	"fmt"
	"io"
	"log/slog"
)

// Sink receives formatted log lines: mirrored output messages and, when
// input logging is on, input event descriptions.
type Sink interface {
	Log(line string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string)

// Log calls f(line).
func (f SinkFunc) Log(line string) { f(line) }

// WriterSink writes each line to w.
type WriterSink struct {
	W io.Writer
}

// Log writes line followed by a newline. Write errors are dropped.
func (s WriterSink) Log(line string) {
	fmt.Fprintln(s.W, line)
}

// SlogSink logs each line at Info level.
type SlogSink struct {
	Logger *slog.Logger
}

// Log emits line under the "line" attribute.
func (s SlogSink) Log(line string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("midi", "line", line)
}

// DiscardSink drops every line.
var DiscardSink = SinkFunc(func(string) {})
