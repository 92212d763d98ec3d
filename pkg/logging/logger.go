package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/fatih/color"
)

// writer is an io.Writer that splits its input stream into lines and writes
// those lines to an underlying logger.
type writer struct {
	// callback is the logging callback.
	callback func(string)
	// buffer is any incomplete line fragment left over from a previous write.
	buffer []byte
}

// trimCarriageReturn trims any single trailing carriage return from the end of
// a byte slice.
func trimCarriageReturn(buffer []byte) []byte {
	if len(buffer) > 0 && buffer[len(buffer)-1] == '\r' {
		return buffer[:len(buffer)-1]
	}
	return buffer
}

// Write implements io.Writer.Write.
func (w *writer) Write(buffer []byte) (int, error) {
	// Append the data to our internal buffer.
	w.buffer = append(w.buffer, buffer...)

	// Process all complete lines in the buffer, tracking the number of bytes
	// that we process.
	var processed int
	remaining := w.buffer
	for {
		// Find the index of the next newline character.
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}

		// Process the line.
		w.callback(string(trimCarriageReturn(remaining[:index])))

		// Update the number of bytes that we've processed.
		processed += index + 1

		// Update the remaining slice.
		remaining = remaining[index+1:]
	}

	// If we managed to process bytes, then truncate our internal buffer.
	if processed > 0 {
		leftover := len(w.buffer) - processed
		if leftover > 0 {
			copy(w.buffer[:leftover], w.buffer[processed:])
		}
		w.buffer = w.buffer[:leftover]
	}

	// Done.
	return len(buffer), nil
}

// currentLevel is the current log level for the process.
var currentLevel = LevelInfo

// SetLevel sets the log level for the process. It is not safe for concurrent
// invocation with any logging operation and should be called once at startup.
func SetLevel(level Level) {
	currentLevel = level
}

// Logger is the main logger type. It has the novel property that it still
// functions if nil, but it doesn't log anything. It is designed to use the
// standard logger provided by the log package, so it respects any flags set
// for that logger. It is safe for concurrent usage.
type Logger struct {
	// prefix is any prefix specified for the logger.
	prefix string
}

// RootLogger is the root logger from which all other loggers derive.
var RootLogger = &Logger{}

// Sublogger creates a new sublogger with the specified name.
func (l *Logger) Sublogger(name string) *Logger {
	// If the logger is nil, then the sublogger will be as well.
	if l == nil {
		return nil
	}

	// Compute the new prefix.
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}

	// Create the new logger.
	return &Logger{
		prefix: prefix,
	}
}

// output is the internal logging method.
func (l *Logger) output(calldepth int, line string) {
	// Add a prefix if necessary.
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}

	// Log.
	log.Output(calldepth, line)
}

// Info logs information with semantics equivalent to fmt.Print.
func (l *Logger) Info(v ...interface{}) {
	if l != nil && currentLevel >= LevelInfo {
		l.output(3, fmt.Sprint(v...))
	}
}

// Infof logs information with semantics equivalent to fmt.Printf.
func (l *Logger) Infof(format string, v ...interface{}) {
	if l != nil && currentLevel >= LevelInfo {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Debug logs debugging information with semantics equivalent to fmt.Print.
func (l *Logger) Debug(v ...interface{}) {
	if l != nil && currentLevel >= LevelDebug {
		l.output(3, fmt.Sprint(v...))
	}
}

// Debugf logs debugging information with semantics equivalent to fmt.Printf.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l != nil && currentLevel >= LevelDebug {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Trace logs low-level information with semantics equivalent to fmt.Print.
func (l *Logger) Trace(v ...interface{}) {
	if l != nil && currentLevel >= LevelTrace {
		l.output(3, fmt.Sprint(v...))
	}
}

// Tracef logs low-level information with semantics equivalent to fmt.Printf.
func (l *Logger) Tracef(format string, v ...interface{}) {
	if l != nil && currentLevel >= LevelTrace {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Warn logs error information with a warning prefix and yellow color.
func (l *Logger) Warn(err error) {
	if l != nil && currentLevel >= LevelWarn {
		l.output(3, color.YellowString("Warning: %v", err))
	}
}

// Warnf logs a warning message with a warning prefix and yellow color.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l != nil && currentLevel >= LevelWarn {
		l.output(3, color.YellowString("Warning: "+format, v...))
	}
}

// Error logs error information with an error prefix and red color.
func (l *Logger) Error(err error) {
	if l != nil && currentLevel >= LevelError {
		l.output(3, color.RedString("Error: %v", err))
	}
}

// Errorf logs an error message with an error prefix and red color.
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l != nil && currentLevel >= LevelError {
		l.output(3, color.RedString("Error: "+format, v...))
	}
}

// Writer returns an io.Writer that writes lines using Info.
func (l *Logger) Writer() io.Writer {
	// If the logger is nil, then we can just discard input since it won't be
	// logged anyway. This saves us the overhead of scanning lines.
	if l == nil {
		return io.Discard
	}

	// Create the writer.
	return &writer{
		callback: func(s string) {
			l.Info(s)
		},
	}
}
