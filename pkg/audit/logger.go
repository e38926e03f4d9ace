package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// AuditLogger is the sink for audit entries.
type AuditLogger interface {
	// Log records an audit entry. Implementations must be safe for
	// concurrent use.
	Log(entry AuditEntry) error

	// Close releases any resources held by the logger.
	Close() error
}

var errLoggerClosed = errors.New("audit: logger is closed")

// NoOpLogger discards all entries. Used when audit logging is disabled.
type NoOpLogger struct{}

// Log discards the entry.
func (*NoOpLogger) Log(AuditEntry) error { return nil }

// Close is a no-op.
func (*NoOpLogger) Close() error { return nil }

var _ AuditLogger = (*NoOpLogger)(nil)

// FileLogger writes entries as JSON lines to a file. With a rotation
// limit set, an entry that would push the file past the limit first
// renames it to <path>.1 and starts a fresh file; one rotated file is
// kept.
type FileLogger struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	size     int64
	maxBytes int64
	sequence int64
}

// NewFileLogger opens path for appending, creating it if needed.
// Rotation is disabled.
func NewFileLogger(path string) (*FileLogger, error) {
	return newFileLogger(path, 0)
}

// NewRotatingFileLogger is like NewFileLogger but rotates the file once
// it would exceed maxBytes.
func NewRotatingFileLogger(path string, maxBytes int64) (*FileLogger, error) {
	return newFileLogger(path, maxBytes)
}

func newFileLogger(path string, maxBytes int64) (*FileLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("audit: stat log file: %w", err)
	}

	return &FileLogger{
		path:     path,
		file:     file,
		size:     info.Size(),
		maxBytes: maxBytes,
	}, nil
}

// Log writes the entry as one JSON line. The Sequence field is assigned
// here and keeps counting across rotations.
func (l *FileLogger) Log(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errLoggerClosed
	}

	l.sequence++
	entry.Sequence = l.sequence

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}
	line = append(line, '\n')

	if l.maxBytes > 0 && l.size > 0 && l.size+int64(len(line)) > l.maxBytes {
		if err := l.rotate(); err != nil {
			return err
		}
	}

	n, err := l.file.Write(line)
	l.size += int64(n)
	if err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}

	return nil
}

// rotate is called with the mutex held.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		l.file = nil
		return fmt.Errorf("audit: rotate: %w", err)
	}

	if err := os.Rename(l.path, l.path+".1"); err != nil {
		l.file = nil
		return fmt.Errorf("audit: rotate: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		l.file = nil
		return fmt.Errorf("audit: rotate: %w", err)
	}

	l.file = file
	l.size = 0
	return nil
}

// Close flushes and closes the underlying file. Closing twice is safe.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	_ = l.file.Sync()
	err := l.file.Close()
	l.file = nil
	return err
}

var _ AuditLogger = (*FileLogger)(nil)

// StdoutLogger writes entries as JSON lines to stdout, for deployments
// where logs are collected from the container output.
type StdoutLogger struct {
	mu       sync.Mutex
	enc      *json.Encoder
	sequence int64
}

// NewStdoutLogger creates a StdoutLogger.
func NewStdoutLogger() *StdoutLogger {
	return &StdoutLogger{enc: json.NewEncoder(os.Stdout)}
}

// Log writes the entry as one JSON line to stdout.
func (l *StdoutLogger) Log(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sequence++
	entry.Sequence = l.sequence

	if err := l.enc.Encode(entry); err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}
	return nil
}

// Close is a no-op for the stdout logger.
func (*StdoutLogger) Close() error { return nil }

var _ AuditLogger = (*StdoutLogger)(nil)

// NewLogger builds an AuditLogger from the configuration. Disabled or
// nil configs yield a NoOpLogger. When extension writers are configured
// alongside the file or stdout output, entries fan out to all of them.
func NewLogger(config *Config) (AuditLogger, error) {
	if config == nil || !config.Enabled {
		return &NoOpLogger{}, nil
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	var writers []AuditLogger

	if config.OutputFile != "" {
		fileLogger, err := NewRotatingFileLogger(config.OutputFile, int64(config.MaxFileSizeMB)<<20)
		if err != nil {
			return nil, err
		}
		writers = append(writers, fileLogger)
	} else {
		writers = append(writers, NewStdoutLogger())
	}

	for name, raw := range config.Extensions {
		factory, ok := RegisteredWriter(name)
		if !ok {
			continue
		}
		extConfig, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		writer, err := factory(extConfig)
		if err != nil {
			for _, w := range writers {
				_ = w.Close()
			}
			return nil, err
		}
		writers = append(writers, writer)
	}

	if len(writers) == 1 {
		return writers[0], nil
	}
	return NewMultiWriter(writers...), nil
}
