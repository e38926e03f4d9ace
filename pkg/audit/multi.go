package audit

import (
	"errors"
	"sync"
)

// MultiWriter fans audit entries out to several loggers. It implements
// AuditLogger itself, so it can stand in wherever a single logger is
// expected.
type MultiWriter struct {
	mu      sync.RWMutex
	writers []AuditLogger
}

// NewMultiWriter creates a MultiWriter over the given loggers. Nil
// entries are dropped.
func NewMultiWriter(writers ...AuditLogger) *MultiWriter {
	valid := make([]AuditLogger, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			valid = append(valid, w)
		}
	}
	return &MultiWriter{writers: valid}
}

// Log delivers the entry to every writer. All writers receive the entry
// even when some fail; failures are joined into one error.
func (m *MultiWriter) Log(entry AuditEntry) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for _, w := range m.writers {
		if err := w.Log(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer, even when some fail to close.
func (m *MultiWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Add registers another writer. Safe to call concurrently with Log.
func (m *MultiWriter) Add(w AuditLogger) {
	if w == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writers = append(m.writers, w)
}

// Remove removes a writer, identified by pointer equality. It reports
// whether the writer was present.
func (m *MultiWriter) Remove(w AuditLogger) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, writer := range m.writers {
		if writer == w {
			m.writers = append(m.writers[:i], m.writers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of writers.
func (m *MultiWriter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.writers)
}

var _ AuditLogger = (*MultiWriter)(nil)
