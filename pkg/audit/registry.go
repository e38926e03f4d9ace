package audit

import "sync"

// WriterFactory builds an AuditLogger from an extension config block.
type WriterFactory func(config map[string]any) (AuditLogger, error)

// RedactorFunc rewrites an entry before it is logged, typically to
// strip tokens or other sensitive values.
type RedactorFunc func(entry *AuditEntry) *AuditEntry

var (
	registryMu         sync.RWMutex
	registeredWriters  = make(map[string]WriterFactory)
	registeredRedactor RedactorFunc
)

// RegisterWriter makes a writer factory available under the given name.
// Writers are instantiated by NewLogger for each matching Extensions
// key.
func RegisterWriter(name string, factory WriterFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registeredWriters[name] = factory
}

// RegisterRedactor installs the redactor applied to every entry before
// logging. Only one redactor can be active.
func RegisterRedactor(fn RedactorFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registeredRedactor = fn
}

// RegisteredWriter looks up a writer factory by name.
func RegisteredWriter(name string) (WriterFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registeredWriters[name]
	return f, ok
}

// RegisteredRedactor returns the active redactor, or nil.
func RegisteredRedactor() RedactorFunc {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registeredRedactor
}
