package audit

import (
	"context"

	"github.com/google/uuid"
)

// Rotation trigger values recorded on pool.rotated entries.
const (
	TriggerManual      = "manual"
	TriggerAutoDisable = "auto_disable"
)

// Recorder emits credential pool operation events. A nil *Recorder is
// valid and records nothing, so callers can hold one unconditionally.
//
// Pool mutations log at info, balance checks at debug, failures at
// error. The trace ID is taken from the context when the request came
// through the Middleware; otherwise a fresh one is generated.
type Recorder struct {
	logger   AuditLogger
	config   *Config
	serverID string
}

// NewRecorder creates a Recorder writing to the given logger. serverID
// tags every entry's metadata; pass "" to omit it.
func NewRecorder(logger AuditLogger, config *Config, serverID string) *Recorder {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Recorder{logger: logger, config: config, serverID: serverID}
}

// CredentialDisabled records that the credential at index was disabled.
func (r *Recorder) CredentialDisabled(ctx context.Context, index int) {
	r.record(ctx, LevelInfo, NewAuditEntry(EventCredentialDisabled, "").
		WithCredential(&CredentialInfo{Index: index, Disabled: true}))
}

// CredentialEnabled records that the credential at index was re-enabled.
func (r *Recorder) CredentialEnabled(ctx context.Context, index int) {
	r.record(ctx, LevelInfo, NewAuditEntry(EventCredentialEnabled, "").
		WithCredential(&CredentialInfo{Index: index}))
}

// PriorityChanged records a priority update.
func (r *Recorder) PriorityChanged(ctx context.Context, index, priority int) {
	r.record(ctx, LevelInfo, NewAuditEntry(EventPriorityChanged, "").
		WithCredential(&CredentialInfo{Index: index, Priority: priority}))
}

// CredentialReset records a failure-count reset.
func (r *Recorder) CredentialReset(ctx context.Context, index int) {
	r.record(ctx, LevelInfo, NewAuditEntry(EventCredentialReset, "").
		WithCredential(&CredentialInfo{Index: index}))
}

// BalanceChecked records an upstream balance lookup.
func (r *Recorder) BalanceChecked(ctx context.Context, index int) {
	r.record(ctx, LevelDebug, NewAuditEntry(EventBalanceChecked, "").
		WithCredential(&CredentialInfo{Index: index}))
}

// PoolRotated records a change of current credential. trigger is one of
// the Trigger constants.
func (r *Recorder) PoolRotated(ctx context.Context, previousIndex, currentIndex int, trigger string) {
	r.record(ctx, LevelInfo, NewAuditEntry(EventPoolRotated, "").
		WithRotation(&RotationInfo{
			PreviousIndex: previousIndex,
			CurrentIndex:  currentIndex,
			Trigger:       trigger,
		}))
}

// OperationFailed records a failed pool operation. operation names the
// attempted action ("disable", "priority", "reset", "balance",
// "rotate"); code carries the classified error code.
func (r *Recorder) OperationFailed(ctx context.Context, operation string, index int, code, message string) {
	entry := NewAuditEntry(EventError, "").
		WithCredential(&CredentialInfo{Index: index}).
		WithError(code, message)
	entry.Metadata.Tags = map[string]string{"operation": operation}
	r.record(ctx, LevelError, entry)
}

func (r *Recorder) record(ctx context.Context, level string, entry *AuditEntry) {
	if r == nil || !levelEnabled(r.config, level) {
		return
	}

	entry.TraceID = TraceIDFromContext(ctx)
	if entry.TraceID == "" {
		entry.TraceID = uuid.NewString()
	}

	if r.serverID != "" {
		if entry.Metadata == nil {
			entry.Metadata = &EntryMetadata{}
		}
		entry.Metadata.ServerID = r.serverID
	}

	if redactor := RegisteredRedactor(); redactor != nil {
		entry = redactor(entry)
	}

	// Audit failures must never fail the operation being audited.
	_ = r.logger.Log(*entry)
}
