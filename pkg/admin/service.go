package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/creddhq/credd/pkg/api/types"
	"github.com/creddhq/credd/pkg/audit"
	"github.com/creddhq/credd/pkg/logging"
	"github.com/creddhq/credd/pkg/metrics"
	"github.com/creddhq/credd/pkg/pool"
)

// Service implements the admin operations over a pool.Manager. It holds no
// pool state of its own: every operation starts from a fresh snapshot and
// every mutation goes straight to the facade, so concurrency safety is the
// daemon's responsibility (it swaps snapshots atomically).
type Service struct {
	pool   pool.Manager
	logger *slog.Logger
	audit  *audit.Recorder
}

// NewService creates a Service over the given facade. A nil manager falls
// back to an empty pool; a nil recorder disables auditing.
func NewService(mgr pool.Manager, logger *slog.Logger, rec *audit.Recorder) *Service {
	if mgr == nil {
		mgr = &pool.NoopManager{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{pool: mgr, logger: logger, audit: rec}
}

// Credentials returns the pool-wide listing in snapshot order. Exactly one
// item is current whenever the snapshot's current index resolves to an
// entry; a stale index yields zero current items, which the UI tolerates
// as a transient.
func (s *Service) Credentials(ctx context.Context) (*types.CredentialListResponse, error) {
	snap, err := s.pool.Snapshot(ctx)
	if err != nil {
		return nil, s.failRead("list", err, &InternalError{Message: err.Error()})
	}
	countOp("list", nil)
	recordPoolGauges(snap)
	return listResponse(snap), nil
}

// listResponse projects a snapshot into the wire listing. The event
// stream reuses it so stream payloads and GET /api/credentials agree
// byte for byte.
func listResponse(snap *pool.Snapshot) *types.CredentialListResponse {
	items := make([]*types.CredentialStatus, 0, len(snap.Entries))
	for i := range snap.Entries {
		items = append(items, credentialStatus(&snap.Entries[i], snap.CurrentIndex))
	}
	return &types.CredentialListResponse{
		Total:        snap.Total,
		Available:    snap.Available,
		CurrentIndex: snap.CurrentIndex,
		Credentials:  items,
	}
}

// Credential returns the listing view of a single credential.
func (s *Service) Credential(ctx context.Context, index int) (*types.CredentialStatus, error) {
	snap, err := s.pool.Snapshot(ctx)
	if err != nil {
		return nil, s.failRead("get", err, &InternalError{Message: err.Error()})
	}

	entry := snap.Entry(index)
	if entry == nil {
		raw := pool.Errorf(pool.CodeIndexOutOfRange, "no credential at index %d", index)
		return nil, s.failRead("get", raw, &NotFoundError{Index: index, Total: snap.Total})
	}
	countOp("get", nil)
	return credentialStatus(entry, snap.CurrentIndex), nil
}

// SetDisabled flips the disabled flag on one credential. When the current
// credential is being disabled, a detached best-effort rotation follows:
// its failure is logged and dropped, never surfaced, so disabling the last
// enabled credential still succeeds.
//
// The snapshot is read before the mutation so the failover decision and
// error context use the pre-mutation view. A concurrent rotation between
// that read and the mutation can make the failover fire on a stale
// condition; the switch is best-effort, so that is tolerated.
func (s *Service) SetDisabled(ctx context.Context, index int, disabled bool) error {
	op := "disable"
	if !disabled {
		op = "enable"
	}

	snap, err := s.pool.Snapshot(ctx)
	if err != nil {
		return s.fail(ctx, op, index, err, &InternalError{Message: err.Error()})
	}

	if err := s.pool.SetDisabled(ctx, index, disabled); err != nil {
		return s.fail(ctx, op, index, err, classifySimple(err, index, snap.Total))
	}
	countOp(op, nil)

	if disabled {
		s.audit.CredentialDisabled(ctx, index)
	} else {
		s.audit.CredentialEnabled(ctx, index)
	}

	if disabled && index == snap.CurrentIndex {
		// Detached: the rotation must not delay or fail the disable
		// response, and must survive the request context ending.
		go s.failover(context.WithoutCancel(ctx), index)
	}
	return nil
}

// failover rotates away from a just-disabled current credential.
func (s *Service) failover(ctx context.Context, previous int) {
	next, err := s.pool.SwitchToNext(ctx)
	if err != nil {
		s.logger.Warn("failover after disable did not switch",
			"index", previous, "error", err)
		return
	}
	s.logger.Info("failover after disable", "from", previous, "to", next)
	countRotation(audit.TriggerAutoDisable)
	s.audit.PoolRotated(ctx, previous, next, audit.TriggerAutoDisable)
}

// SetPriority sets the scheduling priority of one credential. Validation
// of the value is the daemon's call; a rejection comes back as a
// validation-coded error and classifies internal.
func (s *Service) SetPriority(ctx context.Context, index, priority int) error {
	snap, err := s.pool.Snapshot(ctx)
	if err != nil {
		return s.fail(ctx, "priority", index, err, &InternalError{Message: err.Error()})
	}

	if err := s.pool.SetPriority(ctx, index, priority); err != nil {
		return s.fail(ctx, "priority", index, err, classifySimple(err, index, snap.Total))
	}
	countOp("priority", nil)
	s.audit.PriorityChanged(ctx, index, priority)
	return nil
}

// ResetAndEnable clears the failure count and re-enables one credential.
func (s *Service) ResetAndEnable(ctx context.Context, index int) error {
	snap, err := s.pool.Snapshot(ctx)
	if err != nil {
		return s.fail(ctx, "reset", index, err, &InternalError{Message: err.Error()})
	}

	if err := s.pool.ResetAndEnable(ctx, index); err != nil {
		return s.fail(ctx, "reset", index, err, classifySimple(err, index, snap.Total))
	}
	countOp("reset", nil)
	s.audit.CredentialReset(ctx, index)
	return nil
}

// Balance fetches upstream usage for one credential and precomputes the
// display fields. Remaining never goes negative; the percentage clamps to
// [0, 100] and reports zero when the limit is unbounded or unknown
// (non-positive), since there is nothing to take a percentage of.
func (s *Service) Balance(ctx context.Context, index int) (*types.BalanceResponse, error) {
	snap, err := s.pool.Snapshot(ctx)
	if err != nil {
		return nil, s.fail(ctx, "balance", index, err, classifyBalance(err, index, 0))
	}

	limits, err := s.pool.Balance(ctx, index)
	if err != nil {
		return nil, s.fail(ctx, "balance", index, err, classifyBalance(err, index, snap.Total))
	}
	countOp("balance", nil)
	s.audit.BalanceChecked(ctx, index)

	remaining := limits.UsageLimit - limits.CurrentUsage
	if remaining < 0 {
		remaining = 0
	}
	var pct float64
	if limits.UsageLimit > 0 {
		pct = limits.CurrentUsage / limits.UsageLimit * 100
		if pct > 100 {
			pct = 100
		}
	}

	return &types.BalanceResponse{
		Index:             index,
		SubscriptionTitle: limits.SubscriptionTitle,
		CurrentUsage:      limits.CurrentUsage,
		UsageLimit:        limits.UsageLimit,
		Remaining:         remaining,
		UsagePercentage:   pct,
		NextResetAt:       limits.NextResetAt,
	}, nil
}

// Rotate switches the pool to the next available credential.
func (s *Service) Rotate(ctx context.Context) (*types.RotateResponse, error) {
	snap, err := s.pool.Snapshot(ctx)
	if err != nil {
		return nil, s.fail(ctx, "rotate", -1, err, &InternalError{Message: err.Error()})
	}

	next, err := s.pool.SwitchToNext(ctx)
	if err != nil {
		return nil, s.fail(ctx, "rotate", snap.CurrentIndex, err,
			classifySimple(err, snap.CurrentIndex, snap.Total))
	}
	countOp("rotate", nil)
	countRotation(audit.TriggerManual)
	s.audit.PoolRotated(ctx, snap.CurrentIndex, next, audit.TriggerManual)

	return &types.RotateResponse{
		PreviousIndex: snap.CurrentIndex,
		CurrentIndex:  next,
		Message:       fmt.Sprintf("rotated from credential %d to %d", snap.CurrentIndex, next),
	}, nil
}

// fail records metrics, log, and audit for a failed operation, then
// returns the classified error.
func (s *Service) fail(ctx context.Context, operation string, index int, raw, classified error) error {
	code := string(pool.Classify(raw))
	countOp(operation, classified)
	countError(code)
	s.logger.Error("pool operation failed",
		"operation", operation, "index", index, "code", code, "error", raw)
	s.audit.OperationFailed(ctx, operation, index, code, raw.Error())
	return classified
}

// failRead records a failed read. Reads are not audited: a daemon outage
// would otherwise flood the trail through UI polling.
func (s *Service) failRead(operation string, raw, classified error) error {
	countOp(operation, classified)
	countError(string(pool.Classify(raw)))
	s.logger.Error("pool read failed", "operation", operation, "error", raw)
	return classified
}

// credentialStatus projects a pool entry into its wire form.
func credentialStatus(e *pool.Entry, currentIndex int) *types.CredentialStatus {
	return &types.CredentialStatus{
		Index:         e.Index,
		Priority:      e.Priority,
		Disabled:      e.Disabled,
		FailureCount:  e.FailureCount,
		IsCurrent:     e.Index == currentIndex,
		ExpiresAt:     e.ExpiresAt,
		AuthMethod:    e.AuthMethod,
		HasProfileARN: e.HasProfileARN,
	}
}

// outcomeLabel maps a classified error to its metric label.
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var nf *NotFoundError
	var ue *UpstreamError
	switch {
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &ue):
		return "upstream_error"
	}
	return "internal_error"
}

func countOp(operation string, classified error) {
	if metrics.PoolOperationsTotal == nil {
		return
	}
	if vec, err := metrics.PoolOperationsTotal.WithLabels(operation, outcomeLabel(classified)); err == nil {
		_ = vec.Inc()
	}
}

func countError(code string) {
	if metrics.ErrorsTotal == nil || code == "" {
		return
	}
	if vec, err := metrics.ErrorsTotal.WithLabels(code); err == nil {
		_ = vec.Inc()
	}
}

func countRotation(trigger string) {
	if metrics.PoolRotationsTotal == nil {
		return
	}
	if vec, err := metrics.PoolRotationsTotal.WithLabels(trigger); err == nil {
		_ = vec.Inc()
	}
}

// recordPoolGauges refreshes the credential-state gauges from a snapshot.
func recordPoolGauges(snap *pool.Snapshot) {
	if metrics.PoolCredentials == nil {
		return
	}
	set := func(state string, v int) {
		if vec, err := metrics.PoolCredentials.WithLabels(state); err == nil {
			vec.Set(float64(v))
		}
	}
	set("total", snap.Total)
	set("available", snap.Available)
	set("disabled", snap.Total-snap.Available)
}
