package pool

import "context"

// Manager is the facade over a running credential pool. The admin service
// and CLI depend on this interface only; the concrete implementation lives
// in poolclient, which talks to the pool daemon over HTTP.
type Manager interface {
	// Snapshot returns a point-in-time view of the pool. The snapshot is
	// immutable once returned; later mutations are not reflected in it.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// SetDisabled flips the disabled flag on the credential at index.
	SetDisabled(ctx context.Context, index int, disabled bool) error

	// SetPriority sets the scheduling priority of the credential at index.
	// Lower values are preferred by the rotation strategy.
	SetPriority(ctx context.Context, index, priority int) error

	// ResetAndEnable clears the failure count and re-enables the credential
	// at index in one step.
	ResetAndEnable(ctx context.Context, index int) error

	// Balance fetches usage limits for the credential at index from the
	// upstream provider. This is the only Manager call that leaves the
	// local daemon, so it is the only one that can fail with upstream codes.
	Balance(ctx context.Context, index int) (*UsageLimits, error)

	// SwitchToNext asks the pool to rotate to the next available credential
	// and returns the new current index.
	SwitchToNext(ctx context.Context) (int, error)
}

// NoopManager is a Manager that reports an empty pool and accepts no
// mutations. Useful as a default when no daemon is configured.
type NoopManager struct{}

var _ Manager = (*NoopManager)(nil)

func (*NoopManager) Snapshot(ctx context.Context) (*Snapshot, error) {
	return &Snapshot{Entries: []Entry{}}, nil
}

func (*NoopManager) SetDisabled(ctx context.Context, index int, disabled bool) error {
	return Errorf(CodeIndexOutOfRange, "no credential at index %d (pool is empty)", index)
}

func (*NoopManager) SetPriority(ctx context.Context, index, priority int) error {
	return Errorf(CodeIndexOutOfRange, "no credential at index %d (pool is empty)", index)
}

func (*NoopManager) ResetAndEnable(ctx context.Context, index int) error {
	return Errorf(CodeIndexOutOfRange, "no credential at index %d (pool is empty)", index)
}

func (*NoopManager) Balance(ctx context.Context, index int) (*UsageLimits, error) {
	return nil, Errorf(CodeIndexOutOfRange, "no credential at index %d (pool is empty)", index)
}

func (*NoopManager) SwitchToNext(ctx context.Context) (int, error) {
	return 0, Errorf(CodeInternal, "pool is empty, nothing to rotate")
}
