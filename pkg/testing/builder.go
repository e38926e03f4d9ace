package testing

import (
	"time"

	"github.com/creddhq/credd/pkg/pool"
)

// CredentialBuilder configures one seeded credential with a fluent API.
// Every method applies immediately, so a builder can also reshape a
// credential while the daemon is serving.
type CredentialBuilder struct {
	daemon *PoolDaemon
	index  int
}

func (b *CredentialBuilder) apply(fn func(*pool.Entry)) *CredentialBuilder {
	b.daemon.mu.Lock()
	defer b.daemon.mu.Unlock()
	if e := b.daemon.findLocked(b.index); e != nil {
		fn(e)
	}
	return b
}

// WithPriority sets the credential's ordering weight.
func (b *CredentialBuilder) WithPriority(priority int) *CredentialBuilder {
	return b.apply(func(e *pool.Entry) { e.Priority = priority })
}

// WithAuthMethod sets how the credential authenticates. New credentials
// default to social login.
func (b *CredentialBuilder) WithAuthMethod(method pool.AuthMethod) *CredentialBuilder {
	return b.apply(func(e *pool.Entry) { e.AuthMethod = method })
}

// WithProfileARN marks the credential as carrying a provisioned profile.
func (b *CredentialBuilder) WithProfileARN() *CredentialBuilder {
	return b.apply(func(e *pool.Entry) { e.HasProfileARN = true })
}

// WithFailures sets the recorded failure count.
func (b *CredentialBuilder) WithFailures(n int) *CredentialBuilder {
	return b.apply(func(e *pool.Entry) { e.FailureCount = n })
}

// ExpiringAt sets the credential's expiry time.
func (b *CredentialBuilder) ExpiringAt(at time.Time) *CredentialBuilder {
	return b.apply(func(e *pool.Entry) { e.ExpiresAt = &at })
}

// Disabled marks the credential disabled.
func (b *CredentialBuilder) Disabled() *CredentialBuilder {
	return b.apply(func(e *pool.Entry) { e.Disabled = true })
}

// Enabled marks the credential enabled. Credentials start enabled; this
// exists for re-enabling in multi-phase tests.
func (b *CredentialBuilder) Enabled() *CredentialBuilder {
	return b.apply(func(e *pool.Entry) { e.Disabled = false })
}

// WithBalance seeds the usage limits that balance checks for this
// credential return.
func (b *CredentialBuilder) WithBalance(title string, used, limit float64) *CredentialBuilder {
	b.daemon.mu.Lock()
	defer b.daemon.mu.Unlock()
	b.daemon.balances[b.index] = pool.UsageLimits{
		SubscriptionTitle: title,
		CurrentUsage:      used,
		UsageLimit:        limit,
	}
	return b
}

// WithNextReset sets when the seeded balance window resets.
func (b *CredentialBuilder) WithNextReset(at time.Time) *CredentialBuilder {
	b.daemon.mu.Lock()
	defer b.daemon.mu.Unlock()
	limits := b.daemon.balances[b.index]
	limits.NextResetAt = &at
	b.daemon.balances[b.index] = limits
	return b
}

// WithBalanceError makes balance checks for this credential fail with
// the given coded error.
func (b *CredentialBuilder) WithBalanceError(code pool.ErrorCode, message string) *CredentialBuilder {
	b.daemon.mu.Lock()
	defer b.daemon.mu.Unlock()
	b.daemon.balanceErrs[b.index] = &pool.Error{Code: code, Message: message}
	return b
}

// AsCurrent makes this credential the pool's active one.
func (b *CredentialBuilder) AsCurrent() *CredentialBuilder {
	b.daemon.SetCurrentIndex(b.index)
	return b
}
