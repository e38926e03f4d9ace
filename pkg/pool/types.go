package pool

import "time"

// AuthMethod identifies how a credential authenticates against the upstream
// provider.
type AuthMethod string

const (
	// AuthMethodSocial is a builder-ID (social login) credential.
	AuthMethodSocial AuthMethod = "social"
	// AuthMethodIDC is an identity-center (SSO) credential.
	AuthMethodIDC AuthMethod = "idc"
)

// Entry describes one credential in a pool snapshot.
//
// Index is a stable identifier unique within the pool; it is not guaranteed
// to be contiguous after removals. Priority is an ordering weight whose
// direction is owned by the daemon.
type Entry struct {
	Index         int        `json:"index"`
	Priority      int        `json:"priority"`
	Disabled      bool       `json:"disabled"`
	FailureCount  int        `json:"failure_count"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	AuthMethod    AuthMethod `json:"auth_method"`
	HasProfileARN bool       `json:"has_profile_arn"`
}

// Snapshot is a point-in-time copy of the pool state. It is an immutable
// value: the daemon produces a fresh one per read and never mutates it
// afterwards, so snapshots may be shared across goroutines freely.
type Snapshot struct {
	Total        int     `json:"total"`
	Available    int     `json:"available"`
	CurrentIndex int     `json:"current_index"`
	Entries      []Entry `json:"entries"`
}

// Entry returns the entry with the given index, or nil when the snapshot
// has no such entry.
func (s *Snapshot) Entry(index int) *Entry {
	for i := range s.Entries {
		if s.Entries[i].Index == index {
			return &s.Entries[i]
		}
	}
	return nil
}

// UsageLimits is the usage/quota view of a single credential as reported by
// the upstream provider. A UsageLimit of zero or below means the limit is
// unbounded or unknown.
type UsageLimits struct {
	SubscriptionTitle string     `json:"subscription_title,omitempty"`
	CurrentUsage      float64    `json:"current_usage"`
	UsageLimit        float64    `json:"usage_limit"`
	NextResetAt       *time.Time `json:"next_reset_at,omitempty"`
}
