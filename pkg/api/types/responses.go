// Package types provides shared API types used across the admin server and
// CLI packages. This eliminates duplicate type definitions and ensures
// consistent API contracts.
package types

import (
	"time"

	"github.com/creddhq/credd/pkg/pool"
)

// ErrorResponse is a standard error response used across all APIs.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// HealthResponse is a simple health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Uptime    int       `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ServerStatus represents detailed admin server status.
type ServerStatus struct {
	Status          string    `json:"status"`
	Name            string    `json:"name,omitempty"`
	AdminPort       int       `json:"adminPort"`
	PoolURL         string    `json:"poolUrl,omitempty"`
	PoolReachable   bool      `json:"poolReachable"`
	Uptime          int64     `json:"uptime"`
	CredentialCount int       `json:"credentialCount"`
	AvailableCount  int       `json:"availableCount"`
	CurrentIndex    int       `json:"currentIndex"`
	RequestCount    int64     `json:"requestCount"`
	Version         string    `json:"version,omitempty"`
	StartedAt       time.Time `json:"startedAt,omitempty"`
}

// CredentialStatus is the admin view of a single pool credential. Field
// names follow the pool daemon's snake_case wire format so the UI sees one
// consistent shape end to end.
type CredentialStatus struct {
	Index         int             `json:"index"`
	Priority      int             `json:"priority"`
	Disabled      bool            `json:"disabled"`
	FailureCount  int             `json:"failure_count"`
	IsCurrent     bool            `json:"is_current"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	AuthMethod    pool.AuthMethod `json:"auth_method"`
	HasProfileARN bool            `json:"has_profile_arn"`
}

// CredentialListResponse is the admin view of the whole pool: aggregate
// counters plus every credential in snapshot order.
type CredentialListResponse struct {
	Total        int                 `json:"total"`
	Available    int                 `json:"available"`
	CurrentIndex int                 `json:"current_index"`
	Credentials  []*CredentialStatus `json:"credentials"`
}

// BalanceResponse reports upstream usage for a single credential, with the
// remaining quota and percentage precomputed for display.
type BalanceResponse struct {
	Index             int        `json:"index"`
	SubscriptionTitle string     `json:"subscription_title,omitempty"`
	CurrentUsage      float64    `json:"current_usage"`
	UsageLimit        float64    `json:"usage_limit"`
	Remaining         float64    `json:"remaining"`
	UsagePercentage   float64    `json:"usage_percentage"`
	NextResetAt       *time.Time `json:"next_reset_at,omitempty"`
}

// DisableRequest toggles a credential's disabled flag.
type DisableRequest struct {
	Disabled bool `json:"disabled"`
}

// PriorityRequest sets a credential's scheduling priority.
type PriorityRequest struct {
	Priority int `json:"priority"`
}

// RotateResponse reports the outcome of a manual pool rotation.
type RotateResponse struct {
	PreviousIndex int    `json:"previous_index"`
	CurrentIndex  int    `json:"current_index"`
	Message       string `json:"message,omitempty"`
}

// MessageResponse is a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}
