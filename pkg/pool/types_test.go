package pool

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotEntry(t *testing.T) {
	snap := &Snapshot{
		Total:        3,
		Available:    2,
		CurrentIndex: 1,
		Entries: []Entry{
			{Index: 0, Priority: 10},
			{Index: 1, Priority: 0},
			{Index: 2, Priority: 5, Disabled: true},
		},
	}

	e := snap.Entry(2)
	require.NotNil(t, e)
	assert.True(t, e.Disabled)

	assert.Nil(t, snap.Entry(3))
	assert.Nil(t, snap.Entry(-1))
}

// Entries may arrive sparse (holes after removal); lookup goes by the Index
// field, not the slice position.
func TestSnapshotEntrySparse(t *testing.T) {
	snap := &Snapshot{
		Total:   2,
		Entries: []Entry{{Index: 0}, {Index: 4}},
	}
	require.NotNil(t, snap.Entry(4))
	assert.Nil(t, snap.Entry(1))
}

func TestSnapshotWireFormat(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := &Snapshot{
		Total:        1,
		Available:    1,
		CurrentIndex: 0,
		Entries: []Entry{{
			Index:         0,
			Priority:      3,
			FailureCount:  2,
			ExpiresAt:     &exp,
			AuthMethod:    AuthMethodSocial,
			HasProfileARN: true,
		}},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "total")
	assert.Contains(t, raw, "available")
	assert.Contains(t, raw, "current_index")

	entries, ok := raw["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry, ok := entries[0].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"index", "priority", "disabled", "failure_count", "expires_at", "auth_method", "has_profile_arn"} {
		assert.Contains(t, entry, key)
	}
	assert.Equal(t, "social", entry["auth_method"])
}
