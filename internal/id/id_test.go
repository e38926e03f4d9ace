package id

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// --- UUID Tests ---

func TestUUID_Format(t *testing.T) {
	id := UUID()

	// UUID v4 format: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx
	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	if !uuidRegex.MatchString(id) {
		t.Errorf("UUID() = %q, does not match UUID v4 format", id)
	}
}

func TestUUID_VersionAndVariant(t *testing.T) {
	validVariant := map[byte]bool{'8': true, '9': true, 'a': true, 'b': true}
	for i := 0; i < 100; i++ {
		id := UUID()
		if id[14] != '4' {
			t.Errorf("UUID() version nibble = %c, want '4' (id=%s)", id[14], id)
		}
		if !validVariant[id[19]] {
			t.Errorf("UUID() variant nibble = %c, want one of 8/9/a/b (id=%s)", id[19], id)
		}
	}
}

func TestUUID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := UUID()
		if seen[id] {
			t.Fatalf("UUID() generated duplicate: %s", id)
		}
		seen[id] = true
	}
}

// --- ULID Tests ---

func TestULID_Format(t *testing.T) {
	id := ULID()
	if len(id) != 26 {
		t.Fatalf("ULID() length = %d, want 26", len(id))
	}
	if !IsValidULID(id) {
		t.Errorf("ULID() = %q, not a valid ULID", id)
	}
}

func TestULID_Sortable(t *testing.T) {
	// IDs generated over time must sort chronologically.
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, ULID())
		time.Sleep(2 * time.Millisecond)
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	for i := range ids {
		if ids[i] != sorted[i] {
			t.Fatalf("ULIDs not time-sortable: generated %v, sorted %v", ids, sorted)
		}
	}
}

func TestULID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := ULID()
		if seen[id] {
			t.Fatalf("ULID() generated duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestULID_Concurrent(t *testing.T) {
	const goroutines = 20
	const perGoroutine = 100

	results := make(chan string, goroutines*perGoroutine)
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				results <- ULID()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, goroutines*perGoroutine)
	for id := range results {
		if seen[id] {
			t.Fatalf("concurrent ULID() generated duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestULIDTime_Roundtrip(t *testing.T) {
	before := time.Now().Truncate(time.Millisecond)
	id := ULID()
	after := time.Now()

	ts, err := ULIDTime(id)
	if err != nil {
		t.Fatalf("ULIDTime() error = %v", err)
	}
	if ts.Before(before) || ts.After(after) {
		t.Errorf("ULIDTime() = %v, want between %v and %v", ts, before, after)
	}
}

func TestULIDTime_Invalid(t *testing.T) {
	if _, err := ULIDTime("not-a-ulid"); err == nil {
		t.Error("ULIDTime() should reject invalid input")
	}
}

func TestIsValidULID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{ULID(), true},
		{"", false},
		{"too-short", false},
		{strings.Repeat("0", 26), true},
		{strings.Repeat("0", 25) + "I", false}, // I excluded from Crockford Base32
		{strings.Repeat("0", 25) + "u", false}, // lowercase not valid
	}

	for _, tt := range tests {
		if got := IsValidULID(tt.input); got != tt.want {
			t.Errorf("IsValidULID(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// --- Short Tests ---

func TestShort(t *testing.T) {
	id := Short()
	if len(id) != 16 {
		t.Errorf("Short() length = %d, want 16", len(id))
	}
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(id) {
		t.Errorf("Short() = %q, want 16 hex characters", id)
	}
	if Short() == id {
		t.Error("Short() generated duplicate on consecutive calls")
	}
}

// --- Alphanumeric Tests ---

func TestAlphanumeric(t *testing.T) {
	for _, length := range []int{1, 8, 32, 64} {
		id := Alphanumeric(length)
		if len(id) != length {
			t.Errorf("Alphanumeric(%d) length = %d", length, len(id))
		}
		for _, c := range id {
			isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			if !isAlnum {
				t.Errorf("Alphanumeric(%d) contains non-alphanumeric %q", length, c)
			}
		}
	}
}

func TestAlphanumeric_Zero(t *testing.T) {
	if got := Alphanumeric(0); got != "" {
		t.Errorf("Alphanumeric(0) = %q, want empty", got)
	}
}
