package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creddhq/credd/pkg/admin"
	"github.com/creddhq/credd/pkg/admin/poolclient"
	"github.com/creddhq/credd/pkg/api/types"
)

const testAPIKey = "ck_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// setupAuthTest starts an admin server that requires an API key even from
// loopback clients, which is what these tests are.
func setupAuthTest(t *testing.T) int {
	t.Helper()

	daemon := startFakeDaemon(t, seedEntries())
	adminPort := getFreePort()

	api := admin.New(adminPort,
		admin.WithPool(poolclient.New(daemon.URL)),
		admin.WithAPIKey(testAPIKey),
		admin.WithAPIKeyAllowLocalhost(false),
		admin.WithAPIKeyFilePath(t.TempDir()+"/admin-api-key"),
		admin.WithoutRateLimit(),
		admin.WithoutUI(),
	)
	require.NoError(t, api.Start())
	t.Cleanup(func() { _ = api.Stop() })

	waitForReady(t, adminPort)
	return adminPort
}

// authedGet performs a GET with optional auth decoration applied to the
// request before sending.
func authedGet(t *testing.T, adminPort int, path string, decorate func(*http.Request)) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", fmt.Sprintf("http://localhost:%d%s", adminPort, path), nil)
	require.NoError(t, err)
	if decorate != nil {
		decorate(req)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAPIKeyMissingReturns401(t *testing.T) {
	adminPort := setupAuthTest(t)

	resp := authedGet(t, adminPort, "/api/credentials", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var errResp types.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "missing_api_key", errResp.Error)
}

func TestAPIKeyInvalidReturns401(t *testing.T) {
	adminPort := setupAuthTest(t)

	resp := authedGet(t, adminPort, "/api/credentials", func(r *http.Request) {
		r.Header.Set(admin.APIKeyHeader, "ck_wrong")
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var errResp types.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "invalid_api_key", errResp.Error)
}

// All three credential-passing forms must work: header, bearer token, and
// the query parameter EventSource clients are stuck with.
func TestAPIKeyAcceptedForms(t *testing.T) {
	adminPort := setupAuthTest(t)

	forms := map[string]func(*http.Request){
		"header": func(r *http.Request) {
			r.Header.Set(admin.APIKeyHeader, testAPIKey)
		},
		"bearer": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+testAPIKey)
		},
	}
	for name, decorate := range forms {
		t.Run(name, func(t *testing.T) {
			resp := authedGet(t, adminPort, "/api/credentials", decorate)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}

	t.Run("query", func(t *testing.T) {
		resp := authedGet(t, adminPort, "/api/credentials?api_key="+testAPIKey, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

// Health and metrics stay reachable without a key so probes and scrapers
// need no credentials.
func TestAPIKeyExemptPaths(t *testing.T) {
	adminPort := setupAuthTest(t)

	for _, path := range []string{"/health", "/metrics"} {
		resp := authedGet(t, adminPort, path, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "path %s should be exempt", path)
	}
}

func TestAPIKeyLocalhostBypass(t *testing.T) {
	daemon := startFakeDaemon(t, seedEntries())
	adminPort := getFreePort()

	api := admin.New(adminPort,
		admin.WithPool(poolclient.New(daemon.URL)),
		admin.WithAPIKey(testAPIKey),
		admin.WithAPIKeyAllowLocalhost(true),
		admin.WithoutRateLimit(),
		admin.WithoutUI(),
	)
	require.NoError(t, api.Start())
	t.Cleanup(func() { _ = api.Stop() })
	waitForReady(t, adminPort)

	// Loopback request without any key gets through.
	resp := authedGet(t, adminPort, "/api/credentials", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// Rotating the key invalidates the old one immediately.
func TestAPIKeyRotation(t *testing.T) {
	adminPort := setupAuthTest(t)

	req, err := http.NewRequest("POST",
		fmt.Sprintf("http://localhost:%d/api/admin/api-key/rotate", adminPort), nil)
	require.NoError(t, err)
	req.Header.Set(admin.APIKeyHeader, testAPIKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rotated struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rotated))
	require.NotEmpty(t, rotated.Key)
	assert.NotEqual(t, testAPIKey, rotated.Key)

	// Old key is dead.
	oldResp := authedGet(t, adminPort, "/api/credentials", func(r *http.Request) {
		r.Header.Set(admin.APIKeyHeader, testAPIKey)
	})
	oldResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, oldResp.StatusCode)

	// New key works.
	newResp := authedGet(t, adminPort, "/api/credentials", func(r *http.Request) {
		r.Header.Set(admin.APIKeyHeader, rotated.Key)
	})
	newResp.Body.Close()
	assert.Equal(t, http.StatusOK, newResp.StatusCode)
}
