package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creddhq/credd/pkg/logging"
)

const testAPIKey = "ck_" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestGenerateAPIKey(t *testing.T) {
	t.Parallel()

	key, err := generateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, APIKeyPrefix))
	assert.Len(t, key, len(APIKeyPrefix)+APIKeyLength*2)

	other, err := generateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestNewAPIKeyAuthSources(t *testing.T) {
	t.Run("explicit config key wins", func(t *testing.T) {
		t.Setenv(APIKeyEnvVar, "ck_from_env")

		auth := newAPIKeyAuth(APIKeyConfig{Enabled: true, Key: "ck_explicit"}, logging.Nop())

		assert.Equal(t, "ck_explicit", auth.currentKey())
		assert.Equal(t, "config", auth.source)
	})

	t.Run("environment key", func(t *testing.T) {
		t.Setenv(APIKeyEnvVar, "ck_from_env")

		auth := newAPIKeyAuth(APIKeyConfig{Enabled: true}, logging.Nop())

		assert.Equal(t, "ck_from_env", auth.currentKey())
		assert.Equal(t, "env", auth.source)
	})

	t.Run("persisted key file", func(t *testing.T) {
		t.Setenv(APIKeyEnvVar, "")
		path := filepath.Join(t.TempDir(), DefaultKeyFileName)
		require.NoError(t, os.WriteFile(path, []byte("ck_persisted\n"), 0o600))

		auth := newAPIKeyAuth(APIKeyConfig{Enabled: true, KeyFilePath: path}, logging.Nop())

		assert.Equal(t, "ck_persisted", auth.currentKey())
		assert.Equal(t, "file", auth.source)
	})

	t.Run("generates and persists when nothing resolves", func(t *testing.T) {
		t.Setenv(APIKeyEnvVar, "")
		path := filepath.Join(t.TempDir(), DefaultKeyFileName)

		auth := newAPIKeyAuth(APIKeyConfig{Enabled: true, KeyFilePath: path}, logging.Nop())

		key := auth.currentKey()
		assert.True(t, strings.HasPrefix(key, APIKeyPrefix))
		assert.Equal(t, "generated", auth.source)

		saved, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, key+"\n", string(saved))
	})

	t.Run("disabled resolves nothing", func(t *testing.T) {
		t.Setenv(APIKeyEnvVar, "ck_from_env")

		auth := newAPIKeyAuth(APIKeyConfig{Enabled: false, Key: "ck_ignored"}, logging.Nop())

		assert.Empty(t, auth.currentKey())
		assert.Empty(t, auth.source)
	})
}

func TestLoadKeyFileRejectsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := loadKeyFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	auth := newAPIKeyAuth(APIKeyConfig{Enabled: true, Key: testAPIKey}, logging.Nop())

	assert.True(t, auth.validate(testAPIKey))
	assert.False(t, auth.validate("ck_wrong"))
	assert.False(t, auth.validate(""))

	// No key resolved means nothing validates, not everything.
	unkeyed := &apiKeyAuth{config: APIKeyConfig{Enabled: true}, logger: logging.Nop()}
	assert.False(t, unkeyed.validate(""))
	assert.False(t, unkeyed.validate("ck_anything"))
}

func TestIsExempt(t *testing.T) {
	t.Parallel()

	auth := &apiKeyAuth{
		config: APIKeyConfig{
			Enabled:     true,
			ExemptPaths: []string{"/api/status", "/api/public/**"},
		},
		logger: logging.Nop(),
	}

	tests := []struct {
		path   string
		exempt bool
	}{
		{"/health", true},
		{"/metrics", true},
		{"/", true},
		{"/dashboard", true},
		{"/credentials/2", true},
		{"/assets/index.js", true},
		{"/api", false},
		{"/api/credentials", false},
		{"/api/credentials/1/balance", false},
		{"/api/events", false},
		{"/api/status", true},
		{"/api/public/anything/below", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.exempt, auth.isExempt(tt.path))
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	newHandler := func(config APIKeyConfig) http.Handler {
		auth := newAPIKeyAuth(config, logging.Nop())
		return auth.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	}

	enabled := APIKeyConfig{Enabled: true, Key: testAPIKey, AllowLocalhost: true}

	// httptest requests carry a non-loopback peer address, so the
	// localhost bypass does not apply unless a test sets one.
	t.Run("missing key is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(enabled).ServeHTTP(rec, httptest.NewRequest("GET", "/api/credentials", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "missing_api_key", decodeError(t, rec).Error)
	})

	t.Run("invalid key is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/credentials", nil)
		req.Header.Set(APIKeyHeader, "ck_wrong")
		rec := httptest.NewRecorder()
		newHandler(enabled).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "invalid_api_key", resp.Error)
		assert.Equal(t, "Invalid API key", resp.Message)
	})

	t.Run("header key is accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/credentials", nil)
		req.Header.Set(APIKeyHeader, testAPIKey)
		rec := httptest.NewRecorder()
		newHandler(enabled).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bearer token is accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/credentials", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		rec := httptest.NewRecorder()
		newHandler(enabled).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("query parameter is accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/events?api_key="+testAPIKey, nil)
		rec := httptest.NewRecorder()
		newHandler(enabled).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("loopback peer bypasses auth", func(t *testing.T) {
		for _, addr := range []string{"127.0.0.1:9999", "[::1]:9999"} {
			req := httptest.NewRequest("GET", "/api/credentials", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			newHandler(enabled).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code, "peer %s", addr)
		}
	})

	t.Run("loopback bypass can be turned off", func(t *testing.T) {
		strict := enabled
		strict.AllowLocalhost = false

		req := httptest.NewRequest("GET", "/api/credentials", nil)
		req.RemoteAddr = "127.0.0.1:9999"
		rec := httptest.NewRecorder()
		newHandler(strict).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("exempt paths skip auth", func(t *testing.T) {
		for _, path := range []string{"/health", "/metrics", "/dashboard"} {
			rec := httptest.NewRecorder()
			newHandler(enabled).ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

			assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
		}
	})

	t.Run("disabled auth admits everything", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(APIKeyConfig{Enabled: false}).ServeHTTP(rec, httptest.NewRequest("GET", "/api/credentials", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRotateInvalidatesOldKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultKeyFileName)
	auth := newAPIKeyAuth(APIKeyConfig{Enabled: true, Key: testAPIKey, KeyFilePath: path}, logging.Nop())

	newKey, err := auth.rotate()
	require.NoError(t, err)

	assert.NotEqual(t, testAPIKey, newKey)
	assert.False(t, auth.validate(testAPIKey))
	assert.True(t, auth.validate(newKey))
	assert.Equal(t, "generated", auth.source)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, newKey+"\n", string(saved))
}

func TestAPIKeyInfoMasksKey(t *testing.T) {
	t.Parallel()

	auth := newAPIKeyAuth(APIKeyConfig{Enabled: true, Key: testAPIKey, KeyFilePath: "/tmp/k"}, logging.Nop())

	masked := auth.info(false)
	assert.Empty(t, masked.Key)
	assert.Equal(t, testAPIKey[:11]+"...", masked.KeyPrefix)
	assert.Equal(t, "config", masked.Source)
	assert.True(t, masked.Enabled)
	assert.Equal(t, "/tmp/k", masked.KeyFilePath)

	full := auth.info(true)
	assert.Equal(t, testAPIKey, full.Key)

	short := newAPIKeyAuth(APIKeyConfig{Enabled: true, Key: "ck_short"}, logging.Nop())
	assert.Equal(t, "ck_short", short.info(false).KeyPrefix)
}

func TestAPIKeyEndpoints(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), DefaultKeyFileName)
	api := New(0,
		WithPool(newFakePool()),
		WithAPIKey(testAPIKey),
		WithAPIKeyFilePath(keyPath),
		WithAPIKeyAllowLocalhost(false),
		WithoutRateLimit(),
	)

	authedRequest := func(method, path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if key != "" {
			req.Header.Set(APIKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)
		return rec
	}

	t.Run("key endpoint itself requires auth", func(t *testing.T) {
		rec := authedRequest("GET", "/api/admin/api-key", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("info masks by default and reveals on request", func(t *testing.T) {
		rec := authedRequest("GET", "/api/admin/api-key", testAPIKey)
		require.Equal(t, http.StatusOK, rec.Code)

		var info APIKeyInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		assert.Empty(t, info.Key)
		assert.Equal(t, testAPIKey[:11]+"...", info.KeyPrefix)
		assert.Equal(t, "config", info.Source)

		rec = authedRequest("GET", "/api/admin/api-key?show_key=true", testAPIKey)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		assert.Equal(t, testAPIKey, info.Key)
	})

	t.Run("rotation cuts over immediately", func(t *testing.T) {
		rec := authedRequest("POST", "/api/admin/api-key/rotate", testAPIKey)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		newKey := resp["key"]
		assert.True(t, strings.HasPrefix(newKey, APIKeyPrefix))
		assert.NotEqual(t, testAPIKey, newKey)
		assert.Equal(t, newKey, api.APIKey())

		// Old key is dead, new key works.
		assert.Equal(t, http.StatusUnauthorized, authedRequest("GET", "/api/credentials", testAPIKey).Code)
		assert.Equal(t, http.StatusOK, authedRequest("GET", "/api/credentials", newKey).Code)

		saved, err := os.ReadFile(keyPath)
		require.NoError(t, err)
		assert.Equal(t, newKey+"\n", string(saved))
	})

	t.Run("rotation refused when auth is disabled", func(t *testing.T) {
		open := newTestAPI(t, newFakePool())
		rec := httptest.NewRecorder()
		open.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/admin/api-key/rotate", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "auth_disabled", decodeError(t, rec).Error)
	})
}
