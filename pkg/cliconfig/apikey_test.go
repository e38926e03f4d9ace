package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAPIKeyFilePath(t *testing.T) {
	t.Run("respects XDG_DATA_HOME", func(t *testing.T) {
		tmp := isolate(t)
		t.Setenv("XDG_DATA_HOME", tmp)

		assert.Equal(t, filepath.Join(tmp, "credd", DefaultKeyFileName), GetAPIKeyFilePath())
	})

	t.Run("falls back to home", func(t *testing.T) {
		tmp := isolate(t)
		t.Setenv("XDG_DATA_HOME", "")

		assert.Equal(t, filepath.Join(tmp, ".local", "share", "credd", DefaultKeyFileName), GetAPIKeyFilePath())
	})
}

func TestLoadAPIKeyFromPath(t *testing.T) {
	t.Run("missing file is not an error", func(t *testing.T) {
		key, err := LoadAPIKeyFromPath(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, key)
	})

	t.Run("trims whitespace", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key")
		require.NoError(t, os.WriteFile(path, []byte("  ck_abc123\n"), 0600))

		key, err := LoadAPIKeyFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, "ck_abc123", key)
	})
}

func TestGetAPIKey(t *testing.T) {
	writeKeyFile := func(t *testing.T, key string) {
		t.Helper()
		path := GetAPIKeyFilePath()
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(key), 0600))
	}

	t.Run("env wins over file", func(t *testing.T) {
		isolate(t)
		writeKeyFile(t, "ck_from_file")
		t.Setenv(EnvAPIKey, "ck_from_env")

		assert.Equal(t, "ck_from_env", GetAPIKey())
	})

	t.Run("file when env unset", func(t *testing.T) {
		isolate(t)
		writeKeyFile(t, "ck_from_file")

		assert.Equal(t, "ck_from_file", GetAPIKey())
	})

	t.Run("empty when nothing configured", func(t *testing.T) {
		isolate(t)

		assert.Empty(t, GetAPIKey())
	})
}

func TestResolveClientConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		isolate(t)

		cc := ResolveClientConfig("")
		assert.Equal(t, "http://localhost:4780", cc.AdminURL)
		assert.Equal(t, DefaultTimeoutSeconds, cc.TimeoutSeconds)
		assert.Empty(t, cc.APIKey)
	})

	t.Run("flag wins over everything", func(t *testing.T) {
		tmp := isolate(t)
		writeFile(t, filepath.Join(tmp, ".creddrc.yaml"), "adminUrl: http://file:4780\n")
		t.Setenv(EnvAdminURL, "http://env:4780")

		cc := ResolveClientConfig("http://flag:4780")
		assert.Equal(t, "http://flag:4780", cc.AdminURL)
	})

	t.Run("env wins over file", func(t *testing.T) {
		tmp := isolate(t)
		writeFile(t, filepath.Join(tmp, ".creddrc.yaml"), "adminUrl: http://file:4780\n")
		t.Setenv(EnvAdminURL, "http://env:4780")

		cc := ResolveClientConfig("")
		assert.Equal(t, "http://env:4780", cc.AdminURL)
	})

	t.Run("includes resolved key and timeout", func(t *testing.T) {
		tmp := isolate(t)
		writeFile(t, filepath.Join(tmp, ".creddrc.yaml"), "timeoutSeconds: 3\n")
		t.Setenv(EnvAPIKey, "ck_secret")

		cc := ResolveClientConfig("")
		assert.Equal(t, "ck_secret", cc.APIKey)
		assert.Equal(t, 3, cc.TimeoutSeconds)
	})
}

func TestResolveAdminURL(t *testing.T) {
	t.Run("flag value passes through", func(t *testing.T) {
		isolate(t)
		assert.Equal(t, "http://flag:1234", ResolveAdminURL("http://flag:1234"))
	})

	t.Run("falls back to merged config", func(t *testing.T) {
		tmp := isolate(t)
		writeFile(t, filepath.Join(tmp, ".creddrc.yaml"), "adminUrl: http://file:4780\n")

		assert.Equal(t, "http://file:4780", ResolveAdminURL(""))
	})

	t.Run("default when nothing configured", func(t *testing.T) {
		isolate(t)
		assert.Equal(t, "http://localhost:4780", ResolveAdminURL(""))
	})
}
