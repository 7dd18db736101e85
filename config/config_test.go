package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "LISTEN_ADDR", "DB_PATH", "CACHE_ENABLED", "CACHE_TTL", "LOG_FILE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.HasCredentials())
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "pricetag.db", cfg.DBPath)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash")
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_TTL", "90m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.HasCredentials())
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "failed to read configuration")
}

func TestWriteEnvFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := WriteEnvFile(map[string]string{"GEMINI_API_KEY": "first", "GEMINI_MODEL": "m"})
	require.NoError(t, err)
	assert.Equal(t, EnvFileName, filepath.Base(path))
	assert.Equal(t, AppName, filepath.Base(filepath.Dir(path)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = WriteEnvFile(map[string]string{"GEMINI_API_KEY": "second"})
	require.NoError(t, err)

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GEMINI_API_KEY": "second", "GEMINI_MODEL": "m"}, values)
}

func TestLoadEnvFile_ExistingVariablesWin(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, err := WriteEnvFile(map[string]string{"GEMINI_API_KEY": "from-file", "GEMINI_MODEL": "file-model"})
	require.NoError(t, err)

	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("GEMINI_MODEL", "")
	os.Unsetenv("GEMINI_MODEL")

	LoadEnvFile()

	assert.Equal(t, "from-env", os.Getenv("GEMINI_API_KEY"))
	assert.Equal(t, "file-model", os.Getenv("GEMINI_MODEL"))
}
