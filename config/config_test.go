package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnvMissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnvSetsUnsetVars(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MARKETSYNC_DOTENV_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("MARKETSYNC_DOTENV_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("MARKETSYNC_DOTENV_TEST_VALUE"))

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "from-file", os.Getenv("MARKETSYNC_DOTENV_TEST_VALUE"))
}

func TestLoadDotEnvReportsUnreadableFile(t *testing.T) {
	// a directory exists but cannot be parsed as a file
	err := LoadDotEnv(t.TempDir())
	assert.Error(t, err)
}
