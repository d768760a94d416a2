package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-library/internal/config"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "library.db", cfg.Database.DSN)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := "database:\n  dsn: /var/lib/library/books.db\noutput:\n  format: json\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("LIBRARY_OUTPUT_FORMAT", "table")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/library/books.db", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "table", cfg.Output.Format, "env overrides the file")
	assert.Equal(t, path, cfg.Path)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yml")
	require.NoError(t, os.WriteFile(path, []byte("tracing:\n  enabled: true\n"), 0o644))
	t.Setenv("LIBRARY_CONFIG", path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("LIBRARY_DATABASE_DRIVER", "oracle")
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.ErrorContains(t, err, "database.driver")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0o644))

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "reading config")
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Database.DSN = "books.db"
	cfg.Output.Format = "json"

	require.NoError(t, config.Save(cfg))

	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "books.db", again.Database.DSN)
	assert.Equal(t, "json", again.Output.Format)
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "lib.db"), config.ExpandHome("~/lib.db"))
	assert.Equal(t, "/abs/lib.db", config.ExpandHome("/abs/lib.db"))
}
