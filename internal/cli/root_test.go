package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "basic_config:\n  log_mode: dev\ndatabases:\n  sqlite3:\n    dsn: wellness.db\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestMigrateAndCreateUser(t *testing.T) {
	path := writeConfig(t)

	rootCmd.SetArgs([]string{"migrate", "--config", path})
	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, filepath.Join(filepath.Dir(path), "wellness.db"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil) })
	rootCmd.SetArgs([]string{"create-user", "--config", path,
		"--email", "admin@example.com", "--name", "Admin", "--password", "secret1"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "1", strings.TrimSpace(out.String()))

	rootCmd.SetArgs([]string{"create-user", "--config", path,
		"--email", "admin@example.com", "--name", "Admin", "--password", "secret1"})
	assert.Error(t, rootCmd.Execute())
}

func TestLoadEnvPrefersFlags(t *testing.T) {
	path := writeConfig(t)
	t.Setenv(envConfig, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(envDB, "mysql")

	cmd := migrateCmd
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--db", "sqlite3"}))
	e, err := loadEnv(cmd)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", e.dbType)
}
