package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadJSONDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"basic_config": {"server_address": ":9000"},
		"databases": {"sqlite3": {"dsn": "data/wellness.db"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.BasicConfig.ServerAddress)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data/wellness.db"), cfg.Databases["sqlite3"].DSN)
	assert.Equal(t, JournalSQL, cfg.Journal.Driver)
	assert.Equal(t, 2, cfg.BasicConfig.MinWorkers)
	assert.Equal(t, 8, cfg.BasicConfig.MaxWorkers)
	assert.Equal(t, 64, cfg.BasicConfig.QueueSize)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
basic_config:
  server_address: ":8090"
  min_workers: 1
  max_workers: 3
databases:
  sqlite3:
    dsn: ":memory:"
journal:
  driver: Mongo
  mongo_uri: mongodb://localhost:27017
companion:
  provider: openai
providers:
  openai:
    model: gpt-4o-mini
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.Databases["sqlite3"].DSN)
	assert.Equal(t, JournalMongo, cfg.Journal.Driver)
	assert.Equal(t, "wellness_connect_db", cfg.Journal.MongoDB)
	assert.Equal(t, 3, cfg.BasicConfig.MaxWorkers)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers["openai"].Model)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no databases":     `{}`,
		"empty sqlite dsn": `{"databases": {"sqlite3": {}}}`,
		"bad journal":      `{"databases": {"sqlite3": {"dsn": ":memory:"}}, "journal": {"driver": "cassandra"}}`,
		"mongo no uri":     `{"databases": {"sqlite3": {"dsn": ":memory:"}}, "journal": {"driver": "mongo"}}`,
		"workers":          `{"databases": {"sqlite3": {"dsn": ":memory:"}}, "basic_config": {"min_workers": 4, "max_workers": 2}}`,
		"companion":        `{"databases": {"sqlite3": {"dsn": ":memory:"}}, "companion": {"provider": "claude"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.json", body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
