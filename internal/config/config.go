package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config" yaml:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases" yaml:"databases"`
	Redis       RedisConfig               `json:"redis" yaml:"redis"`
	Journal     JournalConfig             `json:"journal" yaml:"journal"`
	Companion   CompanionConfig           `json:"companion" yaml:"companion"`
	Providers   map[string]ProviderConfig `json:"providers" yaml:"providers"`
}

type BasicConfig struct {
	ServerAddress      string   `json:"server_address" yaml:"server_address"`
	LogMode            string   `json:"log_mode" yaml:"log_mode"`
	TokenTTLHours      int      `json:"token_ttl_hours" yaml:"token_ttl_hours"`
	TokenPurgeInterval int      `json:"token_purge_interval" yaml:"token_purge_interval"` // minutes
	MinWorkers         int      `json:"min_workers" yaml:"min_workers"`
	MaxWorkers         int      `json:"max_workers" yaml:"max_workers"`
	QueueSize          int      `json:"queue_size" yaml:"queue_size"`
	WorkerIdleTimeout  int      `json:"worker_idle_timeout" yaml:"worker_idle_timeout"` // minutes
	AllowedOrigins     []string `json:"allowed_origins" yaml:"allowed_origins"`
	RosterCacheTTLSecs int      `json:"roster_cache_ttl_secs" yaml:"roster_cache_ttl_secs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"db_name" yaml:"db_name"`
	Params   string `json:"params" yaml:"params"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// JournalConfig selects where chat logs and assessments live.
type JournalConfig struct {
	Driver   string `json:"driver" yaml:"driver"` // sql (default) or mongo
	MongoURI string `json:"mongo_uri" yaml:"mongo_uri"`
	MongoDB  string `json:"mongo_db" yaml:"mongo_db"`
}

// CompanionConfig names the provider used to phrase chatbot replies. Empty
// means canned replies.
type CompanionConfig struct {
	Provider string `json:"provider" yaml:"provider"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Model   string `json:"model" yaml:"model"`
	APIKey  string `json:"api_key" yaml:"api_key"`
}

const (
	JournalSQL   = "sql"
	JournalMongo = "mongo"
)

// Load reads configuration from the provided path (defaults to config.json).
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := cfg.normalize(filepath.Dir(absPath)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize(baseDir string) error {
	if len(c.Databases) == 0 {
		return fmt.Errorf("databases must be configured")
	}
	if sqlite, ok := c.Databases["sqlite3"]; ok {
		if sqlite.DSN == "" {
			return fmt.Errorf("sqlite3 dsn must be configured")
		}
		if sqlite.DSN != ":memory:" && !strings.HasPrefix(sqlite.DSN, "file:") && !filepath.IsAbs(sqlite.DSN) {
			sqlite.DSN = filepath.Join(baseDir, sqlite.DSN)
			c.Databases["sqlite3"] = sqlite
		}
	}

	c.Journal.Driver = strings.ToLower(strings.TrimSpace(c.Journal.Driver))
	switch c.Journal.Driver {
	case "":
		c.Journal.Driver = JournalSQL
	case JournalSQL:
	case JournalMongo:
		if c.Journal.MongoURI == "" {
			return fmt.Errorf("journal.mongo_uri must be configured for the mongo journal")
		}
		if c.Journal.MongoDB == "" {
			c.Journal.MongoDB = "wellness_connect_db"
		}
	default:
		return fmt.Errorf("unsupported journal driver: %s", c.Journal.Driver)
	}

	b := &c.BasicConfig
	if b.MinWorkers <= 0 {
		b.MinWorkers = 2
	}
	if b.MaxWorkers <= 0 {
		b.MaxWorkers = 8
	}
	if b.MaxWorkers < b.MinWorkers {
		return fmt.Errorf("max_workers (%d) must be >= min_workers (%d)", b.MaxWorkers, b.MinWorkers)
	}
	if b.QueueSize <= 0 {
		b.QueueSize = 64
	}

	if p := c.Companion.Provider; p != "" {
		if _, ok := c.Providers[p]; !ok {
			return fmt.Errorf("companion provider %s not configured", p)
		}
	}
	return nil
}
