// Package cli holds the wellnessconnect command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wellnessconnect/internal/config"
	"wellnessconnect/internal/logger"
)

const (
	envConfig = "WELLNESS_CONFIG"
	envDB     = "WELLNESS_DB"

	defaultDB = "sqlite3"
)

var rootCmd = &cobra.Command{
	Use:           "wellness",
	Short:         "Student wellness backend with chat triage and PHQ-9/GAD-7 scoring",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config.json or config.yaml (overrides WELLNESS_CONFIG env var)")
	rootCmd.PersistentFlags().String("db", "", "Database driver key in the config, sqlite3 or mysql (overrides WELLNESS_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createUserCmd)
}

// env holds what every subcommand needs before doing its own work.
type env struct {
	cfg    *config.Config
	dbType string
	log    *logger.Logger
}

// loadEnv resolves --config then WELLNESS_CONFIG, and --db then WELLNESS_DB.
func loadEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(envConfig)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbType, _ := cmd.Flags().GetString("db")
	if dbType == "" {
		dbType = os.Getenv(envDB)
	}
	if dbType == "" {
		dbType = defaultDB
	}

	log, err := logger.New(cfg.BasicConfig.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &env{cfg: cfg, dbType: dbType, log: log}, nil
}
