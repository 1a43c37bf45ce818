package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"wellnessconnect/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.log.Sync()

		db, err := e.openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		e.log.Info("database migrated", "driver", e.dbType)
		return nil
	},
}

// openDB opens and migrates the configured database.
func (e *env) openDB() (*sql.DB, error) {
	db, err := storage.Open(e.dbType, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db, e.dbType); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
