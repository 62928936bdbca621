package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/db/sqlite"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage config database migrations",
	Long:  `Run SQLite schema migrations for the configuration database.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run all pending migrations",
	Long:  `Apply all pending schema migrations to the configuration database.`,
	RunE:  runMigrateUp,
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "migrations", "directory containing migration files")
	migrateCmd.AddCommand(migrateUpCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	fmt.Println("🔄 Running database migrations...")

	store, ok := configStore.(*sqlite.SQLite)
	if !ok {
		return fmt.Errorf("migrations require a sqlite config store")
	}

	if err := db.RunMigrations(store.DB(), migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("✅ Migrations completed successfully!")
	return nil
}
