package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

var migrateCreateAdmin bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Create or upgrade the incidentdesk schema.

With --create-admin, a default administrator with a random password is
created when the database has no users.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if storage.Dialect(dbDriver) == storage.DialectSQLite {
			if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
		}

		ctx := cmd.Context()
		store, err := openDatabase(ctx, true)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		version, err := store.MigrationVersion(ctx)
		if err != nil {
			return fmt.Errorf("read migration version: %w", err)
		}

		if migrateCreateAdmin {
			if err := store.EnsureAdminUser(ctx, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("ensure admin user: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Database at schema version %d.\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateCreateAdmin, "create-admin", false, "create a default admin user when none exist")
}
