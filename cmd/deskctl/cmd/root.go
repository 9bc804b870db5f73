// Package cmd contains the CLI commands for deskctl.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

// defaultDBPath is the default database path, can be overridden via INCIDENTDESK_DB_PATH env var
var defaultDBPath = "data/incidentdesk.db"

func init() {
	if envPath := os.Getenv("INCIDENTDESK_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

var (
	// Used for flags
	verbose  bool
	output   string
	dbPath   string
	dbDriver string
	dbDSN    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deskctl",
	Short: "deskctl - incidentdesk administration",
	Long: `deskctl manages an incidentdesk database directly: accounts,
catalog seeding, schema migrations and incident exports.

Examples:
  # Apply migrations to a fresh database
  deskctl migrate --db data/incidentdesk.db

  # Create an incident manager
  deskctl user create --username jane --role incident_manager

  # Load tags and templates
  deskctl seed catalog.yaml

  # Export an incident report as CSV
  deskctl incident export 42 --format csv > incident-42.csv`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "path to SQLite database file")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", string(storage.DialectSQLite), "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "dsn", os.Getenv("INCIDENTDESK_DB_DSN"), "PostgreSQL connection string")
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// openDatabase opens the configured database. Unless create is set, a
// missing SQLite file is an error rather than a new empty database.
func openDatabase(ctx context.Context, create bool) (*storage.SQLStorage, error) {
	driver := storage.Dialect(dbDriver)
	switch driver {
	case storage.DialectSQLite:
		if !create {
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				return nil, fmt.Errorf("database file not found: %s", dbPath)
			}
		}
	case storage.DialectPostgres:
		if dbDSN == "" {
			return nil, fmt.Errorf("--dsn is required for postgres")
		}
	default:
		return nil, fmt.Errorf("unknown driver %q", dbDriver)
	}

	store := storage.New(storage.Config{Driver: driver, Path: dbPath, DSN: dbDSN})
	if err := store.Open(ctx); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	PrintVerbose("opened %s database", driver)
	return store, nil
}
