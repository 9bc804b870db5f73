package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/incidentdesk/internal/api"
	"github.com/good-yellow-bee/incidentdesk/internal/auth"
	"github.com/good-yellow-bee/incidentdesk/internal/housekeeping"
	"github.com/good-yellow-bee/incidentdesk/internal/incident"
	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/policy"
	"github.com/good-yellow-bee/incidentdesk/internal/security"
	"github.com/good-yellow-bee/incidentdesk/internal/session"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
	"github.com/good-yellow-bee/incidentdesk/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

const programName = "incidentdesk-server"

var rootCmd = &cobra.Command{
	Use:   programName,
	Short: "incidentdesk server - incident tracking API",
	Long: `incidentdesk server records incidents, their timelines and follow-up
action items, and serves them over an authenticated HTTP API.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetBuildInfo(programName))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose

	logger, err := newLogger(cfg.Log, cfg.Verbose)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureAdminUser(ctx, os.Stdout); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	issuer, err := newIssuer(cfg.Session, store)
	if err != nil {
		return err
	}

	authz, err := policy.NewAuthorizer()
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		return err
	}

	apiCfg := &api.Config{
		Address:          cfg.Server.HTTPAddress,
		SecureCookies:    cfg.Server.SecureCookies,
		CSRFKey:          csrfKey,
		TrustedOrigins:   cfg.Server.TrustedOrigins,
		RateLimitPerIP:   cfg.Auth.LoginRatePerIP,
		RateLimitPerUser: cfg.Auth.RequestRatePerUser,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
		Verbose:          cfg.Verbose,
	}
	if cfg.Server.TLS.Enabled {
		apiCfg.TLS = security.ServerTLSConfig{
			CertFile:     cfg.Server.TLS.CertFile,
			KeyFile:      cfg.Server.TLS.KeyFile,
			ClientCAFile: cfg.Server.TLS.ClientCAFile,
		}
	}

	srv, err := api.New(apiCfg, api.Deps{
		Storage:       store,
		Issuer:        issuer,
		Incidents:     incident.NewService(store, &incident.Options{Logger: logger}),
		Authenticator: auth.NewAuthenticator(store.Users(), nil, logger),
		Authorizer:    authz,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}

	scheduler, err := housekeeping.New(store.Sessions(), &housekeeping.Options{
		SessionPurgeSchedule: cfg.Housekeeping.SessionPurgeSchedule,
		Logger:               logger,
	})
	if err != nil {
		return fmt.Errorf("create housekeeping: %w", err)
	}

	build := config.GetBuildInfo(programName)
	metrics.BuildInfo.WithLabelValues(build.Version, build.Commit, build.GoVersion).Set(1)
	logger.Info().Str("version", build.Version).Str("session_mode", cfg.Session.Mode).Msg("starting incidentdesk-server")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Address, nil, logger)
		g.Go(metricsServer.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

// openStorage opens and migrates the configured database.
func openStorage(ctx context.Context, cfg DatabaseConfig) (*storage.SQLStorage, error) {
	if storage.Dialect(cfg.Driver) == storage.DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	store := storage.New(storage.Config{
		Driver: storage.Dialect(cfg.Driver),
		Path:   cfg.Path,
		DSN:    cfg.DSN,
	})
	if err := store.Open(ctx); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func newIssuer(cfg SessionConfig, store *storage.SQLStorage) (session.Issuer, error) {
	switch cfg.Mode {
	case sessionModeToken:
		return session.NewJWTIssuer([]byte(cfg.Secret), cfg.TTL), nil
	case sessionModeStore:
		return session.NewStoreIssuer(store.Sessions(), cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown session mode %q", cfg.Mode)
	}
}

// newLogger builds the process logger. Verbose forces debug level.
func newLogger(cfg LogConfig, verbose bool) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if strings.EqualFold(cfg.Format, "console") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}
