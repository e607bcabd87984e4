package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yuvraj-bhatia/virio-pulse/internal/config"
	"github.com/yuvraj-bhatia/virio-pulse/internal/observability"
	"github.com/yuvraj-bhatia/virio-pulse/internal/repo"
	"github.com/yuvraj-bhatia/virio-pulse/internal/services"
	"github.com/yuvraj-bhatia/virio-pulse/internal/sysutil"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	dsn      string
	logLevel string
}

// NewRootCmd returns the root command of the pulse CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "pulse",
		Short:         "Virio Pulse: content-to-pipeline attribution",
		Long:          "Virio Pulse credits inbound signals, meetings and opportunities to content posts and stores per-client rollups for 7, 30 and 90 day windows.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "database DSN or sqlite path (overrides DB_PATH / DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newRecomputeCmd(opts))

	return rootCmd
}

// load reads the environment config and installs the global logger.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.SetupLogger(sysutil.FirstNonEmpty(o.logLevel, cfg.LogLevel), cfg.LogPretty, cmd.ErrOrStderr())
	return cfg, nil
}

// openDB connects using --dsn when given, else the configured DSN.
func (o *rootOptions) openDB(cfg config.Config) (*gorm.DB, error) {
	return repo.Open(cfg.DB.Driver, sysutil.FirstNonEmpty(o.dsn, cfg.DB.DSN()))
}

// newService builds the attribution service with the configured zone and
// per-run timeout.
func newService(db *gorm.DB, cfg config.Config) *services.AttributionService {
	svc := services.NewAttributionService(db)
	svc.Location = cfg.Attribution.Location()
	svc.Timeout = cfg.Attribution.RecomputeTimeout
	return svc
}

// setupTracing starts OTel for the command and returns a bounded shutdown.
func setupTracing(ctx context.Context, cfg config.Config) (func(), error) {
	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, observability.ServiceInfo{
		Version:  version,
		DBDriver: cfg.DB.Driver,
		TZ:       cfg.Attribution.TZ,
	})
	if err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}, nil
}
