package main

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yuvraj-bhatia/virio-pulse/internal/repo"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long:  "Create or update the database schema and delete expired idempotency records.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			db, err := opts.openDB(cfg)
			if err != nil {
				return err
			}
			if err := repo.AutoMigrate(db); err != nil {
				return err
			}
			purged, err := repo.PurgeExpiredIdempotency(cmd.Context(), db, time.Now())
			if err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DB.Driver).Int64("idempotency_purged", purged).Msg("schema migrated")
			return nil
		},
	}
}
