package main

import (
	"fmt"

	"gcal-connect-api/internal/config"
	"gcal-connect-api/internal/database"
	"gcal-connect-api/internal/logger"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the embedded database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(database.Up), string(database.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL environment variable is not set")
			}

			log, err := logger.NewLogger(logger.OptionsFromEnv())
			if err != nil {
				return fmt.Errorf("could not initialize logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			return database.Migrate(cfg.DatabaseURL, database.Direction(args[0]), log)
		},
	}
}
