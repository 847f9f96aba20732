package main

import (
	"github.com/spf13/cobra"

	pgInfra "github.com/fastygo/lifequest/internal/infrastructure/postgres"
)

func migrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{pgInfra.DirectionUp, pgInfra.DirectionDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := loadConfig()
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			return pgInfra.Migrate(cfg.Database, cfg.Migrations.Path, args[0], steps, zapLogger)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply (0 = all)")
	return cmd
}
