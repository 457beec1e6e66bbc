package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docqa/internal/config"
	"github.com/cloo-solutions/docqa/internal/database"
	"github.com/cloo-solutions/docqa/internal/logger"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("DOCQA_DATABASE_URL is not set")
			}

			log, err := logger.NewLogger(cfg.Environment, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			source, _ := cmd.Flags().GetString("migrations")
			status, err := database.Migrate(cfg.DatabaseURL, source, log)
			if err != nil {
				return err
			}

			if status.Applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Migrated to version %d\n", status.Version)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Database is up to date (version %d)\n", status.Version)
			}
			return nil
		},
	}

	cmd.Flags().String("migrations", database.DefaultMigrationsSource, "Migration source URL")

	return cmd
}
