package cmd

import (
	"github.com/spf13/cobra"

	"github.com/akshay-since1987/kineticev-sub002/database"
)

func migrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations",
		Long: `Apply every pending up migration, or roll back with --down.

Examples:
  booking migrate
  booking migrate --down 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), "booking-migrate")
			if err != nil {
				return err
			}
			defer a.close()

			if down > 0 {
				return database.RollbackMigrations(a.db, down, a.logger)
			}
			return database.RunMigrations(a.db, a.logger)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "number of migrations to roll back")
	return cmd
}
