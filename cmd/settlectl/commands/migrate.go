package commands

import (
	"fmt"

	"roundsettle/pkg/config"

	"github.com/spf13/cobra"
)

// NewMigrateCommand manages the PostgreSQL schema.
func NewMigrateCommand() *cobra.Command {
	var auto bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.NewDB(config.LoadSettings())
			if err != nil {
				return err
			}
			if auto {
				err = config.AutoMigrate(db)
			} else {
				err = config.ExecuteMigrations(db)
			}
			if err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
	up.Flags().BoolVar(&auto, "auto", false, "Create tables from the models instead of the SQL migrations (development only)")

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.NewDB(config.LoadSettings())
			if err != nil {
				return err
			}
			if err := config.RollbackMigration(db); err != nil {
				return err
			}
			fmt.Println("rolled back one migration")
			return nil
		},
	}

	cmd.AddCommand(up, down)
	return cmd
}
