package main

import (
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/care-ops-api/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		newMigrateStepCmd("up", "Apply all pending migrations", database.MigrateUp),
		newMigrateStepCmd("down", "Roll back the most recent migration", database.MigrateDown),
		newMigrateStepCmd("status", "Print the state of every migration", database.MigrationStatus),
	)
	return cmd
}

func newMigrateStepCmd(use, short string, step func(db *sqlx.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logr, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck
			defer db.Close()

			if err := step(db); err != nil {
				logr.Error("migration failed", zap.String("step", use), zap.Error(err))
				return err
			}
			logr.Info("migration finished", zap.String("step", use))
			return nil
		},
	}
}
