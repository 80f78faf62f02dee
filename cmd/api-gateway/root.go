package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/care-ops-api/pkg/config"
	"github.com/noah-isme/care-ops-api/pkg/database"
	"github.com/noah-isme/care-ops-api/pkg/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "care-ops-api",
		Short:        "Care operations API: corrective action lifecycle",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd(), newMigrateCmd())
	return cmd
}

// bootstrap loads configuration and builds the logger and database shared by every command.
func bootstrap() (*config.Config, *zap.Logger, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		_ = logr.Sync()
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return cfg, logr, db, nil
}
