package cmd

import (
	"context"

	"yamdb/internal/data/repository"
	"yamdb/internal/wire"
	"yamdb/pkg/database"
	"yamdb/pkg/mailer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	config, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer db.Close()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	if config.App.AutoMigrate {
		if err := database.Migrate(context.Background(), db, logger); err != nil {
			logger.Error("Migration failed", zap.Error(err))
			return err
		}
	}

	repos := repository.NewRepository(db, logger)
	mail := mailer.New(config.Email, logger)

	app, err := wire.Wiring(repos, db, mail, config, logger)
	if err != nil {
		logger.Error("Failed to wire application", zap.Error(err))
		return err
	}

	return APIServer(app.Router, config.App.Port, logger)
}
