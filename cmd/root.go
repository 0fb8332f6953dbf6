package cmd

import (
	"fmt"
	"log"
	"os"

	"yamdb/pkg/database"
	"yamdb/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "yamdb",
	Short: "YaMDb - reviews and ratings API for films, books and music",
	Long: `YaMDb collects user reviews of titles (films, books, music) sorted into
categories and genres. Users rate titles from 1 to 10, the average score
becomes the title rating, and reviews can be discussed in comments.

Configuration is read from environment variables or a .env file.`,
	SilenceUsage: true,
	// serving is the default action
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// bootstrap loads config, the logger and the database pool shared by commands
func bootstrap() (*utils.Config, *zap.Logger, database.PgxIface, error) {
	config, err := utils.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using production logger.", err)
		logger, _ = zap.NewProduction()
	}

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return nil, nil, nil, err
	}

	logger.Info("Database connected successfully",
		zap.String("host", config.Database.Host),
		zap.String("database", config.Database.Name),
	)

	return config, logger, db, nil
}
