// Command paperboard runs the past-papers and feed API and its helpers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/config"
	"github.com/emilythestrangee/paperboard/backend/internal/database"
	"github.com/emilythestrangee/paperboard/backend/internal/logging"
)

var (
	// Global flags
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "paperboard",
	Short: "Past papers directory and campus feed API",
	Long: `paperboard serves the past-papers directory and the social feed
(posts, replies, likes, retweets, bookmarks and notifications).

Configuration comes from .env, an optional YAML file (--config or
PAPERBOARD_CONFIG) and the environment, in increasing precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv("PAPERBOARD_CONFIG", configPath); err != nil {
				return err
			}
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Env)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, notifierCmd)
}

// openDatabase connects and optionally migrates.
func openDatabase(cmd *cobra.Command, migrate bool) (database.Service, error) {
	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := db.Migrate(cmd.Context()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
