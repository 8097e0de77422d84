package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := openDatabase(cmd, true)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("migrations applied")
	return nil
}
