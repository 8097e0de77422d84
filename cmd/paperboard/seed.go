package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/paperboard/backend/internal/auth"
	"github.com/emilythestrangee/paperboard/backend/internal/events"
	"github.com/emilythestrangee/paperboard/backend/internal/seed"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
)

var seedOpts seed.Options

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users, papers and posts",
	Long: `seed registers fake accounts (password "123456"), uploads paper records
and writes posts, replies and likes through the regular services so every
counter matches the rows behind it.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.Users, "users", 20, "number of users")
	seedCmd.Flags().IntVar(&seedOpts.Papers, "papers", 30, "number of papers")
	seedCmd.Flags().IntVar(&seedOpts.Posts, "posts", 200, "number of posts and replies")
	seedCmd.Flags().Int64Var(&seedOpts.Seed, "seed", 0, "random seed (0 picks one from the clock)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	db, err := openDatabase(cmd, true)
	if err != nil {
		return err
	}
	defer db.Close()

	if seedOpts.Seed == 0 {
		seedOpts.Seed = time.Now().UnixNano()
	}

	gdb := db.GetDB()
	notifications := services.NewNotificationService(gdb, logger)
	pub := events.NewDispatcher(notifications.HandleEvent)
	s := seed.New(
		services.NewUserService(gdb, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), nil, logger),
		services.NewPaperService(gdb, pub, nil, logger),
		services.NewFeedService(gdb, pub, logger),
		logger,
	)

	sum, err := s.Run(cmd.Context(), seedOpts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d papers, %d posts, %d replies, %d likes\n",
		sum.Users, sum.Papers, sum.Posts, sum.Replies, sum.Likes)
	return nil
}
