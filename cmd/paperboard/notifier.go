package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/paperboard/backend/internal/events"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Consume feed events and store notifications",
	RunE:  runNotifier,
}

func runNotifier(cmd *cobra.Command, args []string) error {
	if !cfg.Kafka.Enabled() {
		return errors.New("notifier: KAFKA_BROKERS is not set")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	notifications := services.NewNotificationService(db.GetDB(), logger)
	consumer := events.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, notifications.HandleEvent, logger)
	return consumer.Run(ctx)
}
