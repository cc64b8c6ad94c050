package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"qr-ticketing/internal/config"
	"qr-ticketing/internal/kafka"
	"qr-ticketing/internal/logger"
	"qr-ticketing/internal/models"
)

// Follows the ticket event topic and prints every event, one per line.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	flags := pflag.NewFlagSet("ticket-events", pflag.ExitOnError)
	brokers := flags.StringSlice("brokers", cfg.Kafka.Brokers, "kafka brokers")
	topic := flags.String("topic", cfg.Kafka.Topic, "ticket event topic")
	group := flags.String("group", "", "consumer group, empty to follow partition 0 without committing offsets")
	eventType := flags.String("type", "", "only print events of this type, e.g. ticket.validated")
	asJSON := flags.Bool("json", false, "print raw JSON events")
	flags.Parse(os.Args[1:])

	logger := logger.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(*brokers, *topic, *group, logger)
	defer consumer.Close()

	err := consumer.Start(ctx, func(event models.TicketEvent) {
		if *eventType != "" && string(event.Type) != *eventType {
			return
		}
		if *asJSON {
			raw, _ := json.Marshal(event)
			fmt.Println(string(raw))
			return
		}
		printEvent(event)
	})
	if err != nil {
		logger.Error("KAFKA", err.Error())
		os.Exit(1)
	}
}

func printEvent(event models.TicketEvent) {
	stamp := event.OccurredAt.Local().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] %-16s %s %q", stamp, event.Type, event.Ticket.ID, event.Ticket.QRCode)
	if event.Reason != "" {
		line += " (" + event.Reason + ")"
	}

	switch event.Type {
	case models.TicketValidated:
		color.Green("%s", line)
	case models.TicketRejected:
		color.Red("%s", line)
	case models.TicketDeleted:
		color.Yellow("%s", line)
	default:
		color.Cyan("%s", line)
	}
}
