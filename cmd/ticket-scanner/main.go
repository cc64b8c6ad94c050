package main

import (
	"context"
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
	"qr-ticketing/internal/scanner"
	"qr-ticketing/internal/storage"
	"qr-ticketing/internal/tickets"
)

// Gate-side check-in: runs a scanner directly against the ticket store and
// prints the outcome of every scan.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	flags := pflag.NewFlagSet("ticket-scanner", pflag.ExitOnError)
	source := flags.String("source", cfg.Scanner.Source, "capture source: lines or frames")
	device := flags.String("device", cfg.Scanner.Device, "line device or file, - for stdin")
	frame := flags.String("frame", cfg.Scanner.FramePath, "image file refreshed by the camera capture tool")
	fps := flags.Int("fps", cfg.Scanner.FPS, "frames decoded per second")
	qrBox := flags.Int("qrbox", cfg.Scanner.QRBox, "side of the centred decode region in pixels, 0 for the whole frame")
	repeatWindow := flags.Duration("repeat-window", cfg.Scanner.RepeatWindow, "ignore the same code read again within this window")
	flags.Parse(os.Args[1:])

	logger := logger.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("STORAGE", fmt.Sprintf("Failed to open %s storage: %v", cfg.Storage.Driver, err))
	}
	defer kv.Close()

	var observers []tickets.Observer
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer producer.Close()
		observers = append(observers, producer)
	}

	store, err := tickets.NewStore(ctx, kv, tickets.WithLogger(logger), tickets.WithObservers(observers...))
	if err != nil {
		logger.Fatal("STORAGE", fmt.Sprintf("Ticket store unavailable: %v", err))
	}

	src, err := scanner.NewSource(*source, *device, *frame)
	if err != nil {
		logger.Fatal("SCANNER", err.Error())
	}
	sc := scanner.New(src, scanner.Config{FPS: *fps, QRBox: *qrBox, RepeatWindow: *repeatWindow})

	payloads, err := sc.Start(ctx)
	if err != nil {
		logger.Fatal("SCANNER", fmt.Sprintf("Failed to start %s scanner: %v", *source, err))
	}
	defer sc.Stop()

	printStats(store.Stats(ctx))
	store.Pump(ctx, payloads, func(payload string, result models.ScanResult) {
		printResult(payload, result)
		printStats(store.Stats(ctx))
	})

	if err := sc.Err(); err != nil {
		logger.Error("SCANNER", fmt.Sprintf("Scanner stopped: %v", err))
		os.Exit(1)
	}
}

func printResult(payload string, result models.ScanResult) {
	stamp := result.Timestamp.Local().Format("15:04:05")
	switch {
	case result.Success:
		color.New(color.FgGreen, color.Bold).Printf("[%s] ✅ %s  %s\n", stamp, result.Message, payload)
	case result.Message == models.ScanMessageError:
		color.New(color.FgMagenta, color.Bold).Printf("[%s] ⚠️  %s  %s\n", stamp, result.Message, payload)
	default:
		color.New(color.FgRed, color.Bold).Printf("[%s] ❌ %s  %s\n", stamp, result.Message, payload)
	}
}

func printStats(stats models.TicketStats) {
	color.New(color.FgCyan).Printf("   valid: %d  validated: %d\n", stats.Valid, stats.Validated)
}
