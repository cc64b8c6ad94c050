package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"qr-ticketing/internal/config"
	"qr-ticketing/internal/kafka"
	"qr-ticketing/internal/logger"
	"qr-ticketing/internal/models"
	"qr-ticketing/internal/monitoring"
	"qr-ticketing/internal/scanner"
	"qr-ticketing/internal/sse"
	"qr-ticketing/internal/storage"
	"qr-ticketing/internal/tickets"
	qr "qr-ticketing/internal/tickets/qr_generator"
	"qr-ticketing/internal/tickets/ticket_api"
)

const statsInterval = 15 * time.Second

func startScanner(ctx context.Context, cfg config.ScannerConfig, store *tickets.Store, monitor *monitoring.Monitor, log *logger.Logger) (*scanner.Scanner, error) {
	source, err := scanner.NewSource(cfg.Source, cfg.Device, cfg.FramePath)
	if err != nil {
		return nil, err
	}

	sc := scanner.New(source, scanner.Config{
		FPS:          cfg.FPS,
		QRBox:        cfg.QRBox,
		RepeatWindow: cfg.RepeatWindow,
	})
	payloads, err := sc.Start(ctx)
	if err != nil {
		return nil, err
	}

	go func() {
		store.Pump(ctx, payloads, func(payload string, result models.ScanResult) {
			monitor.TrackScan(result)
			log.LogScan(monitoring.ScanOutcome(result), payload)
		})
		if err := sc.Err(); err != nil {
			log.Error("SCANNER", fmt.Sprintf("Scanner stopped: %v", err))
		} else {
			log.Info("SCANNER", "Scanner stream closed")
		}
	}()
	return sc, nil
}

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := logger.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	defer logger.Close()

	logger.Info("APP", "Starting QR ticketing service")
	if envErr != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("STORAGE", fmt.Sprintf("Failed to open %s storage: %v", cfg.Storage.Driver, err))
	}
	defer kv.Close()

	events := sse.NewTicketEventEmitter()
	monitor := monitoring.NewMonitor()
	observers := []tickets.Observer{events, monitor}

	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers %v", cfg.Kafka.Brokers))
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer producer.Close()
		observers = append(observers, producer)
		logger.Info("KAFKA", "Kafka producer initialized successfully")
	}

	store, err := tickets.NewStore(ctx, kv, tickets.WithLogger(logger), tickets.WithObservers(observers...))
	if err != nil {
		logger.Fatal("STORAGE", fmt.Sprintf("Ticket store unavailable: %v", err))
	}
	go monitor.Run(ctx, store, statsInterval)

	if cfg.Scanner.Enabled {
		sc, err := startScanner(ctx, cfg.Scanner, store, monitor, logger)
		if err != nil {
			logger.Fatal("SCANNER", fmt.Sprintf("Failed to start %s scanner: %v", cfg.Scanner.Source, err))
		}
		defer sc.Stop()
		logger.Info("SCANNER", fmt.Sprintf("Scanner reading from %s source", cfg.Scanner.Source))
	}

	handler := ticket_api.NewHandler(store, qr.NewQRGenerator(cfg.QR.ImageSize), events, monitor, logger)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 QR ticketing service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// closes open SSE streams before the server waits on them
	cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ QR ticketing service shutdown complete")
	}
}
