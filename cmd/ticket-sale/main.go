package main

import (
	"context"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"ticketSale/internal/broker/kafka"
	"ticketSale/internal/config"
	"ticketSale/internal/http-server/handlers/event/chatBooking"
	"ticketSale/internal/http-server/handlers/event/createEvent"
	"ticketSale/internal/http-server/handlers/event/getAllEvents"
	"ticketSale/internal/http-server/handlers/event/getEventInfo"
	"ticketSale/internal/http-server/handlers/event/purchaseTicket"
	"ticketSale/internal/http-server/middleware/mwlogger"
	"ticketSale/internal/lib/logger/handlers/slogpretty"
	"ticketSale/internal/lib/logger/sl"
	"ticketSale/internal/purchase"
	"ticketSale/internal/storage/memory"
	"ticketSale/internal/storage/postgres"
	"time"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const schemaTimeout = 30 * time.Second

type eventStore interface {
	createEvent.EventCreator
	getAllEvents.EventsLister
	getEventInfo.EventGetter
	chatBooking.EventFinder
	purchase.Inventory
	Close() error
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting ticket sale", slog.String("env", cfg.Env), slog.String("storage", cfg.StorageDriver))
	log.Debug("Debug messages are enabled")

	store, err := setupStorage(cfg)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	opts := []purchase.Option{purchase.WithTxTimeout(cfg.Purchase.TxTimeout)}

	var publisher *kafka.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		opts = append(opts, purchase.WithNotifier(publisher))

		log.Info("purchase notifications enabled",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Kafka.Topic),
		)
	}

	coordinator := purchase.New(log, store, opts...)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Post("/events", createEvent.New(log, store))
	router.Get("/events", getAllEvents.New(log, store))
	router.Get("/events/{id}", getEventInfo.New(log, store))
	router.Post("/events/{id}/purchase", purchaseTicket.New(log, coordinator))
	router.Post("/chat", chatBooking.New(log, store, coordinator))
	router.Handle("/metrics", promhttp.Handler())

	log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", sl.Err(err))
			stop <- syscall.SIGTERM
		}
	}()

	sign := <-stop

	log.Info("application stopping", slog.String("signal", sign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Purchase.ShutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}

	if err = coordinator.Close(ctx); err != nil {
		log.Error("purchases still in flight at shutdown", sl.Err(err))
	}

	log.Info("application stopped")

	if publisher != nil {
		if err = publisher.Close(); err != nil {
			log.Error("failed to close kafka writer", sl.Err(err))
		}
	}

	if err = store.Close(); err != nil {
		log.Error("failed to close storage", sl.Err(err))
	}

	log.Info("storage closed")
}

func setupStorage(cfg *config.Config) (eventStore, error) {
	if cfg.StorageDriver == config.DriverMemory {
		return memory.New(), nil
	}

	store, err := postgres.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	if err = store.CreateTables(ctx); err != nil {
		return nil, errors.Join(err, store.Close())
	}

	return store, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	h := opts.NewPrettyHandler(os.Stdout)

	return slog.New(h)
}
