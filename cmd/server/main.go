// Command server runs the bloodlink API: donor discovery and actions,
// hospital request management, and the notification fanout.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"bloodlink/internal/donor"
	"bloodlink/internal/donor/geoindex"
	donorhandler "bloodlink/internal/donor/handler"
	"bloodlink/internal/eligibility"
	"bloodlink/internal/events"
	"bloodlink/internal/history"
	"bloodlink/internal/hospital"
	hospitalhandler "bloodlink/internal/hospital/handler"
	hospitalservice "bloodlink/internal/hospital/service"
	"bloodlink/internal/notify"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/httpserver"
	"bloodlink/internal/platform/logger"
	platformredis "bloodlink/internal/platform/redis"
	"bloodlink/internal/request"
	requestmetrics "bloodlink/internal/request/metrics"
	"bloodlink/internal/token"
	httptransport "bloodlink/internal/transport/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.Logging)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	stores, cleanup, err := buildStores(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	var index *geoindex.Index
	redisClient, err := platformredis.New(cfg.Storage.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		index = geoindex.New(redisClient.Client)
		log.Info("redis geo index enabled")
	}

	var publisher *events.Publisher
	if len(cfg.Storage.KafkaBrokers) > 0 {
		publisher, err = events.New(cfg.Storage.KafkaBrokers, cfg.Storage.KafkaTopic, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		log.Info("event publisher enabled", "topic", cfg.Storage.KafkaTopic)
	}

	evaluator := eligibility.NewEvaluator(stores.ledger)
	requestService := request.NewService(stores.requests, evaluator,
		request.WithMetrics(requestmetrics.New()),
		request.WithPublisher(publisher),
		request.WithLogger(log),
	)

	dispatcher := notify.NewDispatcher(
		stores.donors,
		index,
		notify.NewLogNotifier(log),
		notify.Config{
			RadiusKm:            cfg.Notify.FanoutRadiusKm,
			Workers:             cfg.Notify.FanoutWorkers,
			DeliveriesPerSecond: cfg.Notify.DeliveriesPerSecond,
		},
		notify.NewMetrics(),
		log,
	)

	donorService := donor.NewService(
		stores.donors, stores.hospitals, requestService, evaluator,
		stores.ledger, index, cfg.Notify.NearbyRadiusKm, log,
	)
	hospitalService := hospitalservice.New(
		stores.hospitals, requestService, dispatcher, stores.ledger, log,
	)

	tokens := token.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
	router := httptransport.NewRouter(
		donorhandler.New(donorService, requestService, tokens, log),
		hospitalhandler.New(hospitalService, requestService, tokens, log),
	)

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting bloodlink", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

type storeSet struct {
	donors    donor.Store
	hospitals hospital.Store
	requests  request.Store
	ledger    history.Store
}

// buildStores picks Postgres when a DSN is configured, in-memory otherwise.
func buildStores(cfg config.Config, log *slog.Logger) (*storeSet, func(), error) {
	if cfg.Storage.PostgresDSN == "" {
		log.Info("using in-memory stores")
		return &storeSet{
			donors:    donor.NewInMemoryStore(),
			hospitals: hospital.NewInMemoryStore(),
			requests:  request.NewInMemoryStore(),
			ledger:    history.NewInMemoryStore(),
		}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("using postgres stores")
	return &storeSet{
		donors:    donor.NewPostgresStore(db),
		hospitals: hospital.NewPostgresStore(db),
		requests:  request.NewPostgresStore(db),
		ledger:    history.NewPostgresStore(db),
	}, func() { db.Close() }, nil
}
