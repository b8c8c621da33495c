// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"corrida/internal/config"
	"corrida/internal/events"
	httptransport "corrida/internal/http"
	"corrida/internal/infra"
	"corrida/internal/logger"
	"corrida/internal/maps"
	"corrida/internal/modules/fare"
	"corrida/internal/modules/ride"
	"corrida/internal/modules/route"
	"corrida/internal/modules/tracking"
	"corrida/internal/modules/wallet"
	"corrida/internal/payments"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DBDSN)
	if err != nil {
		zlog.Fatal("postgres init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	if cfg.GoogleMapsAPIKey == "" {
		zlog.Fatal("CORRIDA_MAPS_API_KEY is required")
	}
	directions, err := maps.NewDirectionsProvider(cfg.GoogleMapsAPIKey)
	if err != nil {
		zlog.Fatal("maps init", zap.Error(err))
	}
	resolver := route.NewResolver(directions)

	fareStore := fare.NewStore(dbPool)
	registry, err := fareStore.LoadRegistry(ctx, cfg.Currency)
	if err != nil {
		zlog.Fatal("fare classes", zap.Error(err))
	}

	var observer ride.Observer
	if cfg.KafkaEventsEnable {
		producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaRideTopic, zlog)
		if err != nil {
			zlog.Fatal("kafka init", zap.Error(err))
		}
		defer func() { _ = producer.Close() }()
		observer = producer
	}

	rideSvc := ride.NewService(ride.Deps{
		Registry:  registry,
		Resolver:  resolver,
		Ledger:    wallet.NewStore(dbPool),
		Processor: payments.NewLoggingProcessor(zlog),
		Store:     ride.NewStore(dbPool),
		Observer:  observer,
	})

	server := httptransport.NewServer(httptransport.ServerDeps{
		Ride:     rideSvc,
		Fares:    registry,
		Tracking: tracking.NewPublisher(tracking.NewGeoStore(redisClient), cfg.JitterThresholdKm),
		Log:      zlog,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zlog.Info("listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Fatal("server", zap.Error(err))
	}
}
