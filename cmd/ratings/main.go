package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-marketplace/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/logging"
	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/ratings"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	workers := pflag.Int("workers", 0, "consumer workers (overrides RATINGS_WORKERS)")
	pflag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logging.New("ratings", "info", "json").WithError(err).Fatal("config")
	}
	if *workers > 0 {
		cfg.RatingsWorkers = *workers
	}
	service := cfg.ServiceName + "-ratings"
	log := logging.New(service, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, service)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &ratings.Service{
		Reviews:     &market.ReviewRepo{DB: db},
		Cache:       &redisx.Cache{R: rdb},
		ServiceName: service,
		Log:         log,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.Brokers(), cfg.RatingsGroup, market.TopicReviewCreated, cfg.RatingsWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.WithFields(logrus.Fields{
			"group":   cfg.RatingsGroup,
			"topic":   market.TopicReviewCreated,
			"workers": cfg.RatingsWorkers,
		}).Info("ratings consumer started")
		if err := cons.Start(ctx, svc.HandleReviewCreated); err != nil {
			log.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done
}
