package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/config"
	"github.com/ariefcatur/go-marketplace/internal/httpx"
	"github.com/ariefcatur/go-marketplace/internal/identity"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/logging"
	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/supabase"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	addr := pflag.String("addr", "", "listen address (overrides HTTP_ADDR)")
	runMigrations := pflag.Bool("migrate", false, "apply database migrations before serving")
	pflag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logging.New("market-api", "info", "json").WithError(err).Fatal("config")
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	log := logging.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	if err := cfg.RequireSupabase(); err != nil {
		log.WithError(err).Fatal("config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if *runMigrations {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			log.WithError(err).Fatal("migrate")
		}
		log.Info("migrations applied")
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.ServiceName)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	cache := &redisx.Cache{R: rdb}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.Brokers(), 1024, log.WithField("component", "producer"))
	prod.Start(ctx)
	events := &kafkax.Emitter{P: prod, Service: cfg.ServiceName, Log: log}

	// Supabase
	sb, err := supabase.New(supabase.Config{
		ProjectURL: cfg.SupabaseURL,
		AnonKey:    cfg.SupabaseAnonKey,
		ServiceKey: cfg.SupabaseServiceKey,
		Timeout:    cfg.SupabaseTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("supabase client")
	}
	resolver := &identity.Resolver{
		Auth:      sb.Auth(),
		JWTSecret: []byte(cfg.SupabaseJWTSecret),
		Cache:     cache,
		CacheTTL:  cfg.IdentityCacheTTL,
		Log:       log,
	}
	requireUser := httpx.RequireUser(resolver, log)

	limiter := httpx.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, log)
	limiter.StartSweeper(ctx, time.Minute, 10*time.Minute)

	// Repos & handlers
	router := httpx.NewRouter(httpx.RouterOptions{
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins(),
		Ready:          map[string]httpx.Pinger{"postgres": db, "redis": cache},
	})
	(&httpx.AuthHandler{Auth: sb.Auth(), Limiter: limiter, Log: log}).Register(router)
	(&httpx.ProductsHandler{
		Products:    &market.ProductRepo{DB: db},
		Cache:       cache,
		CacheTTL:    cfg.ProductCacheTTL,
		Events:      events,
		RequireUser: requireUser,
		Log:         log,
	}).Register(router)
	(&httpx.CartHandler{Carts: &market.CartRepo{DB: db}, Events: events, RequireUser: requireUser, Log: log}).Register(router)
	(&httpx.ReviewsHandler{
		Reviews:     &market.ReviewRepo{DB: db},
		Ratings:     cache,
		Events:      events,
		RequireUser: requireUser,
		Log:         log,
	}).Register(router)
	(&httpx.UploadsHandler{Storage: sb.Storage(), Bucket: cfg.StorageBucket, RequireUser: requireUser, Log: log}).Register(router)

	// HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// graceful shutdown
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	prod.Close()      // close inbox: flush and close the writer
	prod.WaitClosed() // drain
	cancel()
}
