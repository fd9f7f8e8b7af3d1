package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"donation-service/internal/config"
	"donation-service/internal/infra/db/postgres"
	"donation-service/internal/infra/email"
	"donation-service/internal/infra/logging"
	"donation-service/internal/infra/metrics"
	red "donation-service/internal/infra/redis"
	stripegw "donation-service/internal/infra/stripe"
	"donation-service/internal/infra/web"
	"donation-service/internal/infra/worker"
	"donation-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	// ---- Postgres ----
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	eventRepo := postgres.NewDonationEventRepo(pool)
	jobRepo := postgres.NewChargeJobRepo(pool)
	userRepo := postgres.NewUserRepo(pool)
	txManager := postgres.NewTxManager(pool)

	// ---- Adapters ----
	gateway := stripegw.NewGateway(cfg.Stripe.APIKey)
	mailer, err := email.NewSender(cfg.Email.APIURL, cfg.Email.APIKey, cfg.Email.From)
	if err != nil {
		logger.Fatal().Err(err).Msg("email sender")
	}

	// ---- Use cases ----
	donationUC := usecase.NewDonationUseCase(gateway, eventRepo, userRepo, logger)
	webhookUC := usecase.NewWebhookUseCase(
		gateway, eventRepo, jobRepo, mailer,
		cfg.Stripe.ChargeableWebhookSecret, cfg.Stripe.PaymentEventWebhookSecret,
		logger,
	)
	chargeUC := usecase.NewChargeUseCase(gateway, eventRepo, userRepo, logger)
	subscriptionUC := usecase.NewSubscriptionUseCase(gateway, eventRepo, logger)

	// ---- Charge worker ----
	workerPool := worker.NewPool(cfg.Worker.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	processor := worker.NewChargeProcessor(
		jobRepo, chargeUC, txManager, locker,
		cfg.Worker.MaxAttempts, cfg.Worker.BaseBackoff, cfg.Worker.PollInterval,
		logger,
	)
	go processor.Start(ctx, workerPool)

	// ---- Public API ----
	auth := web.NewAuthManager(cfg.Web.SessionSecret, !cfg.Runtime.Dev, "", cfg.Web.SessionTTL)
	server := web.NewServer(cfg.Web.Port, donationUC, webhookUC, subscriptionUC, userRepo, auth, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("web server stopped")
		}
	}()

	// ---- Admin surface (health + metrics) ----
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminHandler := web.NewAdminHandler(eventRepo, logger)
	adminMux.Handle("/events", adminHandler)
	adminMux.Handle("/events/", adminHandler)
	adminMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Ping(r.Context()); err != nil {
			http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
			return
		}
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	adminSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.AdminPort),
		Handler:           adminMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", adminSrv.Addr).Msg("admin server listening")
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	_ = adminSrv.Shutdown(shutdownCtx)
	cancel()
}
