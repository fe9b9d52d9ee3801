package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/app"
	"github.com/xavierca1/leadsync/internal/config"
	"github.com/xavierca1/leadsync/internal/infra/http/handlers"
	"github.com/xavierca1/leadsync/internal/infra/queue"
	"github.com/xavierca1/leadsync/internal/infra/worker"
	"github.com/xavierca1/leadsync/internal/logging"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{ConnectQueue: true})
	if err != nil {
		logger.Fatal("❌ startup failed", zap.Error(err))
	}
	defer a.Close()

	// 1. Queue worker
	var dispatcher worker.Dispatcher = worker.DispatchFunc(a.Pipeline.RunSync)
	if a.RabbitMQ != nil {
		consumer := queue.NewWorker(a.RabbitMQ.Ch, a.Pipeline, logger.Named("queue"))
		go func() {
			if err := consumer.Start(ctx, queue.QueueName); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("❌ queue worker stopped", zap.Error(err))
			}
		}()
		dispatcher = worker.DispatchFunc(func(ctx context.Context, req queue.SyncRequest) error {
			_, err := a.Producer.PublishSyncRequest(ctx, req)
			return err
		})
	}

	// 2. Scheduled sync
	scheduled := worker.NewScheduledSyncWorker(dispatcher, cfg.SyncCampaignIDs, cfg.SyncInterval, a.CRM != nil, logger.Named("schedule"))
	go scheduled.Start(ctx)

	// 3. Handlers
	health := handlers.NewHealthHandler(a.Store, nil, cfg.LemlistEnabled(), cfg.HubSpotEnabled())
	if a.RabbitMQ != nil {
		health.RabbitMQ = a.RabbitMQ.Conn
	}

	campaigns := handlers.NewCampaignHandler(a.Store, a.Pipeline, logger)
	if cfg.LemlistEnabled() {
		campaigns.Remote = a.Lemlist
	}

	syncHandler := handlers.NewSyncHandler(cfg.APIRateLimit, logger)
	if a.Producer != nil {
		syncHandler.Publisher = a.Producer
	} else {
		syncHandler.Runner = a.Pipeline
	}
	go syncHandler.RateLimiter().Cleanup(ctx, 10*time.Minute)

	router := NewRouter(Handlers{
		Health:    health,
		Campaigns: campaigns,
		Leads:     handlers.NewLeadHandler(a.Store, logger),
		Sync:      syncHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("🔥 leadsync API listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("❌ server error", zap.Error(err))
	}
}
