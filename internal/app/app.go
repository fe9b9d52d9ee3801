package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/leadsync/internal/config"
	"github.com/xavierca1/leadsync/internal/enrichment"
	"github.com/xavierca1/leadsync/internal/infra/database"
	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
	"github.com/xavierca1/leadsync/internal/infra/integration/hubspot"
	"github.com/xavierca1/leadsync/internal/infra/integration/lemlist"
	"github.com/xavierca1/leadsync/internal/infra/mail"
	"github.com/xavierca1/leadsync/internal/infra/queue"
	"github.com/xavierca1/leadsync/internal/usecase"
)

// App holds the wired components shared by the CLI and the API server.
// HubSpot, RabbitMQ and mail parts stay nil when they are not configured.
type App struct {
	Config config.Config
	Logger *zap.Logger

	Store    *database.Store
	Lemlist  *lemlist.Client
	HubSpot  *hubspot.Client
	RabbitMQ *queue.RabbitMQ
	Producer *queue.RabbitMQProducer

	Sync     *usecase.SyncCampaignUseCase
	Details  *usecase.FetchLeadDetailsUseCase
	Classify *usecase.ClassifyLeadsUseCase
	CRM      *usecase.SyncCRMUseCase
	Notes    *usecase.NotesCleanupUseCase
	Pipeline *usecase.SyncPipeline
}

type Options struct {
	// ConnectQueue dials RabbitMQ when RABBITMQ_URL is set.
	ConnectQueue bool
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	policy, err := database.ParseIntegrityPolicy(cfg.IntegrityPolicy)
	if err != nil {
		return nil, err
	}
	db, dialect, err := database.NewDBConnection(ctx, cfg.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", cfg.CacheDSN, err)
	}
	a.Store = database.NewStore(db, dialect, policy)
	logger.Info("🗄️ cache ready", zap.String("dialect", dialect.String()))

	retry := httpclient.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.HTTPMaxAttempts
	retry.BaseDelay = cfg.HTTPBaseDelay
	retry.MaxDelay = cfg.HTTPMaxDelay

	a.Lemlist = lemlist.NewClient(lemlist.Config{
		APIKey:             cfg.LemlistAPIKey,
		BaseURL:            cfg.LemlistBaseURL,
		PageSize:           cfg.LemlistPageSize,
		PageDelay:          cfg.LemlistPageDelay,
		RateLimitThreshold: cfg.LemlistRateLimitThreshold,
		Timeout:            cfg.HTTPTimeout,
		Retry:              retry,
		Logger:             logger.Named("lemlist"),
	})
	if !cfg.LemlistEnabled() {
		logger.Warn("LEMLIST_API_KEY is not set, Lemlist calls will be rejected")
	}

	a.Sync = usecase.NewSyncCampaignUseCase(a.Lemlist, a.Store, a.Store, a.Store, logger)

	a.Details = usecase.NewFetchLeadDetailsUseCase(a.Lemlist, a.Store, logger)
	a.Details.Delay = cfg.DetailDelay
	a.Details.GroupSize = cfg.DetailGroupSize
	a.Details.GroupPause = cfg.DetailGroupPause

	a.Classify = usecase.NewClassifyLeadsUseCase(a.Store, logger)

	if cfg.HubSpotEnabled() {
		a.HubSpot = hubspot.NewClient(hubspot.Config{
			Token:   cfg.HubSpotToken,
			BaseURL: cfg.HubSpotBaseURL,
			Timeout: cfg.HTTPTimeout,
			Retry:   retry,
			Logger:  logger.Named("hubspot"),
		})
		engine := enrichment.NewEngine(nil, enrichment.Thresholds{
			High:             cfg.ScoreHigh,
			Medium:           cfg.ScoreMedium,
			Low:              cfg.ScoreLow,
			NewMaxActivities: cfg.NewMaxActivities,
		})
		a.CRM = usecase.NewSyncCRMUseCase(a.Store, a.Store, a.HubSpot, engine, logger)
		a.CRM.BatchSize = cfg.HubSpotBatchSize
		a.CRM.BatchDelay = cfg.HubSpotBatchDelay
		a.Notes = usecase.NewNotesCleanupUseCase(a.Store, a.HubSpot, logger)
	}

	a.Pipeline = usecase.NewSyncPipeline(a.Sync, a.Details, a.Classify, a.CRM, nil, nil, logger)
	a.Pipeline.Cache = a.Store
	if cfg.MailEnabled() {
		a.Pipeline.Reports = mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, cfg.ReportRecipient)
	}

	if opts.ConnectQueue && cfg.QueueEnabled() {
		rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.RabbitMQ = rmq
		a.Producer = queue.NewProducer(rmq.Ch)
		a.Pipeline.Events = a.Producer
		logger.Info("🐇 rabbitmq connected", zap.String("queue", queue.QueueName))
	}

	return a, nil
}

func (a *App) Close() {
	if a.RabbitMQ != nil {
		if err := a.RabbitMQ.Close(); err != nil {
			a.Logger.Warn("⚠️ closing rabbitmq", zap.Error(err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("⚠️ closing cache", zap.Error(err))
		}
	}
}
