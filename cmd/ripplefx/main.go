package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	"github.com/abhonsle123/ripplefx/internal/analysis"
	"github.com/abhonsle123/ripplefx/internal/api/handlers/pipeline"
	"github.com/abhonsle123/ripplefx/internal/api/router"
	"github.com/abhonsle123/ripplefx/internal/api/server"
	"github.com/abhonsle123/ripplefx/internal/classifier"
	"github.com/abhonsle123/ripplefx/internal/config"
	"github.com/abhonsle123/ripplefx/internal/model"
	"github.com/abhonsle123/ripplefx/internal/rabbitmq/queue"
	eventrepo "github.com/abhonsle123/ripplefx/internal/repository/event"
	profilerepo "github.com/abhonsle123/ripplefx/internal/repository/profile"
	queuerepo "github.com/abhonsle123/ripplefx/internal/repository/queue"
	"github.com/abhonsle123/ripplefx/internal/service/dispatch"
	"github.com/abhonsle123/ripplefx/internal/service/ingest"
	"github.com/abhonsle123/ripplefx/internal/source"
	"github.com/abhonsle123/ripplefx/internal/worker"
	"github.com/abhonsle123/ripplefx/pkg/email"
	"github.com/abhonsle123/ripplefx/pkg/sms"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()
	val := validator.New()

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL(), cfg.RabbitMQ.Retries, cfg.RabbitMQ.Pause)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}

	ch, err := conn.Channel()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to open channel")
	}

	analysisQueue, err := queue.NewAnalysisQueue(ch)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to create analysis queue")
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	events := eventrepo.NewRepository(db)
	profiles := profilerepo.NewRepository(db)
	notifQueue := queuerepo.NewRepository(db)

	dbNum, err := strconv.Atoi(cfg.Redis.Database)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse redis database")
	}

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, dbNum)
	if err = rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	smtpPort, err := strconv.Atoi(cfg.Email.SMTPPort)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse email smtp port")
	}

	emailClient := email.NewClient(
		cfg.Email.SMTPHost,
		smtpPort,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.From,
		cfg.Email.Timeout,
	)
	smsClient := sms.NewClient(cfg.SMS.APIURL, cfg.SMS.APIKey, cfg.SMS.From, cfg.SMS.Timeout)

	senders := map[model.Channel]dispatch.Sender{
		model.ChannelEmail: emailClient,
		model.ChannelSMS:   smsClient,
	}

	aiClient := classifier.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	cls := classifier.New(aiClient, cfg.OpenAI.Timeout)

	sources := []source.Adapter{
		source.NewNewsAPIClient(cfg.Sources.NewsAPIKey, cfg.Sources.PageSize),
		source.NewFinnhubClient(cfg.Sources.FinnhubAPIKey, cfg.Sources.PageSize),
	}

	ingestService := ingest.NewService(
		sources,
		events,
		notifQueue,
		profiles,
		cls,
		analysisQueue,
		rdb,
		cfg.Retry,
		cfg.Pipeline.MinSeverity,
		cfg.Workers.Count,
	)
	dispatchService := dispatch.NewService(notifQueue, events, profiles, senders, cfg.Pipeline.DashboardURL)

	analysisClient := analysis.NewClient(cfg.Analysis.URL, cfg.Analysis.APIKey, cfg.Analysis.Timeout)
	analysisWorker := worker.NewAnalysisWorker(analysisQueue, analysisClient, events)
	scheduler := worker.NewScheduler(ingestService, dispatchService, cfg.Pipeline.IngestInterval, cfg.Pipeline.DispatchInterval)

	go analysisWorker.Run(ctx, cfg.Retry, cfg.Workers.Count)
	go scheduler.Run(ctx)

	handler := pipeline.NewHandler(ingestService, dispatchService, events, val, cfg)

	r := router.New(handler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}

	for i, s := range db.Slaves {
		if err := s.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}

	if err := ch.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ channel")
	}

	if err := conn.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ connection")
	}
}
