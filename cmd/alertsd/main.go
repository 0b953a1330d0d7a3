package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/config"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/metrics"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/pipeline"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/publisher"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/server"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (default: search working directory)")
	logLevel := flag.String("log-level", "", "log level override (trace|debug|info|warn|error)")
	once := flag.Bool("once", false, "run a single ingest and publish pass, then exit")
	dryRun := flag.Bool("dry-run", false, "log summaries instead of posting them")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	logger.Info().Str("feed", cfg.Feed.URL).Str("driver", cfg.Database.Driver).Msg("starting alertsd")

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("store close error")
		}
	}()

	m := metrics.New()

	var poster publisher.Poster
	if *dryRun || cfg.Publisher.WebhookURL == "" {
		poster = &publisher.LogPoster{Log: logger}
	} else {
		poster = publisher.NewWebhookPoster(
			cfg.Publisher.WebhookURL,
			cfg.Publisher.WebhookToken,
			time.Duration(cfg.Feed.TimeoutMS)*time.Millisecond,
		)
	}
	pub := publisher.New(st, poster, m, logger, publisher.Options{
		Hashtag:    cfg.Publisher.Hashtag,
		StuckAfter: time.Duration(cfg.Publisher.StuckAfterMS) * time.Millisecond,
		BatchLimit: cfg.Publisher.BatchLimit,
	})

	client := gtfsrt.NewClient(time.Duration(cfg.Feed.TimeoutMS) * time.Millisecond)
	pipe := pipeline.New(client, cfg.Feed.URL, st, pub, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		if _, err := pipe.Run(ctx); err != nil {
			logger.Fatal().Err(err).Msg("ingest pass failed")
		}
		if err := pub.PublishPending(ctx); err != nil {
			logger.Fatal().Err(err).Msg("publish pass failed")
		}
		return
	}

	go pub.Run(ctx)
	go pollLoop(ctx, pipe, time.Duration(cfg.Feed.PollIntervalMS)*time.Millisecond, logger)

	handler := server.NewHandler(st, pipe, pub, m.Handler(), cfg.Server.AuthToken, logger)
	srv := server.New(cfg.Server.Port, handler, logger)
	srv.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("shutdown complete")
}

// pollLoop runs an immediate ingest pass, then one per interval. Poll
// failures are logged and the loop keeps going; the feed being briefly
// unreachable is routine.
func pollLoop(ctx context.Context, pipe *pipeline.Pipeline, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = time.Duration(config.DefaultPollIntervalMS) * time.Millisecond
	}
	run := func() {
		if _, err := pipe.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("poll pass failed")
		}
	}
	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
