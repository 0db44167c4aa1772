package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"pulsepost/internal/config"
	"pulsepost/internal/infra/alert"
	"pulsepost/internal/infra/bluesky"
	"pulsepost/internal/infra/generator"
	"pulsepost/internal/infra/news"
	"pulsepost/internal/observability/logging"
	"pulsepost/internal/observability/metrics"
	"pulsepost/internal/resilience/circuitbreaker"
	"pulsepost/internal/resilience/recovery"
	"pulsepost/internal/usecase/post"
)

// defaultBannedTerms keeps obvious scam and shill language out of posts no
// matter what the generator produces.
var defaultBannedTerms = []string{
	"guaranteed returns",
	"financial advice",
	"to the moon",
	"airdrop",
	"giveaway",
}

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.String("cron_schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.String("generator_provider", cfg.Generator.Provider),
		slog.Bool("dry_run", cfg.Bluesky.DryRun),
		slog.Int("admin_port", cfg.AdminPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	breakers := setupBreakers()
	orchestrator := recovery.NewOrchestrator(metrics.NewErrorSink(), setupAlerter(cfg.Alert))

	service, err := setupService(cfg, breakers, orchestrator)
	if err != nil {
		logger.Error("failed to build posting pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	startAdminServer(ctx, logger, cfg.AdminPort, breakers, orchestrator)

	scheduler, err := startScheduler(logger, cfg, service, orchestrator)
	if err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("agent started", slog.String("schedule", cfg.CronSchedule))
	<-ctx.Done()

	logger.Info("shutdown signal received")
	cronCtx := scheduler.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("running job did not finish before shutdown deadline")
	}
	logger.Info("agent stopped")
}

// setupBreakers creates the registry and registers the pipeline breakers up
// front so their state is visible on the health endpoint before the first
// cycle runs.
func setupBreakers() *circuitbreaker.Registry {
	recorder := metrics.NewBreakerRecorder()
	reg := circuitbreaker.NewRegistry()

	newsCfg := circuitbreaker.NewsAPIConfig()
	newsCfg.Metrics = recorder
	reg.GetOrCreate(post.BreakerNewsAPI, newsCfg)

	genCfg := circuitbreaker.GeneratorConfig()
	genCfg.Metrics = recorder
	reg.GetOrCreate(post.BreakerGenerator, genCfg)

	pubCfg := circuitbreaker.PublisherConfig()
	pubCfg.Metrics = recorder
	reg.GetOrCreate(post.BreakerPublisher, pubCfg)

	return reg
}

// setupAlerter builds the alert chain: severe failures always hit the log,
// and additionally Slack when a webhook is configured.
func setupAlerter(cfg config.AlertConfig) recovery.Alerter {
	slogAlerter := alert.NewSlogAlerter(nil)
	if cfg.SlackWebhookURL == "" {
		slog.Info("no alert webhook configured, alerting to log only")
		return slogAlerter
	}

	slackAlerter := alert.NewSlackAlerter(alert.SlackConfig{
		WebhookURL: cfg.SlackWebhookURL,
		Cooldown:   cfg.Cooldown,
	})
	slog.Info("slack alerting enabled", slog.Duration("cooldown", cfg.Cooldown))
	return alert.NewMulti(slogAlerter, slackAlerter)
}

// setupService wires the posting pipeline from configuration.
func setupService(cfg config.AgentConfig, breakers *circuitbreaker.Registry, orchestrator *recovery.Orchestrator) (*post.Service, error) {
	fetcher := news.NewFetcher(newHTTPClient(), news.Config{
		FeedURLs:     cfg.News.FeedURLs,
		Keywords:     cfg.News.Keywords,
		MaxItems:     cfg.News.MaxItems,
		FetchContent: cfg.News.FetchContent,
		FetchTimeout: cfg.News.FetchTimeout,
	})

	composer, err := generator.New(generator.Config{
		Provider:       cfg.Generator.Provider,
		APIKey:         cfg.Generator.APIKey,
		Model:          cfg.Generator.Model,
		MaxTokens:      cfg.Generator.MaxTokens,
		Temperature:    float32(cfg.Generator.Temperature),
		CharacterLimit: cfg.Generator.CharacterLimit,
	})
	if err != nil {
		return nil, err
	}

	publisher := bluesky.NewClient(bluesky.Config{
		Host:     cfg.Bluesky.Host,
		Handle:   cfg.Bluesky.Handle,
		Password: cfg.Bluesky.Password,
		DryRun:   cfg.Bluesky.DryRun,
	})

	filter := post.NewContentFilter(post.FilterConfig{
		MaxLength:   cfg.Generator.CharacterLimit,
		BannedTerms: defaultBannedTerms,
	})

	return post.NewService(fetcher, composer, publisher, filter, breakers, orchestrator), nil
}

// startScheduler runs the posting cycle on the configured cron schedule and
// prunes old error records hourly.
func startScheduler(logger *slog.Logger, cfg config.AgentConfig, service *post.Service, orchestrator *recovery.Orchestrator) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC",
			slog.String("timezone", cfg.Timezone),
			slog.Any("error", err))
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))

	if _, err := c.AddFunc(cfg.CronSchedule, func() {
		runCycle(logger, service, cfg.PipelineTimeout)
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc("@hourly", func() {
		pruned := orchestrator.PruneOlderThan(cfg.RecordRetention)
		if pruned > 0 {
			logger.Info("pruned error records",
				slog.Int("pruned", pruned),
				slog.Duration("retention", cfg.RecordRetention))
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}

// runCycle executes one posting cycle with its own timeout.
func runCycle(logger *slog.Logger, service *post.Service, timeout time.Duration) {
	start := time.Now()
	logger.Info("posting cycle started")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := service.Run(ctx); err != nil {
		logger.Error("posting cycle failed",
			slog.Any("error", err),
			slog.Duration("duration", time.Since(start)))
		return
	}

	logger.Info("posting cycle finished", slog.Duration("duration", time.Since(start)))
}

// newHTTPClient builds the shared outbound HTTP client with pooling and
// TLS 1.2+ enforced.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
