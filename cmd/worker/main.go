package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/marcelsud/webhook-receiver/bindings"
	"github.com/marcelsud/webhook-receiver/config"
	"github.com/marcelsud/webhook-receiver/handlers/stdwebhook"
	redisq "github.com/marcelsud/webhook-receiver/queue/redis"
	"github.com/marcelsud/webhook-receiver/report"
	"github.com/marcelsud/webhook-receiver/webhook"
	"github.com/marcelsud/webhook-receiver/webhook/postgres"
	"github.com/marcelsud/webhook-receiver/webhook/signature"
	"github.com/marcelsud/webhook-receiver/worker"
	"github.com/rs/zerolog"
)

/* worker - the asynchronous half of the pipeline
 * Consumes processing tasks from the queue and advances the stored records
 * through validation and handler processing. Safe to run many replicas; the
 * database row lock keeps each record processed at most once
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "worker").Logger()
	reporter := report.NewLogReporter(logger, cfg.GetErrorContext())

	repo, err := postgres.NewRepository(cfg.DatabaseURL)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer repo.Close(ctx)

	taskQueue, err := redisq.NewQueue(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer taskQueue.Close(ctx)

	registry, err := buildRegistry(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}

	processor := webhook.NewProcessor(repo, registry, reporter, logger)

	count := cfg.GetWorkerCount()
	logger.Info().Int("worker_count", count).Msg("starting workers")

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		w := worker.New(taskQueue, processor, reporter, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				logger.Error().Err(err).Str("worker_id", w.ID()).Msg("worker stopped with error")
			}
		}()
	}

	wg.Wait()
	logger.Info().Msg("all workers stopped")
}

func buildRegistry(cfg *config.Config) (*webhook.Registry, error) {
	registry := webhook.NewRegistry()

	if cfg.SigningSecret != "" {
		secret, err := signature.ParseSecret(cfg.SigningSecret)
		if err != nil {
			return nil, fmt.Errorf("parsing signing secret: %w", err)
		}
		h, err := stdwebhook.New(stdwebhook.Options{Secrets: []signature.Secret{secret}})
		if err != nil {
			return nil, fmt.Errorf("building stdwebhook handler: %w", err)
		}
		registry.Register("stdwebhook", func() webhook.Handler { return h })
	}

	loader := bindings.NewLoader()
	if err := loader.Load(cfg.GetBindingsFile()); err != nil {
		return nil, fmt.Errorf("loading bindings: %w", err)
	}
	loader.Apply(registry)

	return registry, nil
}
