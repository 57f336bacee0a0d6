package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-receiver/bindings"
	"github.com/marcelsud/webhook-receiver/config"
	"github.com/marcelsud/webhook-receiver/handlers/stdwebhook"
	"github.com/marcelsud/webhook-receiver/internal/http/chi"
	"github.com/marcelsud/webhook-receiver/metrics"
	redisq "github.com/marcelsud/webhook-receiver/queue/redis"
	"github.com/marcelsud/webhook-receiver/report"
	"github.com/marcelsud/webhook-receiver/webhook"
	"github.com/marcelsud/webhook-receiver/webhook/postgres"
	"github.com/marcelsud/webhook-receiver/webhook/signature"
	"github.com/rs/zerolog"
)

const TIMEOUT = 30 * time.Second

/* api - the synchronous half of the pipeline
 * Receives webhooks over HTTP, persists them deduplicated, and enqueues one
 * processing task per new record. Processing itself happens in cmd/worker
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

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()
	reporter := report.NewLogReporter(logger, cfg.GetErrorContext())

	repo, err := postgres.NewRepository(cfg.DatabaseURL)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer repo.Close(ctx)
	if err := repo.CreateTable(ctx); err != nil {
		fmt.Println(err)
		return
	}

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

	collector := metrics.NewStoreCollector(repo.DB, taskQueue)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer exporter.Shutdown(ctx) //nolint:errcheck

	s := webhook.NewService(registry, repo, taskQueue, reporter)
	r := chi.Handlers(ctx, s, cfg.GetRequestBodySizeLimit(), exporter.ServeHTTP())
	http.Handle("/", r)
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      http.DefaultServeMux,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
		return
	}
}

/* buildRegistry wires the known handler factories and applies the
 * service-id bindings from bindings.yaml
 */
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
		// The handler is immutable, one instance serves all requests.
		registry.Register("stdwebhook", func() webhook.Handler { return h })
	}

	loader := bindings.NewLoader()
	if err := loader.Load(cfg.GetBindingsFile()); err != nil {
		return nil, fmt.Errorf("loading bindings: %w", err)
	}
	loader.Apply(registry)

	return registry, nil
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
