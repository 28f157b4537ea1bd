package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/docpress/internal/compress"
	"github.com/local/docpress/internal/dispatcher"
	"github.com/local/docpress/internal/metrics"
	"github.com/local/docpress/internal/statuscheck"
	"github.com/local/docpress/internal/store"
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume queued jobs until interrupted",
		Long: `Run WORKER_CONCURRENCY consumers against the job stream. Serves
/metrics and /healthz on METRICS_ADDR. SIGINT or SIGTERM stops taking new
jobs and waits for running ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorker(cmd)
		},
	}
}

func (a *app) runWorker(cmd *cobra.Command) error {
	metrics.Init()

	q, err := a.openQueue()
	if err != nil {
		return err
	}
	defer q.Close()

	check := statuscheck.Options{Redis: q, StorageDir: a.cfg.Storage.Dir}
	var pub dispatcher.Publisher
	if a.cfg.S3.Enabled {
		s3c, err := a.openS3(cmd.Context())
		if err != nil {
			return err
		}
		pub, check.S3 = s3c, s3c
	}

	ttl := a.cfg.FileTTL()
	w := dispatcher.New(dispatcher.Config{
		Concurrency:    a.cfg.Worker.Concurrency,
		JobTimeout:     a.cfg.Worker.JobTimeout,
		DequeueTimeout: a.cfg.Worker.DequeueTimeout,
		MaxAttempts:    a.cfg.Worker.MaxAttempts,
		RetryBackoff:   a.cfg.Worker.RetryBackoff,
		StorageDir:     a.cfg.Storage.Dir,
		FileTTL:        ttl,
	}, q, compress.NewService(a.serviceConfig()), store.NewRedisStatus(q.Client(), ttl), store.NewPageStore(q.Client(), ttl), pub)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/healthz", statuscheck.New(check).Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", a.cfg.Metrics.Addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	w.Start()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Worker.JobTimeout+10*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("workers did not drain in time")
	}
	_ = srv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
	return nil
}
