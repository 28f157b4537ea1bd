package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/local/docpress/internal/compress"
	"github.com/local/docpress/internal/config"
	"github.com/local/docpress/internal/imagerender"
	"github.com/local/docpress/internal/logger"
	"github.com/local/docpress/internal/queue"
	"github.com/local/docpress/internal/storage"
	"github.com/local/docpress/internal/store"
)

// Exit codes returned by Execute.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitValidation = 2
)

type app struct {
	cfg     config.Config
	verbose bool
}

// NewRootCmd builds the command tree. Configuration is read from the
// environment (and .env) before any subcommand runs.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "docpress",
		Short: "Compress scanned documents into a size-bounded PDF",
		Long: `Docpress turns PDFs and page images into a single A4 PDF that fits a
target size, choosing per-page compression by content type.

Jobs run either inline (compress) or through the Redis-backed queue
(enqueue, worker, status, cancel). Finished outputs can be mirrored to S3
and fetched back with fetch.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.FromEnv()
			if a.verbose {
				a.cfg.Logging.Level = "debug"
			}
			return logger.Init(logger.Options{
				Level:        a.cfg.Logging.Level,
				Pretty:       a.cfg.Logging.Pretty,
				File:         a.cfg.Logging.File,
				MaxSizeMB:    a.cfg.Logging.MaxSizeMB,
				MaxBackups:   a.cfg.Logging.MaxBackups,
				MaxAgeDays:   a.cfg.Logging.MaxAgeDays,
				Compress:     a.cfg.Logging.Compress,
				SendToAxiom:  a.cfg.Axiom.Send && a.cfg.Axiom.APIKey != "",
				AxiomAPIKey:  a.cfg.Axiom.APIKey,
				AxiomOrgID:   a.cfg.Axiom.OrgID,
				AxiomDataset: a.cfg.Axiom.Dataset,
				AxiomFlush:   a.cfg.Axiom.FlushInterval,
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) { logger.Close() },
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newCompressCmd(a),
		newEnqueueCmd(a),
		newWorkerCmd(a),
		newStatusCmd(a),
		newCancelCmd(a),
		newFetchCmd(a),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case compress.IsValidation(err):
		return ExitValidation
	default:
		return ExitError
	}
}

func (a *app) serviceConfig() compress.Config {
	return compress.Config{
		Limits: imagerender.Limits{
			MaxFileBytes:     int64(a.cfg.Limits.MaxInputFileMB) * compress.BytesPerMB,
			MaxTotalBytes:    int64(a.cfg.Limits.MaxTotalInputMB) * compress.BytesPerMB,
			AllowedMIMETypes: a.cfg.Limits.AllowedMIMETypes,
		},
		StorageDir:        a.cfg.Storage.Dir,
		PublicPrefix:      a.cfg.Storage.PublicPrefix,
		FileTTL:           a.cfg.FileTTL(),
		EnforcePageLimits: a.cfg.Limits.EnforcePageLimits,
		PageCaps:          a.cfg.Limits.PageCaps,
		Tuning:            compress.DefaultTuning(),
		Workers:           a.cfg.Worker.PageConcurrency,
	}
}

func (a *app) openQueue() (*queue.RedisQueue, error) {
	q, err := queue.NewRedisQueue(a.cfg.Queue.RedisURL, a.cfg.Queue.Stream, a.cfg.Queue.Group, 200*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return q, nil
}

func (a *app) statusStore(q *queue.RedisQueue) *store.RedisStatus {
	return store.NewRedisStatus(q.Client(), a.cfg.FileTTL())
}

func (a *app) openS3(ctx context.Context) (*storage.S3Client, error) {
	if !a.cfg.S3.Enabled {
		return nil, errors.New("S3 mirror is not configured (set S3_MIRROR and S3_BUCKET)")
	}
	return storage.NewS3Client(ctx, storage.Options{
		Bucket:    a.cfg.S3.Bucket,
		Region:    a.cfg.S3.Region,
		Prefix:    a.cfg.S3.Prefix,
		AccessKey: a.cfg.S3.AccessKey,
		SecretKey: a.cfg.S3.SecretKey,
		Endpoint:  a.cfg.S3.Endpoint,
		Password:  a.cfg.S3.Password,
	})
}

// readInputs loads local files as job inputs, sniffing each one's MIME type.
func readInputs(paths []string) ([]imagerender.RawInput, error) {
	inputs := make([]imagerender.RawInput, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		inputs = append(inputs, imagerender.RawInput{
			Data:     data,
			MIMEType: mimetype.Detect(data).String(),
			Filename: filepath.Base(p),
		})
	}
	return inputs, nil
}
