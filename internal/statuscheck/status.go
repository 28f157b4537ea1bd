package statuscheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Pinger models the minimal capability we need from Redis and S3.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates health checks for the worker's dependencies.
type Checker struct {
	redis      Pinger
	s3         Pinger
	storageDir string
}

// Options configures the Checker. A nil S3 means the mirror is disabled.
type Options struct {
	Redis      Pinger
	S3         Pinger
	StorageDir string
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis   Status `json:"redis"`
	S3      Status `json:"s3"`
	Storage Status `json:"storage"`
}

// Healthy is true when every required subsystem is up.
func (s Summary) Healthy() bool { return s.Redis.OK && s.S3.OK && s.Storage.OK }

func New(opts Options) *Checker {
	return &Checker{redis: opts.Redis, s3: opts.S3, storageDir: opts.StorageDir}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:   c.checkRedis(ctx),
		S3:      c.checkS3(ctx),
		Storage: c.checkStorage(),
	}
}

// Handler serves the summary as JSON; 503 when unhealthy.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sum := c.Summary(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !sum.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(sum)
	})
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: false, Message: "client unavailable"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
	if c.s3 == nil {
		return Status{OK: true, Message: "Mirror disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.s3.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

// checkStorage verifies the artifact directory accepts writes.
func (c *Checker) checkStorage() Status {
	if c.storageDir == "" {
		return Status{OK: false, Message: "Storage dir not configured"}
	}
	if err := os.MkdirAll(c.storageDir, 0o755); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	f, err := os.CreateTemp(c.storageDir, ".healthz-*")
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Status{OK: true, Message: "Writable " + filepath.Clean(c.storageDir)}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
