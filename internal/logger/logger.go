package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "docpress"

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Axiom
	SendToAxiom  bool
	AxiomAPIKey  string
	AxiomOrgID   string
	AxiomDataset string
	AxiomFlush   time.Duration
}

var (
	global zerolog.Logger = log.Logger
	ax     *axiomClient
)

// Init sets up the global logger: file rotation, console or JSON stdout, optional Axiom forwarding.
func Init(opts Options) error {
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
	}

	var writers []io.Writer
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}
	// CLI output goes to stdout, so the console copy of the log stream uses stderr.
	if opts.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, os.Stderr)
	}

	if opts.SendToAxiom && opts.AxiomAPIKey != "" {
		client, err := newAxiomClient(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, opts.AxiomFlush)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			ax = client
			writers = append(writers, &axiomWriter{client: client})
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	global = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Str("service", serviceName).Logger()
	log.Logger = global
	return nil
}

// Close flushes any buffered external loggers.
func Close() {
	if ax != nil {
		_ = ax.Close()
		ax = nil
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

// ForJob returns a child logger carrying the job token on every event.
func ForJob(token string) zerolog.Logger {
	return log.Logger.With().Str("token", token).Logger()
}

const (
	shipBatch  = 200
	shipBuffer = 1000
)

// axiomWriter forwards zerolog JSON lines to Axiom. Debug events (per-page
// classification and search detail) stay local.
type axiomWriter struct{ client *axiomClient }

func (w *axiomWriter) Write(p []byte) (int, error) {
	var ev map[string]interface{}
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]interface{}{"message": string(p), "level": "info"}
	}
	if lvl, ok := ev["level"].(string); ok && (lvl == "debug" || lvl == "trace") {
		return len(p), nil
	}
	if _, ok := ev["service"]; !ok {
		ev["service"] = serviceName
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		if ts, ok := ev[zerolog.TimestampFieldName].(string); ok {
			ev[ingest.TimestampField] = ts
			delete(ev, zerolog.TimestampFieldName)
		} else {
			ev[ingest.TimestampField] = time.Now()
		}
	}
	w.client.Send(axiom.Event(ev))
	return len(p), nil
}

// axiomClient batches events and ships them on an interval or when the batch fills.
type axiomClient struct {
	ingest  func(ctx context.Context, batch []axiom.Event) error
	ch      chan axiom.Event
	dropped atomic.Int64
	failed  atomic.Int64
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func newAxiomClient(token, orgID, dataset string, flushEvery time.Duration) (*axiomClient, error) {
	if dataset == "" {
		dataset = "dev_" + serviceName
	}
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return startShipper(func(ctx context.Context, batch []axiom.Event) error {
		_, err := c.IngestEvents(ctx, dataset, batch)
		return err
	}, flushEvery), nil
}

func startShipper(fn func(ctx context.Context, batch []axiom.Event) error, flushEvery time.Duration) *axiomClient {
	ctx, cancel := context.WithCancel(context.Background())
	ac := &axiomClient{ingest: fn, ch: make(chan axiom.Event, shipBuffer), ctx: ctx, cancel: cancel}
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	ac.wg.Add(1)
	go ac.loop(flushEvery)
	return ac
}

// Send queues ev without blocking; events are dropped while the buffer is full.
func (a *axiomClient) Send(ev axiom.Event) {
	select {
	case a.ch <- ev:
	default:
		a.dropped.Add(1)
	}
}

func (a *axiomClient) loop(flushEvery time.Duration) {
	defer a.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()
	batch := make([]axiom.Event, 0, shipBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := a.ingest(ctx, batch); err != nil {
			// The global logger writes here, so report on stderr only.
			if a.failed.Add(1) == 1 {
				fmt.Fprintf(os.Stderr, "axiom ingest failed: %v\n", err)
			}
		}
		cancel()
		batch = batch[:0]
	}
	for {
		select {
		case <-a.ctx.Done():
			for drained := false; !drained; {
				select {
				case ev := <-a.ch:
					batch = append(batch, ev)
					if len(batch) >= shipBatch {
						flush()
					}
				default:
					drained = true
				}
			}
			flush()
			return
		case <-ticker.C:
			flush()
		case ev := <-a.ch:
			batch = append(batch, ev)
			if len(batch) >= shipBatch {
				flush()
			}
		}
	}
}

// Close flushes queued events and stops the shipper.
func (a *axiomClient) Close() error {
	a.cancel()
	a.wg.Wait()
	if n := a.dropped.Load(); n > 0 {
		fmt.Fprintf(os.Stderr, "axiom: %d log events dropped\n", n)
	}
	return nil
}
