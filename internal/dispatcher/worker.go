package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/docpress/internal/compress"
	"github.com/local/docpress/internal/imagerender"
	"github.com/local/docpress/internal/metrics"
	"github.com/local/docpress/internal/queue"
	"github.com/local/docpress/internal/store"
)

type Queue interface {
	Dequeue(ctx context.Context, consumer string, timeout time.Duration) (queue.Message, bool, error)
	ClaimStale(ctx context.Context, consumer string, minIdle time.Duration) (queue.Message, bool, error)
	Ack(ctx context.Context, msgID string) error
	IsCancelled(ctx context.Context, token string) (bool, error)
	EnqueueDelayed(ctx context.Context, job queue.JobRequest, at time.Time) error
	AddDLQ(ctx context.Context, payload []byte, reason string) error
	MarkIdemDone(ctx context.Context, key, token string, ttl time.Duration) error
	Depths(ctx context.Context) (int64, int64, int64, error)
}

// Processor runs one compression job.
type Processor interface {
	Process(ctx context.Context, job compress.Job) (*compress.Output, error)
}

type StatusStore interface {
	Set(ctx context.Context, token string, st store.Status) error
}

type PageSink interface {
	SavePages(ctx context.Context, token string, reports []any) error
}

// Publisher mirrors finished outputs; nil disables mirroring.
type Publisher interface {
	PublishOutput(ctx context.Context, token, documentPath string, previewFiles []string) ([]string, error)
}

type Config struct {
	Concurrency    int
	JobTimeout     time.Duration
	DequeueTimeout time.Duration
	MaxAttempts    int
	RetryBackoff   time.Duration
	MaxBackoff     time.Duration
	StorageDir     string
	FileTTL        time.Duration

	// ClaimIdle is how long a delivered message may stay unacked before another
	// consumer takes it over. Zero means JobTimeout plus one minute.
	ClaimIdle time.Duration

	// Consumer prefixes the consumer names registered in the group.
	Consumer string
}

// Outcome is what the worker did with one message.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeRejected  Outcome = "rejected"
	OutcomeRetried   Outcome = "retried"
	OutcomeDead      Outcome = "dead"
	OutcomeCancelled Outcome = "cancelled"
)

type Worker struct {
	cfg    Config
	q      Queue
	proc   Processor
	status StatusStore
	pages  PageSink
	pub    Publisher
	now    func() time.Time
	stop   chan struct{}
	wg     sync.WaitGroup
}

func New(cfg Config, q Queue, proc Processor, status StatusStore, pages PageSink, pub Publisher) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.DequeueTimeout <= 0 {
		cfg.DequeueTimeout = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	if cfg.Consumer == "" {
		cfg.Consumer = hostname()
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = cfg.JobTimeout + time.Minute
	}
	return &Worker{cfg: cfg, q: q, proc: proc, status: status, pages: pages, pub: pub, now: time.Now, stop: make(chan struct{})}
}

func (w *Worker) Start() {
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go w.loop(i)
	}
}

// Stop signals the loops and waits for in-flight jobs or ctx, whichever comes first.
func (w *Worker) Stop(ctx context.Context) error {
	close(w.stop)
	done := make(chan struct{})
	go func() { w.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop(id int) {
	defer w.wg.Done()
	consumer := fmt.Sprintf("%s-%d", w.cfg.Consumer, id)
	log.Info().Int("worker", id).Str("consumer", consumer).Msg("dispatcher worker started")
	for {
		select {
		case <-w.stop:
			log.Info().Int("worker", id).Msg("dispatcher worker stopped")
			return
		default:
		}

		msg, ok, err := w.next(consumer)
		if err != nil {
			log.Error().Err(err).Msg("queue dequeue error")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if !ok {
			continue
		}

		outcome := w.Handle(context.Background(), msg)
		log.Debug().Int("worker", id).Str("msg_id", msg.ID).Str("outcome", string(outcome)).Msg("message handled")
		w.reportDepths()
	}
}

// next prefers abandoned messages over new ones.
func (w *Worker) next(consumer string) (queue.Message, bool, error) {
	ctx := context.Background()
	msg, ok, err := w.q.ClaimStale(ctx, consumer, w.cfg.ClaimIdle)
	if err != nil {
		log.Warn().Err(err).Msg("stale claim failed")
	} else if ok {
		log.Warn().Str("msg_id", msg.ID).Str("consumer", consumer).Msg("claimed abandoned job")
		return msg, true, nil
	}
	return w.q.Dequeue(ctx, consumer, w.cfg.DequeueTimeout)
}

// Handle processes one message to a final or retried state and acks it.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) Outcome {
	defer func() {
		if err := w.q.Ack(ctx, msg.ID); err != nil {
			log.Error().Err(err).Str("msg_id", msg.ID).Msg("ack failed")
		}
	}()

	job, err := queue.DecodeJob(msg.Payload)
	if err != nil {
		log.Error().Err(err).Str("msg_id", msg.ID).Msg("undecodable job")
		_ = w.q.AddDLQ(ctx, msg.Payload, "decode")
		return OutcomeDead
	}
	lg := log.With().Str("token", job.Token).Int("attempt", job.Attempt).Logger()

	if cancelled, _ := w.q.IsCancelled(ctx, job.Token); cancelled {
		lg.Warn().Msg("job cancelled before processing; skipping")
		w.setStatus(ctx, job.Token, store.Status{Status: store.StateCancelled, Message: "cancelled", End: w.timePtr()})
		w.removeInputs(job.Token)
		return OutcomeCancelled
	}

	started := w.now()
	w.setStatus(ctx, job.Token, store.Status{Status: store.StateProcessing, Progress: 10, Message: "processing", Start: &started})

	out, err := w.run(ctx, job)
	if err == nil {
		w.finish(ctx, job, out, started)
		return OutcomeDone
	}

	reason, retry := classify(err)
	if !compress.IsValidation(err) {
		if rmErr := compress.RemoveArtifacts(w.cfg.StorageDir, job.Token); rmErr != nil {
			lg.Warn().Err(rmErr).Msg("artifact cleanup failed")
		}
	}
	ended := w.now()

	if retry && job.Attempt+1 < w.cfg.MaxAttempts {
		next := job
		next.Attempt++
		at := w.now().Add(backoff(next.Attempt, w.cfg.RetryBackoff, w.cfg.MaxBackoff))
		qerr := w.q.EnqueueDelayed(ctx, next, at)
		if qerr == nil {
			lg.Warn().Err(err).Str("reason", reason).Time("retry_at", at).Msg("job failed; retry scheduled")
			w.setStatus(ctx, job.Token, store.Status{Status: store.StateQueued, Message: fmt.Sprintf("retrying after %s", reason), Start: &started})
			return OutcomeRetried
		}
		lg.Error().Err(qerr).Msg("failed to schedule retry")
	}

	payload, _ := job.Marshal()
	if dlqErr := w.q.AddDLQ(ctx, payload, reason); dlqErr != nil {
		lg.Error().Err(dlqErr).Msg("failed to push job to DLQ")
	}
	w.removeInputs(job.Token)
	if compress.IsValidation(err) {
		lg.Warn().Err(err).Str("reason", reason).Msg("job rejected")
		w.setStatus(ctx, job.Token, store.Status{Status: store.StateRejected, Progress: 100, Message: err.Error(), Start: &started, End: &ended})
		return OutcomeRejected
	}
	lg.Error().Err(err).Str("reason", reason).Msg("job failed")
	w.setStatus(ctx, job.Token, store.Status{Status: store.StateFailed, Progress: 100, Message: err.Error(), Start: &started, End: &ended})
	return OutcomeDead
}

func (w *Worker) run(ctx context.Context, job queue.JobRequest) (*compress.Output, error) {
	inputs, err := readInputs(job.Inputs)
	if err != nil {
		return nil, err
	}
	jctx := ctx
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jctx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}
	return w.proc.Process(jctx, compress.Job{Token: job.Token, Inputs: inputs, TargetMB: job.TargetMB})
}

func (w *Worker) finish(ctx context.Context, job queue.JobRequest, out *compress.Output, started time.Time) {
	lg := log.With().Str("token", job.Token).Logger()
	meta := map[string]interface{}{
		"document_path":  out.DocumentPath,
		"previews":       out.PreviewPaths,
		"page_count":     out.PageCount,
		"document_bytes": out.DocumentBytes,
		"initial_bytes":  out.InitialBytes,
		"target_bytes":   out.TargetBytes,
		"passes":         out.Passes,
		"expires_at":     out.ExpiresAt.Format(time.RFC3339),
	}
	if w.pub != nil {
		keys, err := w.pub.PublishOutput(ctx, job.Token, out.DocumentPath, out.PreviewFiles)
		if err != nil {
			lg.Warn().Err(err).Msg("S3 mirror failed; local output kept")
			meta["mirror_error"] = err.Error()
		} else {
			meta["s3_keys"] = keys
		}
	}
	if w.pages != nil {
		reports := make([]any, len(out.Pages))
		for i, p := range out.Pages {
			reports[i] = p
		}
		if err := w.pages.SavePages(ctx, job.Token, reports); err != nil {
			lg.Warn().Err(err).Msg("failed to store page reports")
		}
	}
	ended := w.now()
	w.setStatus(ctx, job.Token, store.Status{Status: store.StateSuccess, Progress: 100, Message: "done", Start: &started, End: &ended, Metadata: meta})
	if err := w.q.MarkIdemDone(ctx, job.Fingerprint, job.Token, w.cfg.FileTTL); err != nil {
		lg.Warn().Err(err).Msg("failed to mark idempotency key")
	}
	w.removeInputs(job.Token)
}

func (w *Worker) setStatus(ctx context.Context, token string, st store.Status) {
	if w.status == nil {
		return
	}
	if err := w.status.Set(ctx, token, st); err != nil {
		log.Warn().Err(err).Str("token", token).Str("status", st.Status).Msg("status update failed")
	}
}

func (w *Worker) removeInputs(token string) {
	if w.cfg.StorageDir == "" || token == "" {
		return
	}
	if err := os.RemoveAll(compress.InputDir(w.cfg.StorageDir, token)); err != nil {
		log.Warn().Err(err).Str("token", token).Msg("input cleanup failed")
	}
}

func (w *Worker) reportDepths() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stream, delayed, dlq, err := w.q.Depths(ctx)
	if err != nil {
		return
	}
	metrics.SetQueueDepth("stream", stream)
	metrics.SetQueueDepth("delayed", delayed)
	metrics.SetQueueDepth("dlq", dlq)
}

func (w *Worker) timePtr() *time.Time {
	t := w.now()
	return &t
}

func readInputs(refs []queue.InputRef) ([]imagerender.RawInput, error) {
	if len(refs) == 0 {
		return nil, &FatalError{Reason: "no_inputs", Err: errors.New("job carries no inputs")}
	}
	out := make([]imagerender.RawInput, len(refs))
	for i, ref := range refs {
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			return nil, &InputError{Path: ref.Path, Err: err}
		}
		out[i] = imagerender.RawInput{Data: data, MIMEType: ref.MIMEType, Filename: ref.Filename}
	}
	return out, nil
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "worker"
}
