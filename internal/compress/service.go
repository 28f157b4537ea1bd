package compress

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/local/docpress/internal/document"
	"github.com/local/docpress/internal/imagerender"
	"github.com/local/docpress/internal/logger"
	"github.com/local/docpress/internal/metrics"
	"github.com/local/docpress/internal/worker"
)

// Config wires a Service to its limits and storage.
type Config struct {
	Limits            imagerender.Limits
	StorageDir        string
	PublicPrefix      string
	FileTTL           time.Duration
	EnforcePageLimits bool
	// PageCaps maps a target size in MB to the largest page count accepted for it.
	PageCaps     map[int]int
	PreviewLimit int
	Tuning       Tuning
	// Workers bounds per-page parallelism; <= 0 means one per CPU.
	Workers int
}

// Job is one compression request.
type Job struct {
	// Token identifies the job's artifacts; NewToken is used when empty.
	Token    string
	Inputs   []imagerender.RawInput
	TargetMB int
}

// PageReport describes what happened to one page.
type PageReport struct {
	Page            int     `json:"page"`
	Category        string  `json:"category"`
	Importance      float64 `json:"importance"`
	EdgeDensity     float64 `json:"edge_density"`
	ColorComplexity float64 `json:"color_complexity"`
	Orientation     string  `json:"orientation"`
	Rotated         bool    `json:"rotated"`
	InitialBytes    int     `json:"initial_bytes"`
	Bytes           int     `json:"bytes"`
}

// Output is the immutable record of a finished job.
type Output struct {
	Token        string
	DocumentPath string
	// PreviewPaths are public locations, page-1 first.
	PreviewPaths []string
	// PreviewFiles are the matching files on disk.
	PreviewFiles  []string
	PageCount     int
	ExpiresAt     time.Time
	DocumentBytes int64
	InitialBytes  int64
	TargetBytes   int64
	Passes        int
	Pages         []PageReport
}

// Service runs the compression pipeline.
type Service struct {
	cfg       Config
	raster    *imagerender.Rasterizer
	assembler *document.Assembler
	now       func() time.Time
}

// NewService builds a Service. A zero PreviewLimit means document.MaxPreviews.
func NewService(cfg Config) *Service {
	if cfg.PreviewLimit <= 0 {
		cfg.PreviewLimit = document.MaxPreviews
	}
	return &Service{
		cfg:       cfg,
		raster:    imagerender.New(cfg.Limits),
		assembler: document.NewAssembler(),
		now:       time.Now,
	}
}

// NewToken returns a fresh opaque job token.
func NewToken() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

// Process runs a job end to end. Validation failures are reported before any
// file is written; on a ProcessingError the caller owns cleanup (RemoveArtifacts).
func (s *Service) Process(ctx context.Context, job Job) (*Output, error) {
	start := s.now()
	token := job.Token
	if token == "" {
		token = NewToken()
	}
	lg := logger.ForJob(token)

	out, err := s.process(ctx, token, job, lg)
	result := "ok"
	switch {
	case IsValidation(err):
		result = "rejected"
	case err != nil:
		result = "failed"
	}
	metrics.ObserveJob(result, s.now().Sub(start))
	if err != nil {
		lg.Warn().Err(err).Str("result", result).Msg("job did not complete")
		return nil, err
	}
	lg.Info().
		Int("pages", out.PageCount).
		Int64("initial", out.InitialBytes).
		Int64("bytes", out.DocumentBytes).
		Int("passes", out.Passes).
		Dur("took", s.now().Sub(start)).
		Msg("job complete")
	return out, nil
}

func (s *Service) process(ctx context.Context, token string, job Job, lg zerolog.Logger) (*Output, error) {
	if job.TargetMB < 1 {
		return nil, &ValidationError{Kind: InvalidTarget, Input: -1, Message: fmt.Sprintf("target size must be at least 1MB, got %d", job.TargetMB)}
	}

	sources, err := s.raster.Validate(job.Inputs)
	if err != nil {
		return nil, validationFromInput(err)
	}

	total, err := imagerender.TotalPages(sources)
	if err != nil {
		return nil, processing("count", err)
	}
	if err := s.checkPages(total, job.TargetMB); err != nil {
		return nil, err
	}
	lg.Info().Int("inputs", len(sources)).Int("pages", total).Int("target_mb", job.TargetMB).Msg("job accepted")

	rasters, err := s.raster.RenderAll(sources)
	if err != nil {
		return nil, processing("rasterize", err)
	}
	if len(rasters) == 0 {
		return nil, &ValidationError{Kind: NoPages, Input: -1, Message: "inputs produced no pages", Err: ErrNoPages}
	}

	t := s.cfg.Tuning
	items := make([]*PageItem, len(rasters))
	reports := make([]PageReport, len(rasters))
	jobs := make([]worker.Job, len(rasters))
	for i, rp := range rasters {
		i, rp := i, rp
		jobs[i] = worker.Func{Name: fmt.Sprintf("page-%d", i+1), Fn: func(ctx context.Context) error {
			img, label, rotated := Normalize(rp.Image, t)
			cat, f := Classify(img, t)
			cs := t.Spec(cat)
			items[i] = &PageItem{
				Index:      i,
				Category:   cat,
				Importance: cs.Importance,
				Quality:    cs.Profile.Quality,
				Content:    Preprocess(img, cs.Profile, t),
			}
			reports[i] = PageReport{
				Page:            i + 1,
				Category:        cat.String(),
				Importance:      cs.Importance,
				EdgeDensity:     f.EdgeDensity,
				ColorComplexity: f.ColorComplexity,
				Orientation:     label.String(),
				Rotated:         rotated,
			}
			metrics.IncPage(cat.String())
			lg.Debug().
				Int("page", i+1).
				Str("category", cat.String()).
				Float64("edge_density", f.EdgeDensity).
				Float64("color_complexity", f.ColorComplexity).
				Str("orientation", label.String()).
				Bool("rotated", rotated).
				Msg("page classified")
			return nil
		}}
	}
	if err := worker.Run(ctx, s.cfg.Workers, jobs); err != nil {
		return nil, processing("preprocess", err)
	}

	contents := make([]*image.NRGBA, len(items))
	for i, it := range items {
		contents[i] = it.Content
	}
	canvas := CanvasSize(contents, t.MinLongEdge)

	for i, it := range items {
		it := it
		jobs[i] = worker.Func{Name: fmt.Sprintf("page-%d", i+1), Fn: func(ctx context.Context) error {
			cv, enc, err := Compose(it.Content, canvas, it.Quality)
			if err != nil {
				return err
			}
			it.Canvas, it.Encoded = cv, enc
			return nil
		}}
	}
	if err := worker.Run(ctx, s.cfg.Workers, jobs); err != nil {
		return nil, processing("encode", err)
	}
	for i, it := range items {
		reports[i].InitialBytes = it.Size()
	}

	b := Budget{Tuning: t, Workers: s.cfg.Workers, Log: lg}
	report, err := b.Apply(ctx, items, canvas, job.TargetMB)
	if err != nil {
		return nil, err
	}
	if report.Final > report.Target {
		lg.Warn().Int64("total", report.Final).Int64("target", report.Target).Int("unmet", report.Unmet).Msg("target not reached")
	}

	pages := make([][]byte, len(items))
	for i, it := range items {
		pages[i] = it.Encoded
		reports[i].Bytes = it.Size()
	}

	docPath := DocumentPath(s.cfg.StorageDir, token)
	if err := s.assembler.Assemble(pages, docPath); err != nil {
		return nil, processing("assemble", err)
	}
	files, err := document.WritePreviews(PreviewDir(s.cfg.StorageDir, token), pages, s.cfg.PreviewLimit)
	if err != nil {
		return nil, processing("preview", err)
	}
	urls := make([]string, len(files))
	for i := range files {
		urls[i] = PreviewURL(s.cfg.PublicPrefix, token, i+1)
	}

	docBytes, err := fileSize(docPath)
	if err != nil {
		return nil, processing("assemble", err)
	}
	metrics.ObserveDocument(docBytes)

	return &Output{
		Token:         token,
		DocumentPath:  docPath,
		PreviewPaths:  urls,
		PreviewFiles:  files,
		PageCount:     len(items),
		ExpiresAt:     s.now().Add(s.cfg.FileTTL),
		DocumentBytes: docBytes,
		InitialBytes:  report.Initial,
		TargetBytes:   report.Target,
		Passes:        report.Passes,
		Pages:         reports,
	}, nil
}

// checkPages applies the page-count gate. Targets missing from the table are unconstrained.
func (s *Service) checkPages(total, targetMB int) error {
	if total == 0 {
		return &ValidationError{Kind: NoPages, Input: -1, Message: "inputs contain no pages", Err: ErrNoPages}
	}
	if !s.cfg.EnforcePageLimits {
		return nil
	}
	limit, ok := s.cfg.PageCaps[targetMB]
	if !ok || total <= limit {
		return nil
	}
	return &ValidationError{
		Kind:    PageLimitExceeded,
		Input:   -1,
		Message: fmt.Sprintf("%d pages exceed the limit of %d for a %dMB target", total, limit, targetMB),
		Err:     ErrPageLimit,
	}
}

func validationFromInput(err error) error {
	var ie *imagerender.InputError
	if !errors.As(err, &ie) {
		return processing("validate", err)
	}
	kind := UnsupportedType
	switch {
	case errors.Is(err, imagerender.ErrFileTooLarge):
		kind = FileTooLarge
	case errors.Is(err, imagerender.ErrTotalTooLarge):
		kind = TotalTooLarge
	}
	return &ValidationError{Kind: kind, Input: ie.Index, Message: ie.Error(), Err: err}
}
