package compress

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/local/docpress/internal/metrics"
	"github.com/local/docpress/internal/worker"
)

// BytesPerMB converts a target size in MB to bytes.
const BytesPerMB = 1024 * 1024

// BudgetReport summarizes what the controller did to a job.
type BudgetReport struct {
	Target   int64
	Initial  int64
	Final    int64
	Passes   int
	Searches int
	Unmet    int
}

// IndividualRatio damps the global reduction ratio by a page's importance.
// Importance 1.0 halves the reduction applied to the page.
func IndividualRatio(ratio, importance float64) float64 {
	return 1 - (1-ratio)*(1-importance*0.5)
}

// PageBudget is the byte budget of a page of the given size for one pass.
func PageBudget(size int, ratio, importance float64, floor int) int {
	return max(floor, int(math.Round(float64(size)*IndividualRatio(ratio, importance))))
}

// Budget re-encodes pages until the job fits its target or MaxPasses is spent.
type Budget struct {
	Tuning  Tuning
	Workers int
	Log     zerolog.Logger
}

// Apply runs the pass loop over items in place against a target in MB.
func (b Budget) Apply(ctx context.Context, items []*PageItem, canvas image.Point, targetMB int) (BudgetReport, error) {
	return b.ApplyBytes(ctx, items, canvas, int64(targetMB)*BytesPerMB)
}

// ApplyBytes is Apply with the target in bytes. Each pass is a barrier: the
// total is recomputed from every page before the next pass is decided.
func (b Budget) ApplyBytes(ctx context.Context, items []*PageItem, canvas image.Point, target int64) (BudgetReport, error) {
	t := b.Tuning
	report := BudgetReport{Target: target}
	total := totalSize(items)
	report.Initial = total

	for pass := 1; pass <= t.MaxPasses && total > report.Target; pass++ {
		ratio := float64(report.Target) / float64(total)
		b.Log.Info().
			Int("pass", pass).
			Int64("total", total).
			Int64("target", report.Target).
			Float64("ratio", ratio).
			Msg("budget pass")

		var unmet atomic.Int64
		jobs := make([]worker.Job, len(items))
		for i, it := range items {
			it := it
			jobs[i] = worker.Func{Name: fmt.Sprintf("page-%d", it.Index+1), Fn: func(ctx context.Context) error {
				budget := PageBudget(it.Size(), ratio, it.Importance, t.FloorBytes)
				res, err := Search(it.Content, canvas, budget, t.ScaleLadder, t.QualityLadder, t.MinLongEdge)
				if err != nil {
					return err
				}
				metrics.IncReencode(res.Met)
				before := it.Size()
				switch {
				case res.Met:
					it.Encoded, it.Content, it.Canvas = res.Encoded, res.Content, res.Canvas
				case res.Size() < before:
					// best effort keeps the unscaled content for the next pass
					it.Encoded, it.Canvas = res.Encoded, res.Canvas
				}
				if !res.Met {
					unmet.Add(1)
				}
				b.Log.Debug().
					Int("page", it.Index+1).
					Str("category", it.Category.String()).
					Int("budget", budget).
					Int("before", before).
					Int("after", it.Size()).
					Float64("scale", res.Scale).
					Int("quality", res.Quality).
					Bool("met", res.Met).
					Msg("page re-encoded")
				return nil
			}}
		}
		if err := worker.Run(ctx, b.Workers, jobs); err != nil {
			return report, processing("recompress", err)
		}
		metrics.IncBudgetPass()

		report.Passes = pass
		report.Searches += len(items)
		report.Unmet += int(unmet.Load())
		total = totalSize(items)
	}

	report.Final = total
	return report, nil
}
