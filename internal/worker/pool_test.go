package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

func TestRunProcessesAllJobs(t *testing.T) {
	var done atomic.Int64
	out := make([]int, 50)
	jobs := make([]Job, len(out))
	for i := range jobs {
		i := i
		jobs[i] = Func{Name: fmt.Sprintf("job-%d", i), Fn: func(ctx context.Context) error {
			out[i] = i * i
			done.Add(1)
			return nil
		}}
	}

	if err := Run(context.Background(), 4, jobs); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if done.Load() != 50 {
		t.Errorf("Expected 50 jobs done, got %d", done.Load())
	}
	for i, v := range out {
		if v != i*i {
			t.Errorf("Expected slot %d = %d, got %d", i, i*i, v)
		}
	}
}

func TestRunReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	jobs := []Job{
		Func{Name: "ok", Fn: func(ctx context.Context) error { return nil }},
		Func{Name: "bad", Fn: func(ctx context.Context) error { return boom }},
	}
	err := Run(context.Background(), 1, jobs)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
}

func TestRunEmpty(t *testing.T) {
	if err := Run(context.Background(), 0, nil); err != nil {
		t.Errorf("Expected nil for no jobs, got %v", err)
	}
}

func TestPoolDefaultsToCPUCount(t *testing.T) {
	p := NewPool(context.Background(), 0)
	if p.WorkerCount() <= 0 {
		t.Errorf("Expected positive worker count, got %d", p.WorkerCount())
	}
	p.Start()
	p.Stop()
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Int64
	jobs := []Job{Func{Name: "a", Fn: func(ctx context.Context) error { ran.Add(1); return nil }}}
	if err := Run(ctx, 1, jobs); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if ran.Load() != 0 {
		t.Errorf("Expected no job to run, got %d", ran.Load())
	}
}
