package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/local/docpress/internal/compress"
	"github.com/local/docpress/internal/queue"
	"github.com/local/docpress/internal/store"
)

type enqueueOptions struct {
	targetMB int
}

func newEnqueueCmd(a *app) *cobra.Command {
	o := &enqueueOptions{}
	cmd := &cobra.Command{
		Use:   "enqueue [files...]",
		Short: "Queue a compression job for the workers",
		Long: `Copy the inputs into STORAGE_DIR and queue a job for the worker pool.
Prints the job token. Submitting inputs whose finished output is still
retained prints the earlier token instead of queueing again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEnqueue(cmd, o, args)
		},
	}
	cmd.Flags().IntVarP(&o.targetMB, "target", "t", 2, "Target document size in MB")
	return cmd
}

func (a *app) runEnqueue(cmd *cobra.Command, o *enqueueOptions, paths []string) error {
	if o.targetMB < 1 {
		return &compress.ValidationError{Kind: compress.InvalidTarget, Input: -1, Message: fmt.Sprintf("target size must be at least 1MB, got %d", o.targetMB)}
	}
	inputs, err := readInputs(paths)
	if err != nil {
		return err
	}
	contents := make([][]byte, len(inputs))
	for i, in := range inputs {
		contents[i] = in.Data
	}
	fp := queue.Fingerprint(o.targetMB, contents...)

	q, err := a.openQueue()
	if err != nil {
		return err
	}
	defer q.Close()
	ctx := cmd.Context()

	if prev, err := q.IdemToken(ctx, fp); err != nil {
		return fmt.Errorf("idempotency lookup: %w", err)
	} else if prev != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (already done)\n", prev)
		return nil
	}

	token := compress.NewToken()
	dir := compress.InputDir(a.cfg.Storage.Dir, token)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create input dir: %w", err)
	}
	refs := make([]queue.InputRef, len(inputs))
	for i, in := range inputs {
		p := filepath.Join(dir, fmt.Sprintf("%02d-%s", i+1, in.Filename))
		if err := os.WriteFile(p, in.Data, 0o644); err != nil {
			_ = os.RemoveAll(dir)
			return fmt.Errorf("stage input: %w", err)
		}
		refs[i] = queue.InputRef{Path: p, MIMEType: in.MIMEType, Filename: in.Filename}
	}

	job := queue.JobRequest{Token: token, TargetMB: o.targetMB, Inputs: refs, Fingerprint: fp, SubmittedAt: time.Now().UTC()}
	if _, err := q.Enqueue(ctx, job); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("enqueue: %w", err)
	}
	if err := a.statusStore(q).Set(ctx, token, store.Status{Status: store.StateQueued, Message: "queued"}); err != nil {
		return fmt.Errorf("record status: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
