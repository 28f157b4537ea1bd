package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/local/docpress/internal/store"
)

type statusOptions struct {
	pages  int
	asJSON bool
}

func newStatusCmd(a *app) *cobra.Command {
	o := &statusOptions{}
	cmd := &cobra.Command{
		Use:   "status <token>",
		Short: "Show the state of a queued job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd, o, args[0])
		},
	}
	cmd.Flags().IntVar(&o.pages, "pages", 0, "Also show up to this many per-page reports")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Print the status as JSON")
	return cmd
}

func (a *app) runStatus(cmd *cobra.Command, o *statusOptions, token string) error {
	q, err := a.openQueue()
	if err != nil {
		return err
	}
	defer q.Close()
	ctx := cmd.Context()

	st, ok, err := a.statusStore(q).Get(ctx, token)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if !ok {
		return fmt.Errorf("no job with token %s (unknown or expired)", token)
	}
	var pages []map[string]string
	if o.pages > 0 {
		pages, err = store.NewPageStore(q.Client(), a.cfg.FileTTL()).GetPages(ctx, token, o.pages)
		if err != nil {
			return fmt.Errorf("read pages: %w", err)
		}
	}

	w := cmd.OutOrStdout()
	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			store.Status
			Pages []map[string]string `json:"pages,omitempty"`
		}{st, pages})
	}

	fmt.Fprintf(w, "Status:   %s (%d%%)\n", st.Status, st.Progress)
	if st.Message != "" {
		fmt.Fprintf(w, "Message:  %s\n", st.Message)
	}
	if st.Start != nil {
		fmt.Fprintf(w, "Started:  %s\n", humanize.Time(*st.Start))
	}
	if st.Start != nil && st.End != nil {
		fmt.Fprintf(w, "Took:     %s\n", st.End.Sub(*st.Start).Round(time.Millisecond))
	}
	keys := make([]string, 0, len(st.Metadata))
	for k := range st.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-15s %v\n", k+":", st.Metadata[k])
	}
	for _, p := range pages {
		fmt.Fprintf(w, "  page %3s  %-11s %s bytes\n", p["page"], p["category"], p["bytes"])
	}
	return nil
}

func newCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <token>",
		Short: "Cancel a queued job before a worker picks it up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.openQueue()
			if err != nil {
				return err
			}
			defer q.Close()
			if err := q.CancelJob(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("cancel: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s cancelled\n", args[0])
			return nil
		},
	}
}
