package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/docpress/internal/compress"
)

type compressOptions struct {
	targetMB int
	output   string
	asJSON   bool
}

func newCompressCmd(a *app) *cobra.Command {
	o := &compressOptions{}
	cmd := &cobra.Command{
		Use:   "compress [files...]",
		Short: "Compress inputs into one PDF right away",
		Long: `Compress PDFs and page images into one A4 PDF of at most --target MB.

Inputs keep their order; pages within a PDF keep theirs. The document and
up to 10 page previews are written under STORAGE_DIR.

Examples:
  docpress compress scan1.jpg scan2.jpg -t 2
  docpress compress contract.pdf annex.png -t 5 -o contract-small.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompress(cmd, o, args)
		},
	}
	cmd.Flags().IntVarP(&o.targetMB, "target", "t", 2, "Target document size in MB")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Also copy the document to this path")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Print the job output as JSON")
	return cmd
}

func (a *app) runCompress(cmd *cobra.Command, o *compressOptions, paths []string) error {
	inputs, err := readInputs(paths)
	if err != nil {
		return err
	}

	token := compress.NewToken()
	svc := compress.NewService(a.serviceConfig())
	out, err := svc.Process(cmd.Context(), compress.Job{Token: token, Inputs: inputs, TargetMB: o.targetMB})
	if err != nil {
		if !compress.IsValidation(err) {
			if rmErr := compress.RemoveArtifacts(a.cfg.Storage.Dir, token); rmErr != nil {
				log.Warn().Err(rmErr).Str("token", token).Msg("failed to remove partial output")
			}
		}
		return err
	}

	if o.output != "" {
		if err := copyFile(out.DocumentPath, o.output); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	w := cmd.OutOrStdout()
	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printOutput(w, out, o.output)
	return nil
}

func printOutput(w io.Writer, out *compress.Output, copied string) {
	fmt.Fprintf(w, "Token:     %s\n", out.Token)
	fmt.Fprintf(w, "Document:  %s (%s)\n", out.DocumentPath, humanize.Bytes(uint64(out.DocumentBytes)))
	if copied != "" {
		fmt.Fprintf(w, "Copied to: %s\n", copied)
	}
	fmt.Fprintf(w, "Pages:     %d\n", out.PageCount)
	fmt.Fprintf(w, "Target:    %s (initial %s, %d budget passes)\n",
		humanize.Bytes(uint64(out.TargetBytes)), humanize.Bytes(uint64(out.InitialBytes)), out.Passes)
	fmt.Fprintf(w, "Expires:   %s\n", humanize.Time(out.ExpiresAt))
	for i, p := range out.PreviewPaths {
		fmt.Fprintf(w, "Preview %d: %s\n", i+1, p)
	}
	for _, p := range out.Pages {
		rot := ""
		if p.Rotated {
			rot = ", rotated"
		}
		fmt.Fprintf(w, "  page %3d  %-11s %8s%s\n", p.Page, p.Category, humanize.Bytes(uint64(p.Bytes)), rot)
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(dst, data, 0o644)
}
