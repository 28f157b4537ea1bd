package cli

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/local/docpress/internal/document"
)

type fetchOptions struct {
	output  string
	preview int
}

func newFetchCmd(a *app) *cobra.Command {
	o := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch <token>",
		Short: "Download a mirrored document from S3",
		Long: `Download a finished job's document, or one of its previews, from the
S3 mirror. Encrypted objects are decrypted with S3_ENCRYPTION_PASSWORD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd, o, args[0])
		},
	}
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Destination file (default: <token>.pdf or the preview name)")
	cmd.Flags().IntVar(&o.preview, "preview", 0, "Fetch this 1-based preview instead of the document")
	return cmd
}

func (a *app) runFetch(cmd *cobra.Command, o *fetchOptions, token string) error {
	rel := path.Join("files", token, "result.pdf")
	dest := token + ".pdf"
	if o.preview > 0 {
		rel = path.Join("previews", token, document.PreviewName(o.preview))
		dest = token + "-" + document.PreviewName(o.preview)
	}
	if o.output != "" {
		dest = o.output
	}

	s3c, err := a.openS3(cmd.Context())
	if err != nil {
		return err
	}
	data, meta, err := s3c.DownloadFile(cmd.Context(), s3c.Key(rel))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	enc := ""
	if meta != nil && meta.Encrypted {
		enc = ", decrypted"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s%s)\n", dest, humanize.Bytes(uint64(len(data))), enc)
	return nil
}
