package document

import (
	"fmt"
	"os"
	"path/filepath"
)

// MaxPreviews is the default preview cap.
const MaxPreviews = 10

// PreviewName is the file name of the n-th (1-based) preview.
func PreviewName(n int) string { return fmt.Sprintf("page-%d.jpg", n) }

// WritePreviews writes the first min(len(pages), limit) encodings into dir and
// returns the written paths in page order.
func WritePreviews(dir string, pages [][]byte, limit int) ([]string, error) {
	n := min(len(pages), limit)
	if n <= 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := filepath.Join(dir, PreviewName(i+1))
		if err := os.WriteFile(p, pages[i], 0o644); err != nil {
			return nil, fmt.Errorf("write preview %d: %w", i+1, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
