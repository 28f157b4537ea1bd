package compress

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/local/docpress/internal/document"
)

// DocumentPath is where a job's assembled document lives under storageDir.
func DocumentPath(storageDir, token string) string {
	return filepath.Join(storageDir, "files", token, "result.pdf")
}

// PreviewDir is the directory holding a job's previews under storageDir.
func PreviewDir(storageDir, token string) string {
	return filepath.Join(storageDir, "previews", token)
}

// PreviewURL is the public location of the n-th (1-based) preview.
func PreviewURL(prefix, token string, n int) string {
	return prefix + "/previews/" + token + "/" + document.PreviewName(n)
}

// InputDir holds the copied inputs of a queued job until it reaches a final state.
func InputDir(storageDir, token string) string {
	return filepath.Join(storageDir, "inputs", token)
}

// RemoveArtifacts deletes whatever a failed job left under storageDir.
// Missing directories are not an error.
func RemoveArtifacts(storageDir, token string) error {
	if token == "" {
		return nil
	}
	var errs []error
	for _, dir := range []string{filepath.Dir(DocumentPath(storageDir, token)), PreviewDir(storageDir, token)} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
