package statuscheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestSummary(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		opts    Options
		healthy bool
	}{
		{"all up", Options{Redis: pinger{}, S3: pinger{}, StorageDir: dir}, true},
		{"mirror disabled", Options{Redis: pinger{}, StorageDir: dir}, true},
		{"redis down", Options{Redis: pinger{err: errors.New("refused")}, StorageDir: dir}, false},
		{"no redis", Options{StorageDir: dir}, false},
		{"s3 down", Options{Redis: pinger{}, S3: pinger{err: errors.New("403")}, StorageDir: dir}, false},
		{"no storage", Options{Redis: pinger{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := New(tt.opts).Summary(context.Background())
			if sum.Healthy() != tt.healthy {
				t.Errorf("Healthy() = %v, want %v (%+v)", sum.Healthy(), tt.healthy, sum)
			}
		})
	}
}

func TestStorageCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "storage")
	st := New(Options{StorageDir: dir}).checkStorage()
	if !st.OK {
		t.Errorf("Expected storage OK, got %+v", st)
	}
}

func TestHandler(t *testing.T) {
	c := New(Options{Redis: pinger{err: errors.New("down")}, StorageDir: t.TempDir()})
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
	var sum Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if sum.Redis.OK || sum.Redis.Message != "down" || !sum.Storage.OK {
		t.Errorf("Unexpected summary %+v", sum)
	}
}
