package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog/log"
)

func TestInitWritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "docpress.log")
	if err := Init(Options{Level: "debug", File: file, MaxSizeMB: 1}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	log.Info().Str("token", "abc").Msg("hello")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("Expected log file to exist: %v", err)
	}
	if !strings.Contains(string(data), `"service":"docpress"`) {
		t.Errorf("Expected service field in %s", data)
	}
	if !strings.Contains(string(data), `"message":"hello"`) {
		t.Errorf("Expected message in %s", data)
	}
}

func TestForJobAddsToken(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = log.Output(&buf)
	defer func() { log.Logger = prev }()

	l := ForJob("tok123")
	l.Info().Msg("step")

	if !strings.Contains(buf.String(), `"token":"tok123"`) {
		t.Errorf("Expected token field, got %s", buf.String())
	}
}

func TestAxiomWriterDropsDebug(t *testing.T) {
	ac := &axiomClient{ch: make(chan axiom.Event, 4)}
	w := &axiomWriter{client: ac}

	if _, err := w.Write([]byte(`{"level":"debug","message":"noise"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(ac.ch) != 0 {
		t.Fatalf("Expected debug event to be dropped, got %d queued", len(ac.ch))
	}

	if _, err := w.Write([]byte(`{"level":"info","message":"kept"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(ac.ch) != 1 {
		t.Fatalf("Expected 1 queued event, got %d", len(ac.ch))
	}
	ev := <-ac.ch
	if ev["service"] != "docpress" {
		t.Errorf("Expected service docpress, got %v", ev["service"])
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		t.Errorf("Expected %s field, got %v", ingest.TimestampField, ev)
	}
}

func TestAxiomWriterKeepsEventTime(t *testing.T) {
	ac := &axiomClient{ch: make(chan axiom.Event, 1)}
	w := &axiomWriter{client: ac}
	if _, err := w.Write([]byte(`{"level":"warn","time":"2024-05-01T12:00:00Z","message":"x"}`)); err != nil {
		t.Fatal(err)
	}
	ev := <-ac.ch
	if ev[ingest.TimestampField] != "2024-05-01T12:00:00Z" {
		t.Errorf("Expected event time carried over, got %v", ev[ingest.TimestampField])
	}
	if _, ok := ev["time"]; ok {
		t.Error("Expected zerolog time field to be replaced")
	}
}

func TestShipperFlushesOnClose(t *testing.T) {
	var mu sync.Mutex
	var got int
	ac := startShipper(func(ctx context.Context, batch []axiom.Event) error {
		mu.Lock()
		got += len(batch)
		mu.Unlock()
		return nil
	}, time.Hour)

	for i := 0; i < 3; i++ {
		ac.Send(axiom.Event{"message": i})
	}
	if err := ac.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if got != 3 {
		t.Errorf("Expected 3 shipped events, got %d", got)
	}
}

func TestShipperDropsWhenFull(t *testing.T) {
	ac := &axiomClient{ch: make(chan axiom.Event, 1)}
	ac.Send(axiom.Event{"n": 1})
	ac.Send(axiom.Event{"n": 2})
	if n := ac.dropped.Load(); n != 1 {
		t.Errorf("Expected 1 dropped event, got %d", n)
	}
}
