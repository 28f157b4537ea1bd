package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	q, err := NewRedisQueue("redis://"+mr.Addr(), "jobs:test", "workers:test", time.Hour)
	if err != nil {
		t.Fatalf("NewRedisQueue failed: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q, mr
}

func TestEnqueueDequeueAck(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	job := JobRequest{Token: "abc", TargetMB: 2, Inputs: []InputRef{{Path: "/in/a.pdf", MIMEType: "application/pdf", Filename: "a.pdf"}}}

	if _, err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	msg, ok, err := q.Dequeue(ctx, "c1", 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("Dequeue failed: ok=%v err=%v", ok, err)
	}
	got, err := DecodeJob(msg.Payload)
	if err != nil {
		t.Fatalf("DecodeJob failed: %v", err)
	}
	if got.Token != "abc" || got.TargetMB != 2 || len(got.Inputs) != 1 || got.Inputs[0].Filename != "a.pdf" {
		t.Errorf("Unexpected job %+v", got)
	}
	if err := q.Ack(ctx, msg.ID); err != nil {
		t.Errorf("Ack failed: %v", err)
	}

	_, ok, err = q.Dequeue(ctx, "c1", 20*time.Millisecond)
	if err != nil || ok {
		t.Errorf("Expected empty stream, got ok=%v err=%v", ok, err)
	}
}

func TestDelayedMover(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	now := time.Now()

	if err := q.EnqueueDelayed(ctx, JobRequest{Token: "later", Attempt: 1}, now.Add(time.Hour)); err != nil {
		t.Fatalf("EnqueueDelayed failed: %v", err)
	}
	if err := q.EnqueueDelayed(ctx, JobRequest{Token: "due", Attempt: 1}, now.Add(-time.Second)); err != nil {
		t.Fatalf("EnqueueDelayed failed: %v", err)
	}
	if n := q.moveOnce(now); n != 1 {
		t.Fatalf("Expected 1 job moved, got %d", n)
	}

	msg, ok, err := q.Dequeue(ctx, "c1", 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("Dequeue failed: ok=%v err=%v", ok, err)
	}
	job, err := DecodeJob(msg.Payload)
	if err != nil || job.Token != "due" || job.Attempt != 1 {
		t.Errorf("Expected due job, got %+v (%v)", job, err)
	}

	stream, delayed, dlq, err := q.Depths(ctx)
	if err != nil {
		t.Fatalf("Depths failed: %v", err)
	}
	if stream != 1 || delayed != 1 || dlq != 0 {
		t.Errorf("Unexpected depths stream=%d delayed=%d dlq=%d", stream, delayed, dlq)
	}
}

func TestIdempotencyAndCancel(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	done, err := q.IsIdemDone(ctx, "fp")
	if err != nil || done {
		t.Fatalf("Expected not done, got %v (%v)", done, err)
	}
	if err := q.MarkIdemDone(ctx, "fp", "tok", time.Minute); err != nil {
		t.Fatalf("MarkIdemDone failed: %v", err)
	}
	if tok, _ := q.IdemToken(ctx, "fp"); tok != "tok" {
		t.Errorf("Expected tok, got %q", tok)
	}
	mr.FastForward(2 * time.Minute)
	if done, _ := q.IsIdemDone(ctx, "fp"); done {
		t.Error("Expected idempotency marker to expire")
	}

	if err := q.CancelJob(ctx, "tok"); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}
	if c, _ := q.IsCancelled(ctx, "tok"); !c {
		t.Error("Expected tok to be cancelled")
	}
	if c, _ := q.IsCancelled(ctx, "other"); c {
		t.Error("Expected other not to be cancelled")
	}
}

func TestAddDLQ(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	if err := q.AddDLQ(ctx, []byte(`{"token":"x"}`), "validation"); err != nil {
		t.Fatalf("AddDLQ failed: %v", err)
	}
	_, _, dlq, err := q.Depths(ctx)
	if err != nil || dlq != 1 {
		t.Errorf("Expected 1 dlq entry, got %d (%v)", dlq, err)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(2, []byte("one"), []byte("two"))
	if a != Fingerprint(2, []byte("one"), []byte("two")) {
		t.Error("Expected stable fingerprint")
	}
	tests := []string{
		Fingerprint(3, []byte("one"), []byte("two")),
		Fingerprint(2, []byte("two"), []byte("one")),
		Fingerprint(2, []byte("on"), []byte("etwo")),
	}
	for i, fp := range tests {
		if fp == a {
			t.Errorf("case %d: expected different fingerprint", i)
		}
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
}

func TestDecodeJobRejectsMissingToken(t *testing.T) {
	if _, err := DecodeJob([]byte(`{"target_mb":1}`)); err == nil {
		t.Error("Expected error for missing token")
	}
	if _, err := DecodeJob([]byte(`not json`)); err == nil {
		t.Error("Expected error for bad json")
	}
}

func TestClaimStale(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, JobRequest{Token: "orphan", TargetMB: 1}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	first, ok, err := q.Dequeue(ctx, "dead-worker", 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("Dequeue failed: ok=%v err=%v", ok, err)
	}

	if _, ok, err := q.ClaimStale(ctx, "live-worker", time.Hour); err != nil || ok {
		t.Fatalf("Expected nothing idle long enough, got ok=%v err=%v", ok, err)
	}
	msg, ok, err := q.ClaimStale(ctx, "live-worker", 0)
	if err != nil || !ok {
		t.Fatalf("ClaimStale failed: ok=%v err=%v", ok, err)
	}
	if msg.ID != first.ID {
		t.Errorf("Expected to claim %s, got %s", first.ID, msg.ID)
	}
	if job, err := DecodeJob(msg.Payload); err != nil || job.Token != "orphan" {
		t.Errorf("Unexpected claimed job %+v (%v)", job, err)
	}

	if err := q.Ack(ctx, msg.ID); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}
	if _, ok, _ := q.ClaimStale(ctx, "live-worker", 0); ok {
		t.Error("Expected acked message not to be claimable")
	}
}

func TestMoveOnceIsIdempotent(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	now := time.Now()
	if err := q.EnqueueDelayed(ctx, JobRequest{Token: "once", Attempt: 1}, now.Add(-time.Second)); err != nil {
		t.Fatal(err)
	}
	if n := q.moveOnce(now); n != 1 {
		t.Fatalf("Expected 1 moved, got %d", n)
	}
	if n := q.moveOnce(now); n != 0 {
		t.Errorf("Expected nothing left to move, got %d", n)
	}
}
