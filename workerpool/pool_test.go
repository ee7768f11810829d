package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p, err := New(Config{Concurrency: 4, QueueSize: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(time.Second)

	var n int64
	const total = 20
	done := make(chan struct{}, total)
	for i := 0; i < total; i++ {
		if err := p.Submit(context.Background(), func(context.Context) {
			atomic.AddInt64(&n, 1)
			done <- struct{}{}
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	for i := 0; i < total; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("tasks did not all complete in time")
		}
	}
	if got := atomic.LoadInt64(&n); got != total {
		t.Fatalf("got %d completions, want %d", got, total)
	}
}

func TestPoolRejectsSubmitAfterClose(t *testing.T) {
	p, _ := New(Config{Concurrency: 1})
	if err := p.Close(time.Second); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Submit(context.Background(), func(context.Context) {}); err == nil {
		t.Fatal("expected an error submitting after close")
	}
}

func TestPoolRecoversFromPanickingTask(t *testing.T) {
	p, _ := New(Config{Concurrency: 1})
	defer p.Close(time.Second)

	if err := p.Submit(context.Background(), func(context.Context) {
		panic("boom")
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	done := make(chan struct{})
	if err := p.Submit(context.Background(), func(context.Context) {
		close(done)
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panic and keep processing")
	}
}

func TestNewRejectsNonPositiveConcurrency(t *testing.T) {
	if _, err := New(Config{Concurrency: 0}); err == nil {
		t.Fatal("expected an error for zero concurrency")
	}
}
