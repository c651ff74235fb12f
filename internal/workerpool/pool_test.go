package workerpool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunAllCollectsResults(t *testing.T) {
	p := New(4)
	defer p.Shutdown()

	items := []int{1, 2, 3, 4, 5}
	var seen [6]int32
	err := RunAll(context.Background(), p, items, func(i int) error {
		seen[i] = 1
		return nil
	})
	if err != nil {
		t.Fatalf("RunAll returned error: %v", err)
	}
	for _, i := range items {
		if seen[i] != 1 {
			t.Errorf("item %d was not processed", i)
		}
	}
}

func TestRunAllReturnsFirstError(t *testing.T) {
	p := New(2)
	defer p.Shutdown()

	boom := errors.New("boom")
	err := RunAll(context.Background(), p, []int{1, 2, 3}, func(i int) error {
		if i == 2 {
			return boom
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
}

func TestRunAllEmptyBatch(t *testing.T) {
	p := New(2)
	defer p.Shutdown()

	if err := RunAll[int](context.Background(), p, nil, func(int) error { return nil }); err != nil {
		t.Errorf("expected nil error for an empty batch, got %v", err)
	}
}

func TestRunAllRespectsCancellation(t *testing.T) {
	p := New(1)
	defer p.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := make([]int, 100)
	err := RunAll(ctx, p, items, func(int) error {
		time.Sleep(time.Millisecond)
		return nil
	})
	if err == nil {
		t.Error("expected cancellation to surface as an error")
	}
}

func TestStatsSnapshot(t *testing.T) {
	stats := NewStats()
	stats.RecordTaskSubmitted()
	stats.RecordTaskSubmitted()
	stats.RecordTaskCompleted(time.Millisecond)
	stats.RecordTaskFailed(errors.New("x"))

	submitted, completed, failed := stats.Snapshot()
	if submitted != 2 || completed != 1 || failed != 1 {
		t.Errorf("unexpected snapshot: submitted=%d completed=%d failed=%d", submitted, completed, failed)
	}
	stats.Finalize()
	if stats.EndTime.IsZero() {
		t.Error("expected Finalize to set EndTime")
	}
}

func TestPoolWorkerCount(t *testing.T) {
	p := New(3)
	defer p.Shutdown()
	if p.WorkerCount() < 1 {
		t.Errorf("expected at least one worker, got %d", p.WorkerCount())
	}
}
