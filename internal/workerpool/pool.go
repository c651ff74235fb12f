// Package workerpool provides the bounded, join-before-proceed goroutine
// fan-out the ordering filter (F1) uses to run its per-player pass
// concurrently, one job per player; the GlobalSolver's per-player fan-out
// uses errgroup, not this pool. In that use each job reads and writes
// only its own player's slots, and the pool blocks the caller until every
// submitted job in a batch has completed.
//
// Adapted from a dynamic-scaling worker pool used for parallel goal
// evaluation; scaling, statistics, and panic recovery are kept, but the
// pool is narrowed to the one shape the engine actually needs: submit a
// fixed batch of jobs, wait for all of them, collect the first error.
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Pool manages a small set of goroutines for running independent jobs
// (e.g. one per player) with bounded concurrency and basic scaling.
type Pool struct {
	maxWorkers     int
	minWorkers     int
	currentWorkers int
	taskChan       chan func()
	workerWg       sync.WaitGroup
	shutdownChan   chan struct{}
	scaleChan      chan int
	once           sync.Once
	mu             sync.RWMutex

	scaleUpThreshold   int
	scaleDownThreshold int
	scaleCheckInterval time.Duration
	lastScaleTime      time.Time
	scaleCooldown      time.Duration

	stats *Stats
}

// New creates a pool with at most maxWorkers goroutines (defaulting to
// NumCPU when maxWorkers <= 0) and a minimum of one.
func New(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	pool := &Pool{
		maxWorkers:         maxWorkers,
		minWorkers:         1,
		currentWorkers:     1,
		taskChan:           make(chan func(), maxWorkers*4),
		shutdownChan:       make(chan struct{}),
		scaleChan:          make(chan int, 1),
		scaleUpThreshold:   maxWorkers * 2,
		scaleDownThreshold: 1,
		scaleCheckInterval: 100 * time.Millisecond,
		scaleCooldown:      500 * time.Millisecond,
		lastScaleTime:      time.Now(),
		stats:              NewStats(),
	}
	pool.workerWg.Add(1)
	go pool.worker()
	go pool.scalingMonitor()
	return pool
}

func (p *Pool) worker() {
	defer p.workerWg.Done()
	for {
		select {
		case task := <-p.taskChan:
			if task != nil {
				p.runTask(task)
			}
		case <-p.shutdownChan:
			return
		}
	}
}

func (p *Pool) runTask(task func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.stats.RecordTaskFailed(fmt.Errorf("workerpool: task panicked: %v", r))
			return
		}
		p.stats.RecordTaskCompleted(time.Since(start))
	}()
	task()
}

// RunAll submits one job per item in a batch and blocks until every job
// has completed or ctx is cancelled. It returns the first non-nil error
// any job returns (all jobs still run to completion; errors beyond the
// first are dropped, since the engine only needs to know a contradiction
// occurred somewhere in the batch, then stops propagating).
func RunAll[T any](ctx context.Context, p *Pool, items []T, job func(T) error) error {
	if len(items) == 0 {
		return nil
	}
	var wg sync.WaitGroup
	var firstErr atomic.Value
	wg.Add(len(items))
	for _, item := range items {
		item := item
		task := func() {
			defer wg.Done()
			if err := job(item); err != nil {
				firstErr.CompareAndSwap(nil, err)
			}
		}
		select {
		case p.taskChan <- task:
			p.stats.RecordTaskSubmitted()
		case <-ctx.Done():
			wg.Done()
			firstErr.CompareAndSwap(nil, ctx.Err())
		}
	}
	wg.Wait()
	if v := firstErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Shutdown stops all workers, waiting for in-flight tasks to finish.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.shutdownChan)
		close(p.taskChan)
		p.workerWg.Wait()
		p.stats.Finalize()
	})
}

func (p *Pool) scalingMonitor() {
	ticker := time.NewTicker(p.scaleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.checkScaling()
		case n := <-p.scaleChan:
			p.adjustWorkers(n)
		case <-p.shutdownChan:
			return
		}
	}
}

func (p *Pool) checkScaling() {
	p.mu.RLock()
	if time.Since(p.lastScaleTime) < p.scaleCooldown {
		p.mu.RUnlock()
		return
	}
	current, max, min := p.currentWorkers, p.maxWorkers, p.minWorkers
	up, down := p.scaleUpThreshold, p.scaleDownThreshold
	p.mu.RUnlock()

	depth := len(p.taskChan)
	switch {
	case depth > up && current < max:
		p.trySignalScale(current + 1)
	case depth < down && current > min:
		p.trySignalScale(current - 1)
	}
}

func (p *Pool) trySignalScale(n int) {
	select {
	case p.scaleChan <- n:
	default:
	}
}

func (p *Pool) adjustWorkers(target int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.currentWorkers
	if target == current {
		return
	}
	if target > current {
		for i := current; i < target; i++ {
			p.workerWg.Add(1)
			go p.worker()
		}
	}
	p.currentWorkers = target
	p.lastScaleTime = time.Now()
}

// WorkerCount returns the current number of live workers.
func (p *Pool) WorkerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentWorkers
}

// Stats returns the pool's execution statistics collector.
func (p *Pool) Stats() *Stats { return p.stats }

// Stats collects lightweight execution statistics, trimmed from the
// fuller monitoring struct this pool design is adapted from down to a few
// counters, read through Snapshot; the engine itself does not report them.
type Stats struct {
	mu sync.RWMutex

	StartTime time.Time
	EndTime   time.Time

	TasksSubmitted int64
	TasksCompleted int64
	TasksFailed    int64

	LastError error
}

// NewStats creates a fresh statistics collector.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

func (s *Stats) RecordTaskSubmitted() { atomic.AddInt64(&s.TasksSubmitted, 1) }

func (s *Stats) RecordTaskCompleted(time.Duration) { atomic.AddInt64(&s.TasksCompleted, 1) }

func (s *Stats) RecordTaskFailed(err error) {
	atomic.AddInt64(&s.TasksFailed, 1)
	s.mu.Lock()
	s.LastError = err
	s.mu.Unlock()
}

func (s *Stats) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EndTime = time.Now()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() (submitted, completed, failed int64) {
	return atomic.LoadInt64(&s.TasksSubmitted), atomic.LoadInt64(&s.TasksCompleted), atomic.LoadInt64(&s.TasksFailed)
}
