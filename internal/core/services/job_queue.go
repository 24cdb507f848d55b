package services

import (
	"context"
	"log"
	"sync"
)

// workTracker counts outstanding work. Unlike sync.WaitGroup it allows new
// work to be added while someone is already waiting for zero.
type workTracker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending int
}

func newWorkTracker() *workTracker {
	w := &workTracker{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *workTracker) add() {
	w.mu.Lock()
	w.pending++
	w.mu.Unlock()
}

func (w *workTracker) done() {
	w.mu.Lock()
	w.pending--
	if w.pending <= 0 {
		w.pending = 0
		w.cond.Broadcast()
	}
	w.mu.Unlock()
}

// wait blocks until no work is outstanding or ctx ends.
func (w *workTracker) wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		w.mu.Lock()
		for w.pending > 0 {
			w.cond.Wait()
		}
		w.mu.Unlock()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type job struct {
	name string
	ctx  context.Context
	run  func(ctx context.Context)
}

// jobQueue runs jobs one at a time in submission order. Every write of the
// engine goes through it, so two writes never race for the same record.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []job
	signal chan struct{}
	stop   chan struct{}
	closed bool
	work   *workTracker
	wg     sync.WaitGroup
}

func newJobQueue(work *workTracker) *jobQueue {
	q := &jobQueue{
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		work:   work,
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

// enqueue schedules run. The job outlives the caller's cancellation but
// keeps its values.
func (q *jobQueue) enqueue(ctx context.Context, name string, run func(ctx context.Context)) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		log.Printf("[WORKER] Dropping job %s: queue stopped", name)
		return
	}
	q.work.add()
	q.jobs = append(q.jobs, job{name: name, ctx: context.WithoutCancel(ctx), run: run})
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *jobQueue) next() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return job{}, false
	}
	j := q.jobs[0]
	q.jobs[0] = job{}
	q.jobs = q.jobs[1:]
	return j, true
}

func (q *jobQueue) loop() {
	defer q.wg.Done()
	for {
		for {
			j, ok := q.next()
			if !ok {
				break
			}
			q.execute(j)
		}

		select {
		case <-q.signal:
		case <-q.stop:
			// Drain whatever was queued before close.
			for {
				j, ok := q.next()
				if !ok {
					return
				}
				q.execute(j)
			}
		}
	}
}

func (q *jobQueue) execute(j job) {
	defer q.work.done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WORKER] Job %s panicked: %v", j.name, r)
		}
	}()
	j.run(j.ctx)
}

// close stops accepting jobs, runs the ones already queued and returns once
// the loop exits.
func (q *jobQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.stop)
	q.wg.Wait()
}
