package judge

import (
	"sync"
)

// Pool bounds how many listings are judged concurrently. Results are always
// collected keyed by listing ref, never by completion order, so concurrent
// judging stays deterministic for everything downstream.
type Pool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	results map[string]Verdict
	errs    map[string]error
}

// NewPool creates a pool allowing at most workers concurrent jobs.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		semaphore: make(chan struct{}, workers),
		results:   make(map[string]Verdict),
		errs:      make(map[string]error),
	}
}

// Submit schedules the judgment job for one listing ref. The job runs as
// soon as a worker slot frees up.
func (p *Pool) Submit(ref string, job func() (Verdict, error)) {
	p.wg.Add(1)
	p.semaphore <- struct{}{}

	go func() {
		defer p.wg.Done()
		defer func() { <-p.semaphore }()

		verdict, err := job()

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.errs[ref] = err
			return
		}
		p.results[ref] = verdict
	}()
}

// Wait blocks until every submitted job finished, then returns verdicts and
// per-item errors, both keyed by ref. A failed item never blocks or aborts
// its siblings.
func (p *Pool) Wait() (map[string]Verdict, map[string]error) {
	p.wg.Wait()
	return p.results, p.errs
}
