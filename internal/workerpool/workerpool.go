// Package workerpool runs submitted tasks across a bounded set of
// goroutines, each guarded the way the teacher's util/panics.HandlePanic
// guards its wrapped goroutines: a panicking task is recovered, logged with
// its stack trace, and does not bring down the worker.
package workerpool

import (
	"runtime/debug"
	"sync"

	"github.com/daglabs/btcnode/internal/logs"
)

// Pool runs submitted tasks across size goroutines. It backs the sync
// client's verify-then-commit pipeline; the verifier's per-transaction
// checks run on goroutines of their own.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
	log   logs.Logger
}

// New starts a pool of size worker goroutines, logging recovered panics
// through log.
func New(size int, log logs.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		tasks: make(chan func(), size*4),
		log:   log,
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.runGuarded(task)
	}
}

func (p *Pool) runGuarded(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Criticalf("recovered from panic in worker pool task: %v\n%s", r, debug.Stack())
		}
	}()
	task()
}

// Submit enqueues task for execution, blocking if every worker is busy and
// the queue is full.
func (p *Pool) Submit(task func()) {
	p.tasks <- task
}

// Close stops accepting new tasks and waits for in-flight and queued tasks
// to finish.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
