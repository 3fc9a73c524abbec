// Package worker runs jobs on a fixed set of long-lived goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by Do after Close has been called.
var ErrClosed = errors.New("worker pool closed")

// Job is a unit of work. It must honor ctx cancellation.
type Job func(ctx context.Context) error

type task struct {
	ctx  context.Context
	job  Job
	done chan error
}

// Pool is a fixed-size set of workers fed through an unbuffered queue, so a
// submitter waits until a worker is free or its context ends.
type Pool struct {
	tasks     chan task
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	log       logrus.FieldLogger
	size      int
}

// New starts a pool with n workers (at least one).
func New(n int, log logrus.FieldLogger) *Pool {
	if n <= 0 {
		n = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Pool{tasks: make(chan task), log: log, size: n}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.loop(i)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

func (p *Pool) loop(id int) {
	defer p.wg.Done()
	for t := range p.tasks {
		if err := t.ctx.Err(); err != nil {
			t.done <- err
			continue
		}
		t.done <- p.run(id, t)
	}
}

func (p *Pool) run(id int, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("worker", id).Errorf("job panicked: %v", r)
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return t.job(t.ctx)
}

// Do runs job on a worker and waits for its result. If ctx ends first, Do
// returns ctx.Err(); a job already running sees the same cancellation.
func (p *Pool) Do(ctx context.Context, job Job) error {
	t := task{ctx: ctx, job: job, done: make(chan error, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	select {
	case p.tasks <- t:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for running ones to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
