// Copyright 2024 AsyncFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"asyncfs/internal/util"
)

// DefaultPoolSize bounds the number of workers when Config.Size is zero.
var DefaultPoolSize = min(runtime.NumCPU(), 8)

// Config configures a Pool.
type Config struct {
	// Size is the maximum number of workers. Workers start lazily.
	Size int
	// Factory starts a worker context. Defaults to LocalFactory.
	Factory TransportFactory
	// RetryAttempts bounds delivery attempts for stateless tasks.
	RetryAttempts uint
}

// Pool runs tasks on a bounded set of workers, replacing workers that stop.
type Pool struct {
	cfg Config

	mu      sync.Mutex
	workers []*Worker
	next    int
	closed  bool
}

// NewPool creates a pool. No worker starts until the first task.
func NewPool(cfg Config) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = DefaultPoolSize
	}
	if cfg.Factory == nil {
		cfg.Factory = LocalFactory
	}
	return &Pool{cfg: cfg}
}

// Running reports whether the pool accepts tasks.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Workers returns the number of live workers.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Get returns a running worker, starting one while the pool is below its
// size. Otherwise the least loaded worker is chosen. Handles call Get once
// and send every later task for their file to the same worker.
func (p *Pool) Get(ctx context.Context) (*Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, &DeliveryError{Op: "get", Err: ErrPoolClosed}
	}

	live := p.workers[:0]
	for _, w := range p.workers {
		if w.Running() {
			live = append(live, w)
			continue
		}
		log.Debugf("[Pool.Get] dropping stopped worker %s", w.id)
		go func(w *Worker) { _ = w.transport.Close(context.Background()) }(w)
	}
	p.workers = live

	if len(p.workers) < p.cfg.Size {
		t, err := p.cfg.Factory(ctx)
		if err == nil {
			w := newWorker(t)
			p.workers = append(p.workers, w)
			log.Debugf("[Pool.Get] started worker %s (%d/%d)", w.id, len(p.workers), p.cfg.Size)
			return w, nil
		}
		log.Warnf("[Pool.Get] failed to start worker: %v", err)
		if len(p.workers) == 0 {
			return nil, &DeliveryError{Op: "get", Err: err}
		}
	}

	// Least loaded, scanning from a rotating start so ties spread out.
	n := len(p.workers)
	best := p.workers[p.next%n]
	for i := 1; i < n; i++ {
		w := p.workers[(p.next+i)%n]
		if w.load() < best.load() {
			best = w
		}
	}
	p.next++
	return best, nil
}

// Execute runs a task that does not depend on a particular worker.
// Delivery failures are retried on another worker; task failures are not.
func (p *Pool) Execute(ctx context.Context, task *Task) (*Result, error) {
	return util.RetryWithResult(ctx, func() (*Result, error) {
		w, err := p.Get(ctx)
		if err != nil {
			return nil, err
		}
		return w.Execute(ctx, task)
	}, util.DeliveryRetryOptions(ctx, p.cfg.RetryAttempts, retryable)...)
}

func retryable(err error) bool {
	return IsDeliveryError(err) &&
		!errors.Is(err, ErrPoolClosed) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Start eagerly starts workers until the pool is full.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	missing := p.cfg.Size - len(p.workers)
	p.mu.Unlock()

	started := make([]*Worker, missing)
	g, gctx := errgroup.WithContext(ctx)
	for i := range missing {
		g.Go(func() error {
			t, err := p.cfg.Factory(gctx)
			if err != nil {
				return err
			}
			started[i] = newWorker(t)
			return nil
		})
	}
	err := g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range started {
		if w == nil {
			continue
		}
		if p.closed || len(p.workers) >= p.cfg.Size {
			go func(w *Worker) { _ = w.transport.Close(context.Background()) }(w)
			continue
		}
		p.workers = append(p.workers, w)
	}
	return err
}

// Close stops every worker. Tasks already delivered finish first.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	workers := p.workers
	p.workers = nil
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			return w.transport.Close(gctx)
		})
	}
	return g.Wait()
}
