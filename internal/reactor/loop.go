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

package reactor

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight bounds concurrent native requests per loop.
const DefaultMaxInFlight = 64

// Loop is a single-threaded callback dispatcher with keep-alive
// registrations.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	refs    int
	running bool
	idle    chan struct{}
	wake    chan struct{}

	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewLoop creates a loop allowing maxInFlight concurrent native requests.
func NewLoop(maxInFlight int64) *Loop {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	idle := make(chan struct{})
	close(idle)
	return &Loop{
		idle: idle,
		wake: make(chan struct{}, 1),
		sem:  semaphore.NewWeighted(maxInFlight),
	}
}

// Post queues fn to run on the dispatcher goroutine. Callbacks run in the
// order they were posted.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, fn)
	l.startLocked()
	l.signal()
}

// Ref registers a keep-alive. While any are registered the dispatcher
// stays up even with an empty queue.
func (l *Loop) Ref() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refs++
	if l.refs == 1 {
		log.Debugf("[Loop.Ref] keep-alive enabled")
	}
	l.startLocked()
}

// Unref drops a keep-alive registered with Ref.
func (l *Loop) Unref() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refs == 0 {
		return
	}
	l.refs--
	if l.refs == 0 {
		log.Debugf("[Loop.Unref] keep-alive disabled")
		l.signal()
	}
}

// Refs returns the number of keep-alive registrations.
func (l *Loop) Refs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refs
}

// Running reports whether the dispatcher goroutine is up.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// InFlight returns the number of native requests currently executing.
func (l *Loop) InFlight() int64 {
	return l.inFlight.Load()
}

// Wait blocks until the dispatcher has exited: the queue is drained, no
// native request is running and no keep-alive is registered.
func (l *Loop) Wait(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startLocked starts the dispatcher if it is down. Caller holds mu.
func (l *Loop) startLocked() {
	if l.running {
		return
	}
	l.running = true
	l.idle = make(chan struct{})
	go l.dispatch(l.idle)
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) dispatch(idle chan struct{}) {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			if l.refs == 0 && l.inFlight.Load() == 0 {
				l.running = false
				close(idle)
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			<-l.wake
			continue
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
	}
}

// Submit runs fn off the loop and resolves the returned future on the loop.
// ctx only gates issuance: if it is done before a slot is free, nothing
// runs and its error is returned. A request that started always completes.
func Submit[T any](ctx context.Context, l *Loop, fn func() (T, error)) (*Future[T], error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	f, resolve := NewFuture[T]()
	l.mu.Lock()
	l.inFlight.Add(1)
	l.startLocked()
	l.mu.Unlock()
	go func() {
		v, err := fn()
		l.sem.Release(1)
		// Queue the resolution before dropping the request so the
		// dispatcher never sees an idle loop in between.
		l.Post(func() { resolve(v, err) })
		l.mu.Lock()
		l.inFlight.Add(-1)
		l.signal()
		l.mu.Unlock()
	}()
	return f, nil
}
