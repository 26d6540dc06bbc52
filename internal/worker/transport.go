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
	"sync"
)

// Transport carries tasks to one worker context.
type Transport interface {
	// Send delivers task and waits for its result. An error means the task
	// was not delivered, or the worker stopped before replying. Once a task
	// is delivered Send waits for the reply even if ctx is cancelled.
	Send(ctx context.Context, task *Task) (*Result, error)

	// Running reports whether the worker can accept tasks.
	Running() bool

	// Close stops the worker. Files it holds open are closed.
	Close(ctx context.Context) error
}

// TransportFactory starts a new worker context.
type TransportFactory func(ctx context.Context) (Transport, error)

type job struct {
	task  *Task
	reply chan *Result
}

// localTransport runs an Executor on a dedicated goroutine.
type localTransport struct {
	exec      *Executor
	jobs      chan job
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewLocalTransport starts an in-process worker goroutine.
func NewLocalTransport() Transport {
	t := &localTransport{
		exec:    NewExecutor(),
		jobs:    make(chan job),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go t.loop()
	return t
}

// LocalFactory is a TransportFactory for in-process workers.
func LocalFactory(context.Context) (Transport, error) {
	return NewLocalTransport(), nil
}

func (t *localTransport) loop() {
	defer close(t.stopped)
	defer t.exec.Shutdown()
	for {
		select {
		case j := <-t.jobs:
			j.reply <- t.exec.Execute(j.task)
		case <-t.done:
			return
		}
	}
}

func (t *localTransport) Send(ctx context.Context, task *Task) (*Result, error) {
	if !t.Running() {
		return nil, ErrWorkerStopped
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := make(chan *Result, 1)
	// jobs is unbuffered: a successful send means the loop owns the task.
	select {
	case t.jobs <- job{task: task, reply: reply}:
	case <-t.done:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return <-reply, nil
}

func (t *localTransport) Running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *localTransport) Close(ctx context.Context) error {
	t.closeOnce.Do(func() { close(t.done) })
	select {
	case <-t.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
