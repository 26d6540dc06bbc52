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
	"sync/atomic"

	"github.com/google/uuid"
)

// Worker is one worker context in a Pool.
type Worker struct {
	id        string
	transport Transport
	pending   atomic.Int64
	handles   atomic.Int64
}

func newWorker(t Transport) *Worker {
	return &Worker{id: uuid.NewString(), transport: t}
}

// ID returns the worker's unique id.
func (w *Worker) ID() string {
	return w.id
}

// Running reports whether the worker can accept tasks.
func (w *Worker) Running() bool {
	return w.transport.Running()
}

// Execute sends task to this worker. A *DeliveryError means the task was
// not delivered; a *TaskError means it ran and failed.
func (w *Worker) Execute(ctx context.Context, task *Task) (*Result, error) {
	w.pending.Add(1)
	defer w.pending.Add(-1)

	res, err := w.transport.Send(ctx, task)
	if err != nil {
		return nil, &DeliveryError{Op: task.Op, Worker: w.id, Err: err}
	}
	if !res.OK {
		return nil, &TaskError{Op: task.Op, Kind: res.Kind, Message: res.Message}
	}
	return res, nil
}

// Bind records a file handle pinned to this worker.
func (w *Worker) Bind() {
	w.handles.Add(1)
}

// Unbind releases a handle recorded by Bind.
func (w *Worker) Unbind() {
	w.handles.Add(-1)
}

// load is the number of tasks in flight plus pinned handles.
func (w *Worker) load() int64 {
	return w.pending.Load() + w.handles.Load()
}
