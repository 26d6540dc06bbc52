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

// Package worker runs blocking filesystem syscalls on worker contexts so the
// caller's scheduler is never stalled.
//
// A Pool owns a set of Workers. Each Worker wraps a Transport that delivers
// Tasks to an Executor and brings back Results. Two transports exist:
// an in-process goroutine (out-of-thread) and a subprocess speaking CBOR
// frames over stdio (out-of-process).
//
// Files opened by an "fopen" task live inside the worker. The worker hands
// back a remote-resource id, and every later task for that file carries the
// id. Handles therefore stay bound to the worker that opened them.
//
// Failures come in two kinds. *TaskError means the worker attempted the
// operation and it failed. *DeliveryError means the task never reached a
// worker, for example when the pool is closed or the worker crashed.
package worker
