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

// Package osfs is the direct-syscall layer. Every function blocks the calling
// goroutine and maps one filesystem operation onto platform calls.
//
// The blocking driver calls it inline, the worker executor calls it on a
// worker, and the reactor submits it to its native I/O threads. Failures are
// returned as *common.FilesystemError with the platform error as cause.
package osfs
