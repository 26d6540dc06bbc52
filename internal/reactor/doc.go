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

// Package reactor provides the event loop behind the reactor backend.
//
// A Loop runs posted callbacks one at a time on a dispatcher goroutine.
// Native I/O submitted with Submit runs off the loop, bounded by a
// semaphore, and its completion is delivered back on the loop. The
// dispatcher exits once its queue is empty and nothing holds the loop
// alive; a Poll keeps it alive while it has requests in flight.
package reactor
