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

// Package cache provides the metadata cache shared by every asyncfs driver.
//
// Design Principles:
// 1. Absence is never cached - a failed lookup always falls through to the backend
// 2. Fine-grained invalidation - mutating operations drop only the paths they touch
// 3. Entries are immutable - replacement is a single map store keyed by path
//
// Currently provides:
// - StatCache: TTL-based stat snapshot cache (process-wide instance in Default)
package cache

import "os"

// Disabled controls whether the metadata cache is bypassed.
// Set via ASYNCFS_CACHE=0 environment variable.
// When true:
// - StatCache.Get() always returns nil (cache miss)
// - StatCache.Set() is a no-op
//
// Useful for debugging to verify a driver behaves identically without caching.
var Disabled = os.Getenv("ASYNCFS_CACHE") == "0"
