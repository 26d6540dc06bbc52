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
	"os"
	"sync"
)

// remoteFile is a file held open on behalf of a caller.
type remoteFile struct {
	file *os.File
	path string
	mode string
}

// ResourceTable maps remote-resource ids to files open inside a worker.
type ResourceTable struct {
	mu     sync.RWMutex
	files  map[ResourceID]*remoteFile
	nextID ResourceID
}

// NewResourceTable creates an empty table. Ids start at 1.
func NewResourceTable() *ResourceTable {
	return &ResourceTable{
		files:  make(map[ResourceID]*remoteFile),
		nextID: 1,
	}
}

// Allocate stores f and returns its new id.
func (rt *ResourceTable) Allocate(f *os.File, path, mode string) ResourceID {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	id := rt.nextID
	rt.nextID++
	rt.files[id] = &remoteFile{file: f, path: path, mode: mode}
	return id
}

// Get retrieves the file for id.
func (rt *ResourceTable) Get(id ResourceID) (*remoteFile, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	rf, ok := rt.files[id]
	return rf, ok
}

// Release forgets id and returns the file it named.
func (rt *ResourceTable) Release(id ResourceID) (*remoteFile, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rf, ok := rt.files[id]
	delete(rt.files, id)
	return rf, ok
}

// Len returns the number of open files.
func (rt *ResourceTable) Len() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.files)
}

// CloseAll closes and forgets every file. Used when a worker stops.
func (rt *ResourceTable) CloseAll() {
	rt.mu.Lock()
	files := rt.files
	rt.files = make(map[ResourceID]*remoteFile)
	rt.mu.Unlock()

	for _, rf := range files {
		_ = rf.file.Close()
	}
}
