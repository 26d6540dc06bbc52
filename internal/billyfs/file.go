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

package billyfs

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/gofrs/flock"

	"asyncfs/internal/file"
)

// File adapts a file.Handle to billy.File.
type File struct {
	name     string
	hostPath string
	handle   file.Handle

	// mu serializes callers; the handle rejects overlapping reads.
	mu   sync.Mutex
	lock *flock.Flock
}

func newFile(name, hostPath string, h file.Handle) *File {
	return &File{name: name, hostPath: hostPath, handle: h}
}

func (f *File) Name() string {
	return f.name
}

func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(p)
}

func (f *File) read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data, err := f.handle.Read(context.Background(), len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, data), nil
}

// ReadAt reads at off and leaves the position where it was.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctx := context.Background()
	saved := f.handle.Tell()
	if _, err := f.handle.Seek(ctx, off, io.SeekStart); err != nil {
		return 0, err
	}
	defer func() { _, _ = f.handle.Seek(ctx, saved, io.SeekStart) }()

	n := 0
	for n < len(p) {
		m, err := f.read(p[n:])
		n += m
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, io.EOF
			}
			return n, err
		}
	}
	return n, nil
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle.Write(context.Background(), p)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle.Seek(context.Background(), offset, whence)
}

func (f *File) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle.Truncate(context.Background(), size)
}

func (f *File) Close() error {
	f.mu.Lock()
	if f.lock != nil {
		_ = f.lock.Unlock()
	}
	f.mu.Unlock()
	return f.handle.Close(context.Background())
}

// Lock takes an exclusive advisory lock on the underlying host file.
func (f *File) Lock() error {
	f.mu.Lock()
	if f.lock == nil {
		f.lock = flock.New(f.hostPath)
	}
	fl := f.lock
	f.mu.Unlock()
	return fl.Lock()
}

func (f *File) Unlock() error {
	f.mu.Lock()
	fl := f.lock
	f.mu.Unlock()
	if fl == nil {
		return nil
	}
	return fl.Unlock()
}
