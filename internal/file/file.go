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

// Package file is the asyncfs public surface: the Driver and Handle
// contracts, three interchangeable backends, and process-wide convenience
// functions over a default driver.
//
// The blocking backend performs syscalls on the calling goroutine. The
// parallel backend sends every operation to a worker pool; handles stay
// bound to the worker that opened them. The reactor backend issues native
// requests through an event loop and holds the loop alive only while
// requests are outstanding.
//
// Every driver consults a shared StatCache for metadata queries, and the
// mutating operations invalidate the paths they touch.
package file

import (
	"context"
	"os"
	"time"

	"asyncfs/internal/common"
)

// DefaultReadLength is the read size used when a caller passes zero.
const DefaultReadLength = 8192

// Handle is one open file. Reads, seeks and truncates are single-flight:
// issuing one while another operation is outstanding fails immediately with
// common.ErrPendingOperation. Writes may be issued while earlier writes are
// still in flight and are applied in issue order.
type Handle interface {
	// Read returns up to length bytes from the current position, or io.EOF
	// once nothing is left.
	Read(ctx context.Context, length int) ([]byte, error)
	// Write writes data at the current position.
	Write(ctx context.Context, data []byte) (int, error)
	// End writes data and closes the handle. Close errors are discarded.
	End(ctx context.Context, data []byte) (int, error)
	// Seek moves the position; whence is io.SeekStart, io.SeekCurrent or
	// io.SeekEnd.
	Seek(ctx context.Context, offset int64, whence int) (int64, error)
	// Truncate changes the file's length. The position is left as is.
	Truncate(ctx context.Context, size int64) error

	Tell() int64
	EOF() bool
	Size() int64

	// Close releases the file. A second call waits for the first and
	// returns nil.
	Close(ctx context.Context) error

	Path() string
	Mode() string
}

// Driver is the operation-level facade over one backend.
type Driver interface {
	// Open parses mode and opens path. A malformed mode fails with
	// common.ErrInvalidArgument before anything is issued.
	Open(ctx context.Context, path, mode string) (Handle, error)

	// Stat returns nil, nil when path does not exist.
	Stat(ctx context.Context, path string) (*common.Stat, error)
	// Lstat is Stat without following a final symbolic link.
	Lstat(ctx context.Context, path string) (*common.Stat, error)
	Exists(ctx context.Context, path string) bool
	// Size fails when path is missing or is not a regular file.
	Size(ctx context.Context, path string) (int64, error)
	IsDir(ctx context.Context, path string) bool
	IsFile(ctx context.Context, path string) bool
	Mtime(ctx context.Context, path string) (time.Time, error)
	Atime(ctx context.Context, path string) (time.Time, error)
	Ctime(ctx context.Context, path string) (time.Time, error)

	Symlink(ctx context.Context, target, link string) error
	Link(ctx context.Context, target, link string) error
	Readlink(ctx context.Context, path string) (string, error)
	Rename(ctx context.Context, from, to string) error
	Unlink(ctx context.Context, path string) error
	Mkdir(ctx context.Context, path string, perm os.FileMode, recursive bool) error
	Rmdir(ctx context.Context, path string) error
	// Scandir lists entry names sorted by name, without "." and "..".
	Scandir(ctx context.Context, path string) ([]string, error)
	Chmod(ctx context.Context, path string, perm os.FileMode) error
	// Chown changes ownership; -1 leaves uid or gid unchanged.
	Chown(ctx context.Context, path string, uid, gid int) error
	// Touch sets times and creates path if absent. A zero mtime means now
	// and a zero atime means mtime.
	Touch(ctx context.Context, path string, mtime, atime time.Time) error
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data []byte) error

	// Backend names the backend behind the driver.
	Backend() string
	// Close releases backend resources such as workers or the event loop.
	Close(ctx context.Context) error
}
