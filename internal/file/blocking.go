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

package file

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"asyncfs/internal/common"
	"asyncfs/internal/osfs"
)

// NewBlockingDriver returns a driver that performs every syscall on the
// calling goroutine. It needs no worker or event loop and is what workers
// themselves use.
func NewBlockingDriver(opts ...Option) Driver {
	return newDriver(blockingBackend{}, opts...)
}

type blockingBackend struct{}

func (blockingBackend) name() string { return "blocking" }

func (blockingBackend) open(ctx context.Context, path string, mode osfs.Mode) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, size, err := osfs.OpenFile(path, mode)
	if err != nil {
		return nil, err
	}
	if mode.Append() {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, common.NewFilesystemError("open", path, "could not seek to end", err)
		}
	}
	return newHandle(path, mode, size, &blockingIO{f: f, path: path}), nil
}

func (blockingBackend) stat(_ context.Context, path string) (*common.Stat, error) {
	return osfs.Stat(path)
}

func (blockingBackend) lstat(_ context.Context, path string) (*common.Stat, error) {
	return osfs.Lstat(path)
}

func (blockingBackend) exists(_ context.Context, path string) (bool, error) {
	return osfs.Exists(path), nil
}

func (blockingBackend) symlink(_ context.Context, target, link string) error {
	return osfs.Symlink(target, link)
}

func (blockingBackend) link(_ context.Context, target, link string) error {
	return osfs.Link(target, link)
}

func (blockingBackend) readlink(_ context.Context, path string) (string, error) {
	return osfs.Readlink(path)
}

func (blockingBackend) rename(_ context.Context, from, to string) error {
	return osfs.Rename(from, to)
}

func (blockingBackend) unlink(_ context.Context, path string) error {
	return osfs.Unlink(path)
}

func (blockingBackend) mkdir(_ context.Context, path string, perm os.FileMode, recursive bool) error {
	return osfs.Mkdir(path, perm, recursive)
}

func (blockingBackend) rmdir(_ context.Context, path string) error {
	return osfs.Rmdir(path)
}

func (blockingBackend) scandir(_ context.Context, path string) ([]string, error) {
	return osfs.Scandir(path)
}

func (blockingBackend) chmod(_ context.Context, path string, perm os.FileMode) error {
	return osfs.Chmod(path, perm)
}

func (blockingBackend) chown(_ context.Context, path string, uid, gid int) error {
	return osfs.Chown(path, uid, gid)
}

func (blockingBackend) touch(_ context.Context, path string, mtime, atime time.Time) error {
	return osfs.Touch(path, mtime, atime)
}

func (blockingBackend) get(_ context.Context, path string) ([]byte, error) {
	return osfs.Get(path)
}

func (blockingBackend) put(_ context.Context, path string, data []byte) error {
	return osfs.Put(path, data)
}

func (blockingBackend) shutdown(context.Context) error {
	return nil
}

// blockingIO drives an *os.File through its own cursor, which the handle's
// single-flight rules keep in step with the handle position.
type blockingIO struct {
	f    *os.File
	path string
}

func (b *blockingIO) bounded() bool { return false }

func (b *blockingIO) read(_ context.Context, length int, _ int64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := b.f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, b.fail("read", "reading from the file failed", err)
	}
	return buf[:n], nil
}

func (b *blockingIO) write(_ context.Context, data []byte, _ int64) (int, error) {
	n, err := b.f.Write(data)
	if err != nil {
		return n, b.fail("write", "writing to the file failed", err)
	}
	return n, nil
}

func (b *blockingIO) seek(_ context.Context, offset int64, whence int, _, _ int64) (int64, error) {
	pos, err := b.f.Seek(offset, whence)
	if err != nil {
		return 0, b.fail("seek", "could not move the file position", err)
	}
	return pos, nil
}

func (b *blockingIO) truncate(_ context.Context, size int64) error {
	if err := b.f.Truncate(size); err != nil {
		return b.fail("truncate", "could not truncate file", err)
	}
	return nil
}

func (b *blockingIO) close(context.Context) error {
	if err := b.f.Close(); err != nil {
		return b.fail("close", "could not close file", err)
	}
	return nil
}

func (b *blockingIO) fail(op, msg string, err error) error {
	if errors.Is(err, os.ErrClosed) {
		return common.NewFilesystemError(op, b.path, msg, common.ErrClosed)
	}
	return common.NewFilesystemError(op, b.path, msg, err)
}
