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
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"asyncfs/internal/common"
	"asyncfs/internal/osfs"
	"asyncfs/internal/reactor"
)

// ReactorSupported reports whether the reactor backend can run here.
func ReactorSupported() bool {
	return runtime.GOOS == "linux" || runtime.GOOS == "darwin"
}

// NewReactorDriver returns a driver issuing native requests through loop.
// A nil loop gets a private one. The loop is held alive only while
// requests from this driver are outstanding.
func NewReactorDriver(loop *reactor.Loop, opts ...Option) Driver {
	if loop == nil {
		loop = reactor.NewLoop(reactor.DefaultMaxInFlight)
	}
	return newDriver(&reactorBackend{loop: loop, poll: reactor.NewPoll(loop)}, opts...)
}

type reactorBackend struct {
	loop *reactor.Loop
	poll *reactor.Poll
}

// submit issues fn as a native request and waits for its completion.
func submit[T any](ctx context.Context, b *reactorBackend, fn func() (T, error)) (T, error) {
	f, err := reactor.Issue(ctx, b.poll, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Await()
}

// submitErr is submit for requests with no result.
func submitErr(ctx context.Context, b *reactorBackend, fn func() error) error {
	_, err := submit(ctx, b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (b *reactorBackend) name() string { return "reactor" }

func (b *reactorBackend) open(ctx context.Context, path string, mode osfs.Mode) (Handle, error) {
	type opened struct {
		fd   int
		size int64
	}
	o, err := submit(ctx, b, func() (opened, error) {
		fd, size, err := osfs.OpenFd(path, mode)
		return opened{fd, size}, err
	})
	if err != nil {
		return nil, err
	}
	return newHandle(path, mode, o.size, &reactorIO{b: b, fd: o.fd, path: path}), nil
}

func (b *reactorBackend) stat(ctx context.Context, path string) (*common.Stat, error) {
	return submit(ctx, b, func() (*common.Stat, error) { return osfs.Stat(path) })
}

func (b *reactorBackend) lstat(ctx context.Context, path string) (*common.Stat, error) {
	return submit(ctx, b, func() (*common.Stat, error) { return osfs.Lstat(path) })
}

func (b *reactorBackend) exists(ctx context.Context, path string) (bool, error) {
	return submit(ctx, b, func() (bool, error) { return osfs.Exists(path), nil })
}

func (b *reactorBackend) symlink(ctx context.Context, target, link string) error {
	return submitErr(ctx, b, func() error { return osfs.Symlink(target, link) })
}

func (b *reactorBackend) link(ctx context.Context, target, link string) error {
	return submitErr(ctx, b, func() error { return osfs.Link(target, link) })
}

func (b *reactorBackend) readlink(ctx context.Context, path string) (string, error) {
	return submit(ctx, b, func() (string, error) { return osfs.Readlink(path) })
}

func (b *reactorBackend) rename(ctx context.Context, from, to string) error {
	return submitErr(ctx, b, func() error { return osfs.Rename(from, to) })
}

func (b *reactorBackend) unlink(ctx context.Context, path string) error {
	return submitErr(ctx, b, func() error { return osfs.Unlink(path) })
}

func (b *reactorBackend) mkdir(ctx context.Context, path string, perm os.FileMode, recursive bool) error {
	return submitErr(ctx, b, func() error { return osfs.Mkdir(path, perm, recursive) })
}

func (b *reactorBackend) rmdir(ctx context.Context, path string) error {
	return submitErr(ctx, b, func() error { return osfs.Rmdir(path) })
}

func (b *reactorBackend) scandir(ctx context.Context, path string) ([]string, error) {
	return submit(ctx, b, func() ([]string, error) { return osfs.Scandir(path) })
}

func (b *reactorBackend) chmod(ctx context.Context, path string, perm os.FileMode) error {
	return submitErr(ctx, b, func() error { return osfs.Chmod(path, perm) })
}

func (b *reactorBackend) chown(ctx context.Context, path string, uid, gid int) error {
	return submitErr(ctx, b, func() error { return osfs.Chown(path, uid, gid) })
}

func (b *reactorBackend) touch(ctx context.Context, path string, mtime, atime time.Time) error {
	return submitErr(ctx, b, func() error { return osfs.Touch(path, mtime, atime) })
}

func (b *reactorBackend) get(ctx context.Context, path string) ([]byte, error) {
	return submit(ctx, b, func() ([]byte, error) { return osfs.Get(path) })
}

func (b *reactorBackend) put(ctx context.Context, path string, data []byte) error {
	return submitErr(ctx, b, func() error { return osfs.Put(path, data) })
}

// shutdown waits for the loop to go idle.
func (b *reactorBackend) shutdown(ctx context.Context) error {
	return b.loop.Wait(ctx)
}

// reactorIO addresses a raw descriptor with positional requests, so the
// handle position is the only cursor.
type reactorIO struct {
	b    *reactorBackend
	fd   int
	path string
}

func (r *reactorIO) bounded() bool { return true }

func (r *reactorIO) read(ctx context.Context, length int, position int64) ([]byte, error) {
	data, err := submit(ctx, r.b, func() ([]byte, error) { return osfs.Pread(r.fd, length, position) })
	return data, r.withPath(err)
}

func (r *reactorIO) write(ctx context.Context, data []byte, position int64) (int, error) {
	n, err := submit(ctx, r.b, func() (int, error) { return osfs.Pwrite(r.fd, data, position) })
	return n, r.withPath(err)
}

func (r *reactorIO) seek(_ context.Context, offset int64, whence int, position, size int64) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = position
	case io.SeekEnd:
		base = size
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", common.ErrInvalidArgument, whence)
	}
	if base+offset < 0 {
		return 0, common.NewFilesystemError("seek", r.path, "could not move the file position", unix.EINVAL)
	}
	return base + offset, nil
}

func (r *reactorIO) truncate(ctx context.Context, size int64) error {
	return r.withPath(submitErr(ctx, r.b, func() error { return osfs.Ftruncate(r.fd, size) }))
}

func (r *reactorIO) close(ctx context.Context) error {
	return r.withPath(submitErr(ctx, r.b, func() error { return osfs.CloseFd(r.fd) }))
}

func (r *reactorIO) withPath(err error) error {
	var fsErr *common.FilesystemError
	if errors.As(err, &fsErr) && fsErr.Path == "" {
		fsErr.Path = r.path
	}
	return err
}
