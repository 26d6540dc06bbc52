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
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"asyncfs/internal/common"
	"asyncfs/internal/osfs"
	"asyncfs/internal/worker"
)

// NewParallelDriver returns a driver that runs every operation on pool.
// It fails with common.ErrWorkerRecursion inside a worker process.
func NewParallelDriver(pool *worker.Pool, opts ...Option) (Driver, error) {
	if worker.InWorker() {
		return nil, common.ErrWorkerRecursion
	}
	return newDriver(&parallelBackend{pool: pool}, opts...), nil
}

type parallelBackend struct {
	pool *worker.Pool
}

func (b *parallelBackend) name() string { return "parallel" }

// translate maps worker failures onto the common error taxonomy, keeping
// undelivered tasks distinct from failed ones.
func translate(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if worker.IsDeliveryError(err) {
		return common.NewDeliveryError(op, path, err)
	}
	var te *worker.TaskError
	if errors.As(err, &te) {
		return common.NewFilesystemError(op, path, te.Message, te)
	}
	return common.NewFilesystemError(op, path, "", err)
}

func (b *parallelBackend) exec(ctx context.Context, task *worker.Task) (*worker.Result, error) {
	res, err := b.pool.Execute(ctx, task)
	if err != nil {
		return nil, translate(task.Op, task.Path, err)
	}
	return res, nil
}

func (b *parallelBackend) open(ctx context.Context, path string, mode osfs.Mode) (Handle, error) {
	w, err := b.pool.Get(ctx)
	if err != nil {
		return nil, translate(worker.OpOpen, path, err)
	}
	res, err := w.Execute(ctx, &worker.Task{Op: worker.OpOpen, Path: path, Mode: mode.Name})
	if err != nil {
		return nil, translate(worker.OpOpen, path, err)
	}
	w.Bind()
	log.Debugf("[parallelBackend.open] %s bound to worker %s as id %d", path, w.ID(), res.ID)
	return newHandle(path, mode, res.Size, &workerIO{w: w, id: res.ID, path: path}), nil
}

func (b *parallelBackend) stat(ctx context.Context, path string) (*common.Stat, error) {
	res, err := b.exec(ctx, &worker.Task{Op: worker.OpStat, Path: path})
	if err != nil {
		return nil, err
	}
	return res.Stat, nil
}

func (b *parallelBackend) lstat(ctx context.Context, path string) (*common.Stat, error) {
	res, err := b.exec(ctx, &worker.Task{Op: worker.OpLstat, Path: path})
	if err != nil {
		return nil, err
	}
	return res.Stat, nil
}

func (b *parallelBackend) exists(ctx context.Context, path string) (bool, error) {
	res, err := b.exec(ctx, &worker.Task{Op: worker.OpExists, Path: path})
	if err != nil {
		return false, err
	}
	return res.Exists, nil
}

func (b *parallelBackend) symlink(ctx context.Context, target, link string) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpSymlink, Path: link, Target: target})
	return err
}

func (b *parallelBackend) link(ctx context.Context, target, link string) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpLink, Path: link, Target: target})
	return err
}

func (b *parallelBackend) readlink(ctx context.Context, path string) (string, error) {
	res, err := b.exec(ctx, &worker.Task{Op: worker.OpReadlink, Path: path})
	if err != nil {
		return "", err
	}
	return res.Target, nil
}

func (b *parallelBackend) rename(ctx context.Context, from, to string) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpRename, Path: from, Target: to})
	return err
}

func (b *parallelBackend) unlink(ctx context.Context, path string) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpUnlink, Path: path})
	return err
}

func (b *parallelBackend) mkdir(ctx context.Context, path string, perm os.FileMode, recursive bool) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpMkdir, Path: path, Perm: perm, Recursive: recursive})
	return err
}

func (b *parallelBackend) rmdir(ctx context.Context, path string) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpRmdir, Path: path})
	return err
}

func (b *parallelBackend) scandir(ctx context.Context, path string) ([]string, error) {
	res, err := b.exec(ctx, &worker.Task{Op: worker.OpScandir, Path: path})
	if err != nil {
		return nil, err
	}
	if res.Names == nil {
		return []string{}, nil
	}
	return res.Names, nil
}

func (b *parallelBackend) chmod(ctx context.Context, path string, perm os.FileMode) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpChmod, Path: path, Perm: perm})
	return err
}

func (b *parallelBackend) chown(ctx context.Context, path string, uid, gid int) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpChown, Path: path, UID: uid, GID: gid})
	return err
}

func (b *parallelBackend) touch(ctx context.Context, path string, mtime, atime time.Time) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpTouch, Path: path, Mtime: mtime, Atime: atime})
	return err
}

func (b *parallelBackend) get(ctx context.Context, path string) ([]byte, error) {
	res, err := b.exec(ctx, &worker.Task{Op: worker.OpGet, Path: path})
	if err != nil {
		return nil, err
	}
	if res.Data == nil {
		return []byte{}, nil
	}
	return res.Data, nil
}

func (b *parallelBackend) put(ctx context.Context, path string, data []byte) error {
	_, err := b.exec(ctx, &worker.Task{Op: worker.OpPut, Path: path, Data: data})
	return err
}

func (b *parallelBackend) shutdown(ctx context.Context) error {
	return b.pool.Close(ctx)
}

// workerIO sends handle operations to the worker holding the file. The
// worker's own cursor tracks the handle position.
type workerIO struct {
	w    *worker.Worker
	id   worker.ResourceID
	path string
}

func (wio *workerIO) bounded() bool { return true }

func (wio *workerIO) exec(ctx context.Context, task *worker.Task) (*worker.Result, error) {
	task.ID = wio.id
	res, err := wio.w.Execute(ctx, task)
	if err != nil {
		return nil, translate(task.Op, wio.path, err)
	}
	return res, nil
}

func (wio *workerIO) read(ctx context.Context, length int, _ int64) ([]byte, error) {
	res, err := wio.exec(ctx, &worker.Task{Op: worker.OpRead, Length: length})
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (wio *workerIO) write(ctx context.Context, data []byte, _ int64) (int, error) {
	res, err := wio.exec(ctx, &worker.Task{Op: worker.OpWrite, Data: data})
	if err != nil {
		return 0, err
	}
	return res.N, nil
}

func (wio *workerIO) seek(ctx context.Context, offset int64, whence int, _, _ int64) (int64, error) {
	res, err := wio.exec(ctx, &worker.Task{Op: worker.OpSeek, Offset: offset, Whence: whence})
	if err != nil {
		return 0, err
	}
	return res.Position, nil
}

func (wio *workerIO) truncate(ctx context.Context, size int64) error {
	_, err := wio.exec(ctx, &worker.Task{Op: worker.OpTruncate, Size: size})
	return err
}

func (wio *workerIO) close(ctx context.Context) error {
	defer wio.w.Unbind()
	if !wio.w.Running() {
		// The worker and everything it held are gone.
		return nil
	}
	_, err := wio.exec(ctx, &worker.Task{Op: worker.OpClose})
	return err
}
