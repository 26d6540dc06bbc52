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
	"io/fs"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"asyncfs/internal/cache"
	"asyncfs/internal/common"
	"asyncfs/internal/osfs"
)

// Option configures a driver.
type Option func(*driver)

// WithStatCache makes the driver use c instead of cache.Default.
func WithStatCache(c *cache.StatCache) Option {
	return func(d *driver) {
		d.cache = c
	}
}

// driver composes the stat cache with a backend. Metadata reads consult the
// cache first; mutations invalidate the touched paths after the backend
// call, whatever its outcome.
type driver struct {
	backend backend
	cache   *cache.StatCache
}

func newDriver(b backend, opts ...Option) *driver {
	d := &driver{backend: b, cache: cache.Default}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *driver) Backend() string {
	return d.backend.name()
}

func (d *driver) Close(ctx context.Context) error {
	return d.backend.shutdown(ctx)
}

func (d *driver) Open(ctx context.Context, path, mode string) (Handle, error) {
	m, err := osfs.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	h, err := d.backend.open(ctx, path, m)
	if err != nil {
		return nil, err
	}
	if m.Writable() {
		d.cache.ClearPathAndParent(path)
	}
	log.Debugf("[driver.Open] %s mode=%s backend=%s", path, m.Name, d.backend.name())
	return h, nil
}

func (d *driver) Stat(ctx context.Context, path string) (*common.Stat, error) {
	if st := d.cache.Get(path); st != nil {
		return st, nil
	}
	st, err := d.backend.stat(ctx, path)
	if err != nil {
		return nil, err
	}
	d.cache.Set(path, st)
	return st, nil
}

// Lstat results are not cached: the cache is keyed by path and holds
// followed snapshots.
func (d *driver) Lstat(ctx context.Context, path string) (*common.Stat, error) {
	return d.backend.lstat(ctx, path)
}

func (d *driver) Exists(ctx context.Context, path string) bool {
	if d.cache.Get(path) != nil {
		return true
	}
	ok, err := d.backend.exists(ctx, path)
	if err != nil {
		log.Debugf("[driver.Exists] %s: %v", path, err)
		return false
	}
	return ok
}

func (d *driver) IsDir(ctx context.Context, path string) bool {
	st, err := d.Stat(ctx, path)
	return err == nil && st.IsDir()
}

func (d *driver) IsFile(ctx context.Context, path string) bool {
	st, err := d.Stat(ctx, path)
	return err == nil && st.IsFile()
}

func (d *driver) Size(ctx context.Context, path string) (int64, error) {
	st, err := d.mustStat(ctx, "size", path)
	if err != nil {
		return 0, err
	}
	if !st.IsFile() {
		return 0, common.NewFilesystemError("size", path, "not a regular file", nil)
	}
	return st.Size, nil
}

func (d *driver) Mtime(ctx context.Context, path string) (time.Time, error) {
	st, err := d.mustStat(ctx, "mtime", path)
	if err != nil {
		return time.Time{}, err
	}
	return st.Mtime, nil
}

func (d *driver) Atime(ctx context.Context, path string) (time.Time, error) {
	st, err := d.mustStat(ctx, "atime", path)
	if err != nil {
		return time.Time{}, err
	}
	return st.Atime, nil
}

func (d *driver) Ctime(ctx context.Context, path string) (time.Time, error) {
	st, err := d.mustStat(ctx, "ctime", path)
	if err != nil {
		return time.Time{}, err
	}
	return st.Ctime, nil
}

// mustStat is Stat with a missing path reported as an error.
func (d *driver) mustStat(ctx context.Context, op, path string) (*common.Stat, error) {
	st, err := d.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, common.NewFilesystemError(op, path, "specified path does not exist", fs.ErrNotExist)
	}
	return st, nil
}

func (d *driver) Symlink(ctx context.Context, target, link string) error {
	err := d.backend.symlink(ctx, target, link)
	d.cache.ClearPathAndParent(link)
	return err
}

func (d *driver) Link(ctx context.Context, target, link string) error {
	err := d.backend.link(ctx, target, link)
	d.cache.ClearPathAndParent(link)
	// The target's link count changed.
	d.cache.Clear(target)
	return err
}

func (d *driver) Readlink(ctx context.Context, path string) (string, error) {
	return d.backend.readlink(ctx, path)
}

func (d *driver) Rename(ctx context.Context, from, to string) error {
	err := d.backend.rename(ctx, from, to)
	d.cache.ClearRename(from, to)
	return err
}

func (d *driver) Unlink(ctx context.Context, path string) error {
	err := d.backend.unlink(ctx, path)
	d.cache.ClearPathAndParent(path)
	return err
}

func (d *driver) Mkdir(ctx context.Context, path string, perm os.FileMode, recursive bool) error {
	err := d.backend.mkdir(ctx, path, perm, recursive)
	d.cache.ClearPathAndParent(path)
	return err
}

func (d *driver) Rmdir(ctx context.Context, path string) error {
	err := d.backend.rmdir(ctx, path)
	d.cache.ClearPathAndParent(path)
	return err
}

func (d *driver) Scandir(ctx context.Context, path string) ([]string, error) {
	return d.backend.scandir(ctx, path)
}

func (d *driver) Chmod(ctx context.Context, path string, perm os.FileMode) error {
	err := d.backend.chmod(ctx, path, perm)
	d.cache.Clear(path)
	return err
}

func (d *driver) Chown(ctx context.Context, path string, uid, gid int) error {
	err := d.backend.chown(ctx, path, uid, gid)
	d.cache.Clear(path)
	return err
}

func (d *driver) Touch(ctx context.Context, path string, mtime, atime time.Time) error {
	err := d.backend.touch(ctx, path, mtime, atime)
	d.cache.ClearPathAndParent(path)
	return err
}

func (d *driver) Get(ctx context.Context, path string) ([]byte, error) {
	return d.backend.get(ctx, path)
}

func (d *driver) Put(ctx context.Context, path string, data []byte) error {
	err := d.backend.put(ctx, path, data)
	d.cache.ClearPathAndParent(path)
	return err
}
