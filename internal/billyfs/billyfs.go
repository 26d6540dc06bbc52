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

// Package billyfs exposes a file.Driver rooted at a host directory as a
// go-billy filesystem, which is what the NFS export serves.
package billyfs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"asyncfs/internal/common"
	"asyncfs/internal/file"
)

// Filesystem adapts a file.Driver to billy.Filesystem. Names are slash
// separated and relative to root; ".." never escapes it.
type Filesystem struct {
	driver file.Driver
	root   string
}

var (
	_ billy.Filesystem = (*Filesystem)(nil)
	_ billy.Change     = (*Filesystem)(nil)
)

// New returns a filesystem serving root through d.
func New(d file.Driver, root string) *Filesystem {
	return &Filesystem{
		driver: d,
		root:   common.CleanPath(root),
	}
}

// host maps a billy name to a path on the host.
func (b *Filesystem) host(name string) string {
	return common.ResolveUnder(b.root, name)
}

func notExist(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

func (b *Filesystem) Create(filename string) (billy.File, error) {
	return b.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

func (b *Filesystem) Open(filename string) (billy.File, error) {
	return b.OpenFile(filename, os.O_RDONLY, 0)
}

// modeFor translates open(2) flags to a driver open mode. The second result
// reports whether the file must be truncated after opening.
func modeFor(flag int) (string, bool) {
	rw := flag&(os.O_WRONLY|os.O_RDWR) != 0
	plus := func(m string) string {
		if flag&os.O_RDWR != 0 {
			return m + "+"
		}
		return m
	}
	switch {
	case !rw:
		return "r", false
	case flag&os.O_CREATE == 0:
		return "r+", flag&os.O_TRUNC != 0
	case flag&os.O_EXCL != 0:
		return plus("x"), false
	case flag&os.O_APPEND != 0:
		return plus("a"), flag&os.O_TRUNC != 0
	case flag&os.O_TRUNC != 0:
		return plus("w"), false
	}
	return plus("c"), false
}

func (b *Filesystem) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	ctx := context.Background()
	hostPath := b.host(filename)
	mode, truncate := modeFor(flag)

	created := flag&os.O_CREATE != 0 && !b.driver.Exists(ctx, hostPath)
	h, err := b.driver.Open(ctx, hostPath, mode)
	if err != nil {
		return nil, err
	}
	if truncate {
		if err := h.Truncate(ctx, 0); err != nil {
			_ = h.Close(ctx)
			return nil, err
		}
	}
	if created && perm != 0 {
		if err := b.driver.Chmod(ctx, hostPath, perm.Perm()); err != nil {
			log.Debugf("[billyfs.OpenFile] %s: chmod %o failed: %v", filename, perm, err)
		}
	}
	return newFile(filename, hostPath, h), nil
}

func (b *Filesystem) Stat(filename string) (os.FileInfo, error) {
	st, err := b.driver.Stat(context.Background(), b.host(filename))
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, notExist("stat", filename)
	}
	return newFileInfo(path.Base(filename), st), nil
}

func (b *Filesystem) Lstat(filename string) (os.FileInfo, error) {
	st, err := b.driver.Lstat(context.Background(), b.host(filename))
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, notExist("lstat", filename)
	}
	return newFileInfo(path.Base(filename), st), nil
}

func (b *Filesystem) Rename(oldpath, newpath string) error {
	return b.driver.Rename(context.Background(), b.host(oldpath), b.host(newpath))
}

func (b *Filesystem) Remove(filename string) error {
	ctx := context.Background()
	hostPath := b.host(filename)
	st, err := b.driver.Lstat(ctx, hostPath)
	if err != nil {
		return err
	}
	if st == nil {
		return notExist("remove", filename)
	}
	if st.IsDir() {
		return b.driver.Rmdir(ctx, hostPath)
	}
	return b.driver.Unlink(ctx, hostPath)
}

func (b *Filesystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// TempFile creates a new file in dir named prefix followed by a random id.
func (b *Filesystem) TempFile(dir, prefix string) (billy.File, error) {
	name := b.Join(dir, prefix+uuid.NewString())
	return b.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
}

func (b *Filesystem) ReadDir(dirname string) ([]os.FileInfo, error) {
	ctx := context.Background()
	hostDir := b.host(dirname)
	names, err := b.driver.Scandir(ctx, hostDir)
	if err != nil {
		return nil, err
	}

	result := make([]os.FileInfo, 0, len(names))
	for _, name := range names {
		st, err := b.driver.Lstat(ctx, path.Join(hostDir, name))
		if err != nil || st == nil {
			// Removed since the listing.
			continue
		}
		result = append(result, newFileInfo(name, st))
	}
	return result, nil
}

func (b *Filesystem) MkdirAll(filename string, perm os.FileMode) error {
	return b.driver.Mkdir(context.Background(), b.host(filename), perm.Perm(), true)
}

func (b *Filesystem) Symlink(target, link string) error {
	return b.driver.Symlink(context.Background(), target, b.host(link))
}

func (b *Filesystem) Readlink(link string) (string, error) {
	return b.driver.Readlink(context.Background(), b.host(link))
}

func (b *Filesystem) Chroot(dir string) (billy.Filesystem, error) {
	hostDir := b.host(dir)
	if !b.driver.IsDir(context.Background(), hostDir) {
		return nil, fmt.Errorf("chroot %s: %w", dir, fs.ErrNotExist)
	}
	return New(b.driver, hostDir), nil
}

func (b *Filesystem) Root() string {
	return b.root
}

// billy.Change interface
func (b *Filesystem) Chmod(name string, mode os.FileMode) error {
	return b.driver.Chmod(context.Background(), b.host(name), mode.Perm())
}

// Lchown changes ownership of name itself. Symbolic links are left as
// they are since the driver only changes the link target.
func (b *Filesystem) Lchown(name string, uid, gid int) error {
	ctx := context.Background()
	st, err := b.driver.Lstat(ctx, b.host(name))
	if err != nil {
		return err
	}
	if st == nil {
		return notExist("lchown", name)
	}
	if st.IsSymlink() {
		return nil
	}
	return b.driver.Chown(ctx, b.host(name), uid, gid)
}

func (b *Filesystem) Chown(name string, uid, gid int) error {
	return b.driver.Chown(context.Background(), b.host(name), uid, gid)
}

// Chtimes updates times on an existing file. Unlike Touch it never creates.
func (b *Filesystem) Chtimes(name string, atime, mtime time.Time) error {
	ctx := context.Background()
	hostPath := b.host(name)
	if !b.driver.Exists(ctx, hostPath) {
		return notExist("chtimes", name)
	}
	if mtime.IsZero() {
		mtime = time.Now()
	}
	if atime.IsZero() {
		atime = mtime
	}
	return b.driver.Touch(ctx, hostPath, mtime, atime)
}

func (b *Filesystem) Capabilities() billy.Capability {
	return billy.WriteCapability | billy.ReadCapability |
		billy.ReadAndWriteCapability | billy.SeekCapability | billy.TruncateCapability
}
