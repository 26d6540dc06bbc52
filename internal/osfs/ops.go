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

package osfs

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"asyncfs/internal/common"
)

func fail(op, path, msg string, err error) error {
	return common.NewFilesystemError(op, path, msg, err)
}

// isNotExist reports errors that mean "nothing at this path".
func isNotExist(err error) bool {
	return errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENOTDIR)
}

// Stat follows symlinks. A missing path yields (nil, nil).
func Stat(path string) (*common.Stat, error) {
	var st unix.Stat_t
	if err := ignoringEINTR(func() error { return unix.Stat(path, &st) }); err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fail("stat", path, "could not stat path", &fs.PathError{Op: "stat", Path: path, Err: err})
	}
	return fromStatT(&st), nil
}

// Lstat does not follow a final symlink. A missing path yields (nil, nil).
func Lstat(path string) (*common.Stat, error) {
	var st unix.Stat_t
	if err := ignoringEINTR(func() error { return unix.Lstat(path, &st) }); err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fail("lstat", path, "could not stat path", &fs.PathError{Op: "lstat", Path: path, Err: err})
	}
	return fromStatT(&st), nil
}

// Exists never fails; any error reads as absence.
func Exists(path string) bool {
	st, err := Stat(path)
	return err == nil && st != nil
}

func Symlink(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		return fail("symlink", link, "could not create symbolic link", err)
	}
	return nil
}

func Link(target, link string) error {
	if err := os.Link(target, link); err != nil {
		return fail("link", link, "could not create hard link", err)
	}
	return nil
}

func Readlink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", fail("readlink", path, "could not read symbolic link", err)
	}
	return target, nil
}

func Rename(from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return fail("rename", from, "could not rename file", err)
	}
	return nil
}

// Unlink removes a non-directory entry.
func Unlink(path string) error {
	if err := unix.Unlink(path); err != nil {
		return fail("unlink", path, "could not delete file", &fs.PathError{Op: "unlink", Path: path, Err: err})
	}
	return nil
}

// Mkdir creates a directory. An already existing directory is not an error.
func Mkdir(path string, perm os.FileMode, recursive bool) error {
	var err error
	if recursive {
		err = os.MkdirAll(path, perm)
	} else {
		err = os.Mkdir(path, perm)
	}
	if err != nil {
		if st, _ := Stat(path); st.IsDir() {
			return nil
		}
		return fail("mkdir", path, "directory was not created", err)
	}
	return nil
}

func Rmdir(path string) error {
	if err := unix.Rmdir(path); err != nil {
		return fail("rmdir", path, "could not remove directory", &fs.PathError{Op: "rmdir", Path: path, Err: err})
	}
	return nil
}

// Scandir lists entry names sorted by name, without "." and "..".
func Scandir(path string) ([]string, error) {
	st, err := Stat(path)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fail("scandir", path, "no such directory", fs.ErrNotExist)
	}
	if !st.IsDir() {
		return nil, fail("scandir", path, "not a directory", unix.ENOTDIR)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fail("scandir", path, "failed reading directory contents", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name() == "." || e.Name() == ".." {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func Chmod(path string, perm os.FileMode) error {
	if err := os.Chmod(path, perm); err != nil {
		return fail("chmod", path, "could not change mode", err)
	}
	return nil
}

// Chown changes ownership; -1 leaves uid or gid unchanged.
func Chown(path string, uid, gid int) error {
	if uid == -1 && gid == -1 {
		return nil
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return fail("chown", path, "could not change owner", err)
	}
	return nil
}

// Touch sets access and modification times, creating the file if absent.
// A zero mtime means now; a zero atime means mtime.
func Touch(path string, mtime, atime time.Time) error {
	if mtime.IsZero() {
		mtime = time.Now()
	}
	if atime.IsZero() {
		atime = mtime
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		return fail("touch", path, "could not create file", err)
	}
	if err := f.Close(); err != nil {
		return fail("touch", path, "could not create file", err)
	}

	if err := os.Chtimes(path, atime, mtime); err != nil {
		return fail("touch", path, "could not update times", err)
	}
	return nil
}

// Get buffers the whole file.
func Get(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fail("get", path, "could not read file", err)
	}
	return data, nil
}

// Put replaces the file's contents, creating it if needed.
func Put(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o666); err != nil {
		return fail("put", path, "could not write file", err)
	}
	return nil
}

// OpenFile opens path for the blocking and worker backends and reports the
// current size.
func OpenFile(path string, mode Mode) (*os.File, int64, error) {
	f, err := os.OpenFile(path, mode.Flags, 0o666)
	if err != nil {
		return nil, 0, fail("open", path, "could not open file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fail("open", path, "could not stat opened file", err)
	}
	return f, info.Size(), nil
}

func ignoringEINTR(fn func() error) error {
	for {
		err := fn()
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
