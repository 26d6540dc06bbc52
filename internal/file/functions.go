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
	"os"
	"time"

	"asyncfs/internal/cache"
	"asyncfs/internal/common"
)

// The functions below run on the process-wide driver returned by Default.

// Open opens path on the default driver.
func Open(ctx context.Context, path, mode string) (Handle, error) {
	return Default().Open(ctx, path, mode)
}

func Stat(ctx context.Context, path string) (*common.Stat, error) {
	return Default().Stat(ctx, path)
}

func Lstat(ctx context.Context, path string) (*common.Stat, error) {
	return Default().Lstat(ctx, path)
}

func Exists(ctx context.Context, path string) bool {
	return Default().Exists(ctx, path)
}

func Size(ctx context.Context, path string) (int64, error) {
	return Default().Size(ctx, path)
}

func IsDir(ctx context.Context, path string) bool {
	return Default().IsDir(ctx, path)
}

func IsFile(ctx context.Context, path string) bool {
	return Default().IsFile(ctx, path)
}

func Mtime(ctx context.Context, path string) (time.Time, error) {
	return Default().Mtime(ctx, path)
}

func Atime(ctx context.Context, path string) (time.Time, error) {
	return Default().Atime(ctx, path)
}

func Ctime(ctx context.Context, path string) (time.Time, error) {
	return Default().Ctime(ctx, path)
}

func Symlink(ctx context.Context, target, link string) error {
	return Default().Symlink(ctx, target, link)
}

// Link creates a hard link named link pointing at target.
func Link(ctx context.Context, target, link string) error {
	return Default().Link(ctx, target, link)
}

func Readlink(ctx context.Context, path string) (string, error) {
	return Default().Readlink(ctx, path)
}

func Rename(ctx context.Context, from, to string) error {
	return Default().Rename(ctx, from, to)
}

func Unlink(ctx context.Context, path string) error {
	return Default().Unlink(ctx, path)
}

func Mkdir(ctx context.Context, path string, perm os.FileMode, recursive bool) error {
	return Default().Mkdir(ctx, path, perm, recursive)
}

func Rmdir(ctx context.Context, path string) error {
	return Default().Rmdir(ctx, path)
}

func Scandir(ctx context.Context, path string) ([]string, error) {
	return Default().Scandir(ctx, path)
}

func Chmod(ctx context.Context, path string, perm os.FileMode) error {
	return Default().Chmod(ctx, path, perm)
}

func Chown(ctx context.Context, path string, uid, gid int) error {
	return Default().Chown(ctx, path, uid, gid)
}

func Touch(ctx context.Context, path string, mtime, atime time.Time) error {
	return Default().Touch(ctx, path, mtime, atime)
}

func Get(ctx context.Context, path string) ([]byte, error) {
	return Default().Get(ctx, path)
}

func Put(ctx context.Context, path string, data []byte) error {
	return Default().Put(ctx, path, data)
}

// ClearStatCache drops path from the shared stat cache, or every entry when
// path is empty.
func ClearStatCache(path string) {
	if path == "" {
		cache.Default.ClearAll()
		return
	}
	cache.Default.Clear(path)
}
