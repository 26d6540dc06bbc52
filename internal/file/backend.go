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

	"asyncfs/internal/common"
	"asyncfs/internal/osfs"
)

// backend executes raw operations without consulting the cache.
type backend interface {
	name() string
	open(ctx context.Context, path string, mode osfs.Mode) (Handle, error)
	stat(ctx context.Context, path string) (*common.Stat, error)
	lstat(ctx context.Context, path string) (*common.Stat, error)
	exists(ctx context.Context, path string) (bool, error)
	symlink(ctx context.Context, target, link string) error
	link(ctx context.Context, target, link string) error
	readlink(ctx context.Context, path string) (string, error)
	rename(ctx context.Context, from, to string) error
	unlink(ctx context.Context, path string) error
	mkdir(ctx context.Context, path string, perm os.FileMode, recursive bool) error
	rmdir(ctx context.Context, path string) error
	scandir(ctx context.Context, path string) ([]string, error)
	chmod(ctx context.Context, path string, perm os.FileMode) error
	chown(ctx context.Context, path string, uid, gid int) error
	touch(ctx context.Context, path string, mtime, atime time.Time) error
	get(ctx context.Context, path string) ([]byte, error)
	put(ctx context.Context, path string, data []byte) error
	shutdown(ctx context.Context) error
}
