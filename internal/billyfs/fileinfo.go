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
	"os"
	"time"

	nfsfile "github.com/willscott/go-nfs/file"

	"asyncfs/internal/common"
)

// FileInfo is an os.FileInfo over a driver Stat.
type FileInfo struct {
	name string
	st   *common.Stat
}

func newFileInfo(name string, st *common.Stat) *FileInfo {
	return &FileInfo{name: name, st: st}
}

func (fi *FileInfo) Name() string {
	return fi.name
}

func (fi *FileInfo) Size() int64 {
	return fi.st.Size
}

func (fi *FileInfo) Mode() os.FileMode {
	return fi.st.FileMode()
}

func (fi *FileInfo) ModTime() time.Time {
	return fi.st.Mtime
}

func (fi *FileInfo) IsDir() bool {
	return fi.st.IsDir()
}

// Sys returns the attributes go-nfs reads for GETATTR replies.
func (fi *FileInfo) Sys() any {
	nlink := uint32(fi.st.Nlink)
	if nlink == 0 {
		nlink = 1
	}
	return &nfsfile.FileInfo{
		Nlink:  nlink,
		UID:    fi.st.UID,
		GID:    fi.st.GID,
		Fileid: fi.st.Ino,
	}
}

// Stat exposes the underlying snapshot.
func (fi *FileInfo) Stat() *common.Stat {
	return fi.st
}
