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

//go:build darwin

package osfs

import (
	"time"

	"golang.org/x/sys/unix"

	"asyncfs/internal/common"
)

func fromStatT(st *unix.Stat_t) *common.Stat {
	return &common.Stat{
		Dev:   uint64(st.Dev),
		Ino:   st.Ino,
		Mode:  uint32(st.Mode),
		Nlink: uint64(st.Nlink),
		UID:   st.Uid,
		GID:   st.Gid,
		Size:  st.Size,
		Atime: time.Unix(st.Atimespec.Unix()),
		Mtime: time.Unix(st.Mtimespec.Unix()),
		Ctime: time.Unix(st.Ctimespec.Unix()),
	}
}
