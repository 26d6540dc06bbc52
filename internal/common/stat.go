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

package common

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Stat is a metadata snapshot of a path. Mode holds the raw st_mode bits:
// file type in the S_IFMT mask and permission bits below it.
// A Stat is never mutated after it is produced.
type Stat struct {
	Dev   uint64    `cbor:"dev"`
	Ino   uint64    `cbor:"ino"`
	Mode  uint32    `cbor:"mode"`
	Nlink uint64    `cbor:"nlink"`
	UID   uint32    `cbor:"uid"`
	GID   uint32    `cbor:"gid"`
	Size  int64     `cbor:"size"`
	Atime time.Time `cbor:"atime"`
	Mtime time.Time `cbor:"mtime"`
	Ctime time.Time `cbor:"ctime"`
}

// IsFile reports whether the type bits denote a regular file.
func (s *Stat) IsFile() bool {
	return s != nil && s.Mode&unix.S_IFMT == unix.S_IFREG
}

// IsDir reports whether the type bits denote a directory.
func (s *Stat) IsDir() bool {
	return s != nil && s.Mode&unix.S_IFMT == unix.S_IFDIR
}

// IsSymlink reports whether the type bits denote a symbolic link.
func (s *Stat) IsSymlink() bool {
	return s != nil && s.Mode&unix.S_IFMT == unix.S_IFLNK
}

// Perm returns the permission bits.
func (s *Stat) Perm() os.FileMode {
	return os.FileMode(s.Mode & 0o777)
}

// FileMode converts the raw mode bits to an os.FileMode.
func (s *Stat) FileMode() os.FileMode {
	mode := s.Perm()
	switch s.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		mode |= os.ModeDir
	case unix.S_IFLNK:
		mode |= os.ModeSymlink
	case unix.S_IFIFO:
		mode |= os.ModeNamedPipe
	case unix.S_IFSOCK:
		mode |= os.ModeSocket
	case unix.S_IFCHR:
		mode |= os.ModeDevice | os.ModeCharDevice
	case unix.S_IFBLK:
		mode |= os.ModeDevice
	}
	if s.Mode&unix.S_ISUID != 0 {
		mode |= os.ModeSetuid
	}
	if s.Mode&unix.S_ISGID != 0 {
		mode |= os.ModeSetgid
	}
	if s.Mode&unix.S_ISVTX != 0 {
		mode |= os.ModeSticky
	}
	return mode
}
