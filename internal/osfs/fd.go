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
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"

	"asyncfs/internal/common"
)

// The functions below work on raw descriptors with positional I/O, the way
// the reactor's native requests address a file: every request carries its
// own offset and the kernel cursor is never used.

// OpenFd opens path and reports the descriptor and current size.
func OpenFd(path string, mode Mode) (int, int64, error) {
	var fd int
	err := ignoringEINTR(func() error {
		var err error
		fd, err = unix.Open(path, mode.Flags|unix.O_CLOEXEC, 0o666)
		return err
	})
	if err != nil {
		return -1, 0, fail("open", path, "could not open file", &fs.PathError{Op: "open", Path: path, Err: err})
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return -1, 0, fail("open", path, "could not stat opened file", err)
	}
	return fd, st.Size, nil
}

// Pread reads up to length bytes at offset. A short or empty result is not
// an error; zero bytes means end of file.
func Pread(fd int, length int, offset int64) ([]byte, error) {
	if length <= 0 {
		return []byte{}, nil
	}
	buf := make([]byte, length)
	var n int
	err := ignoringEINTR(func() error {
		var err error
		n, err = unix.Pread(fd, buf, offset)
		return err
	})
	if err != nil {
		return nil, classifyFd("read", "reading from the file failed", err)
	}
	return buf[:n], nil
}

// Pwrite writes all of data at offset.
func Pwrite(fd int, data []byte, offset int64) (int, error) {
	written := 0
	for written < len(data) {
		var n int
		err := ignoringEINTR(func() error {
			var err error
			n, err = unix.Pwrite(fd, data[written:], offset+int64(written))
			return err
		})
		if err != nil {
			return written, classifyFd("write", "writing to the file failed", err)
		}
		if n == 0 {
			return written, classifyFd("write", "writing to the file failed", unix.EIO)
		}
		written += n
	}
	return written, nil
}

func Ftruncate(fd int, size int64) error {
	if err := unix.Ftruncate(fd, size); err != nil {
		return classifyFd("truncate", "truncating the file failed", err)
	}
	return nil
}

func CloseFd(fd int) error {
	if err := unix.Close(fd); err != nil {
		return classifyFd("close", "closing the file failed", err)
	}
	return nil
}

// classifyFd maps a bad descriptor onto common.ErrClosed so callers see the
// same error kind whichever backend issued the request.
func classifyFd(op, msg string, err error) error {
	if errors.Is(err, unix.EBADF) {
		return fmt.Errorf("%w: %s due to a closed handle", common.ErrClosed, msg)
	}
	return fail(op, "", msg, err)
}
