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

package worker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"asyncfs/internal/common"
)

// Task operation names.
const (
	OpOpen     = "fopen"
	OpRead     = "fread"
	OpWrite    = "fwrite"
	OpSeek     = "fseek"
	OpTruncate = "ftruncate"
	OpClose    = "fclose"

	OpStat     = "stat"
	OpLstat    = "lstat"
	OpExists   = "exists"
	OpSymlink  = "symlink"
	OpLink     = "link"
	OpReadlink = "readlink"
	OpRename   = "rename"
	OpUnlink   = "unlink"
	OpMkdir    = "mkdir"
	OpRmdir    = "rmdir"
	OpScandir  = "scandir"
	OpChmod    = "chmod"
	OpChown    = "chown"
	OpTouch    = "touch"
	OpGet      = "get"
	OpPut      = "put"
)

// Error kinds carried by a failed Result.
const (
	KindNotExist   = "not_exist"
	KindExist      = "exist"
	KindPermission = "permission"
	KindClosed     = "closed"
	KindInvalid    = "invalid"
	KindIO         = "io"
)

// ResourceID names a file held open inside a worker. Zero means "none".
type ResourceID uint64

// Task is a request sent to a worker. Only the fields an operation needs are
// set; ID is non-zero for operations on an open file.
type Task struct {
	Op        string      `cbor:"op"`
	ID        ResourceID  `cbor:"id,omitempty"`
	Path      string      `cbor:"path,omitempty"`
	Target    string      `cbor:"target,omitempty"`
	Mode      string      `cbor:"mode,omitempty"`
	Perm      os.FileMode `cbor:"perm,omitempty"`
	Recursive bool        `cbor:"recursive,omitempty"`
	UID       int         `cbor:"uid,omitempty"`
	GID       int         `cbor:"gid,omitempty"`
	Length    int         `cbor:"length,omitempty"`
	Offset    int64       `cbor:"offset,omitempty"`
	Whence    int         `cbor:"whence,omitempty"`
	Size      int64       `cbor:"size,omitempty"`
	Data      []byte      `cbor:"data,omitempty"`
	Mtime     time.Time   `cbor:"mtime,omitempty"`
	Atime     time.Time   `cbor:"atime,omitempty"`
}

// Result is a worker's response: either OK with the operation's payload, or
// a failure described by Kind and Message.
type Result struct {
	OK       bool         `cbor:"ok"`
	Kind     string       `cbor:"kind,omitempty"`
	Message  string       `cbor:"message,omitempty"`
	ID       ResourceID   `cbor:"id,omitempty"`
	Size     int64        `cbor:"size,omitempty"`
	Mode     string       `cbor:"mode,omitempty"`
	Data     []byte       `cbor:"data,omitempty"`
	N        int          `cbor:"n,omitempty"`
	Position int64        `cbor:"position,omitempty"`
	Stat     *common.Stat `cbor:"stat,omitempty"`
	Names    []string     `cbor:"names,omitempty"`
	Exists   bool         `cbor:"exists,omitempty"`
	Target   string       `cbor:"target,omitempty"`
}

// TaskError is an operation the worker attempted and that failed.
type TaskError struct {
	Op      string
	Kind    string
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s failed in worker: %s", e.Op, e.Message)
}

// Unwrap exposes the sentinel matching Kind so errors.Is works across the
// worker boundary.
func (e *TaskError) Unwrap() error {
	switch e.Kind {
	case KindNotExist:
		return fs.ErrNotExist
	case KindExist:
		return fs.ErrExist
	case KindPermission:
		return fs.ErrPermission
	case KindClosed:
		return common.ErrClosed
	case KindInvalid:
		return common.ErrInvalidArgument
	}
	return nil
}

// DeliveryError is a task that could not be handed to a worker.
type DeliveryError struct {
	Op     string
	Worker string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Worker != "" {
		return fmt.Sprintf("sending %s to worker %s failed: %v", e.Op, e.Worker, e.Err)
	}
	return fmt.Sprintf("sending %s to worker failed: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsDeliveryError reports whether err means the task never reached a worker.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// ErrPoolClosed is returned for tasks submitted after Pool.Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// ErrWorkerStopped is returned when a worker's transport has shut down.
var ErrWorkerStopped = errors.New("worker is not running")

// KindOf classifies err for the wire.
func KindOf(err error) string {
	switch {
	case errors.Is(err, common.ErrClosed):
		return KindClosed
	case errors.Is(err, common.ErrInvalidArgument):
		return KindInvalid
	case errors.Is(err, fs.ErrNotExist):
		return KindNotExist
	case errors.Is(err, fs.ErrExist):
		return KindExist
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	}
	return KindIO
}

// failure builds a failed Result from err.
func failure(err error) *Result {
	return &Result{Kind: KindOf(err), Message: err.Error()}
}
