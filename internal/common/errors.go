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
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned synchronously for malformed open modes
	// and unknown seek origins. It never depends on the backend.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned for operations on a closed handle, a handle
	// whose descriptor became invalid, or a handle that is no longer writable.
	ErrClosed = errors.New("file handle closed")

	// ErrPendingOperation is returned when a read or seek is issued while
	// another read, seek or write is outstanding on the same handle.
	ErrPendingOperation = errors.New("pending operation")

	// ErrWorkerRecursion is returned when the worker-pool driver would be
	// installed from inside a worker process.
	ErrWorkerRecursion = errors.New("cannot use the parallel driver within a worker")
)

// FilesystemError is a backend-level failure. Undelivered is true when the
// request never reached a worker, so a retry is meaningful; otherwise the
// filesystem was asked and rejected the operation.
type FilesystemError struct {
	Op          string
	Path        string
	Msg         string
	Undelivered bool
	Err         error
}

func (e *FilesystemError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "the file operation failed"
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
	} else if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// NewFilesystemError wraps err as an attempted-and-failed operation.
func NewFilesystemError(op, path, msg string, err error) *FilesystemError {
	return &FilesystemError{Op: op, Path: path, Msg: msg, Err: err}
}

// NewDeliveryError wraps err as a request that could not be delivered.
func NewDeliveryError(op, path string, err error) *FilesystemError {
	return &FilesystemError{
		Op:          op,
		Path:        path,
		Msg:         "could not send the file task to a worker",
		Undelivered: true,
		Err:         err,
	}
}

// IsUndelivered reports whether err is a FilesystemError for a request that
// never reached a worker.
func IsUndelivered(err error) bool {
	var fsErr *FilesystemError
	if errors.As(err, &fsErr) {
		return fsErr.Undelivered
	}
	return false
}

// IsFilesystemError reports whether err carries a FilesystemError.
func IsFilesystemError(err error) bool {
	var fsErr *FilesystemError
	return errors.As(err, &fsErr)
}
