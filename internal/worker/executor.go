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
	"io"

	log "github.com/sirupsen/logrus"

	"asyncfs/internal/common"
	"asyncfs/internal/osfs"
)

// Executor runs tasks against the local filesystem. It is the worker side
// of the protocol and owns the remote-resource table.
type Executor struct {
	resources *ResourceTable
}

// NewExecutor creates an executor with an empty resource table.
func NewExecutor() *Executor {
	return &Executor{resources: NewResourceTable()}
}

// OpenFiles returns how many files the executor holds open.
func (e *Executor) OpenFiles() int {
	return e.resources.Len()
}

// Shutdown closes every file still held open.
func (e *Executor) Shutdown() {
	e.resources.CloseAll()
}

// Execute runs one task. It never returns nil; failures are reported in
// the Result.
func (e *Executor) Execute(task *Task) *Result {
	log.Debugf("[Executor.Execute] op=%s id=%d path=%s", task.Op, task.ID, task.Path)

	res, err := e.execute(task)
	if err != nil {
		log.Debugf("[Executor.Execute] op=%s failed: %v", task.Op, err)
		return failure(err)
	}
	res.OK = true
	return res
}

func (e *Executor) execute(t *Task) (*Result, error) {
	switch t.Op {
	case OpOpen:
		return e.open(t)
	case OpRead, OpWrite, OpSeek, OpTruncate, OpClose:
		return e.fileOp(t)

	case OpStat:
		st, err := osfs.Stat(t.Path)
		return &Result{Stat: st}, err
	case OpLstat:
		st, err := osfs.Lstat(t.Path)
		return &Result{Stat: st}, err
	case OpExists:
		return &Result{Exists: osfs.Exists(t.Path)}, nil
	case OpSymlink:
		return &Result{}, osfs.Symlink(t.Target, t.Path)
	case OpLink:
		return &Result{}, osfs.Link(t.Target, t.Path)
	case OpReadlink:
		target, err := osfs.Readlink(t.Path)
		return &Result{Target: target}, err
	case OpRename:
		return &Result{}, osfs.Rename(t.Path, t.Target)
	case OpUnlink:
		return &Result{}, osfs.Unlink(t.Path)
	case OpMkdir:
		return &Result{}, osfs.Mkdir(t.Path, t.Perm, t.Recursive)
	case OpRmdir:
		return &Result{}, osfs.Rmdir(t.Path)
	case OpScandir:
		names, err := osfs.Scandir(t.Path)
		return &Result{Names: names}, err
	case OpChmod:
		return &Result{}, osfs.Chmod(t.Path, t.Perm)
	case OpChown:
		return &Result{}, osfs.Chown(t.Path, t.UID, t.GID)
	case OpTouch:
		return &Result{}, osfs.Touch(t.Path, t.Mtime, t.Atime)
	case OpGet:
		data, err := osfs.Get(t.Path)
		return &Result{Data: data}, err
	case OpPut:
		return &Result{}, osfs.Put(t.Path, t.Data)
	}
	return nil, fmt.Errorf("%w: unknown task %q", common.ErrInvalidArgument, t.Op)
}

func (e *Executor) open(t *Task) (*Result, error) {
	mode, err := osfs.ParseMode(t.Mode)
	if err != nil {
		return nil, err
	}
	f, size, err := osfs.OpenFile(t.Path, mode)
	if err != nil {
		return nil, err
	}
	if mode.Append() {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, common.NewFilesystemError("open", t.Path, "could not seek to end", err)
		}
	}
	id := e.resources.Allocate(f, t.Path, mode.Name)
	return &Result{ID: id, Size: size, Mode: mode.Name}, nil
}

func (e *Executor) fileOp(t *Task) (*Result, error) {
	if t.Op == OpClose {
		rf, ok := e.resources.Release(t.ID)
		if !ok {
			return nil, fmt.Errorf("%w: no open file with id %d", common.ErrClosed, t.ID)
		}
		if err := rf.file.Close(); err != nil {
			return nil, common.NewFilesystemError("close", rf.path, "could not close file", err)
		}
		return &Result{}, nil
	}

	rf, ok := e.resources.Get(t.ID)
	if !ok {
		return nil, fmt.Errorf("%w: no open file with id %d", common.ErrClosed, t.ID)
	}
	f := rf.file

	switch t.Op {
	case OpRead:
		if t.Length <= 0 {
			return &Result{Data: []byte{}}, nil
		}
		buf := make([]byte, t.Length)
		n, err := io.ReadFull(f, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, common.NewFilesystemError("read", rf.path, "reading from the file failed", err)
		}
		return &Result{Data: buf[:n]}, nil

	case OpWrite:
		n, err := f.Write(t.Data)
		if err != nil {
			return nil, common.NewFilesystemError("write", rf.path, "writing to the file failed", err)
		}
		return &Result{N: n}, nil

	case OpSeek:
		if t.Whence != io.SeekStart && t.Whence != io.SeekCurrent && t.Whence != io.SeekEnd {
			return nil, fmt.Errorf("%w: invalid whence %d", common.ErrInvalidArgument, t.Whence)
		}
		pos, err := f.Seek(t.Offset, t.Whence)
		if err != nil {
			return nil, common.NewFilesystemError("seek", rf.path, "could not move the file position", err)
		}
		return &Result{Position: pos}, nil

	case OpTruncate:
		if err := f.Truncate(t.Size); err != nil {
			return nil, common.NewFilesystemError("truncate", rf.path, "could not truncate file", err)
		}
		return &Result{}, nil
	}
	return nil, fmt.Errorf("%w: unknown task %q", common.ErrInvalidArgument, t.Op)
}
