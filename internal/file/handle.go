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
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	"asyncfs/internal/common"
	"asyncfs/internal/osfs"
)

// fileIO performs the backend-specific half of each handle operation.
// Position bookkeeping and the single-flight rules live in handle.
type fileIO interface {
	// read returns up to length bytes at position; an empty result is end
	// of file.
	read(ctx context.Context, length int, position int64) ([]byte, error)
	// write writes all of data at position.
	write(ctx context.Context, data []byte, position int64) (int, error)
	// seek returns the new absolute position.
	seek(ctx context.Context, offset int64, whence int, position, size int64) (int64, error)
	truncate(ctx context.Context, size int64) error
	close(ctx context.Context) error
	// bounded reports whether reads must be clamped to size - position
	// because the backend cannot rely on the OS to stop at end of file.
	bounded() bool
}

// writeOp is the completion record of one queued write. The next write
// waits on done before it runs.
type writeOp struct {
	done chan struct{}
	err  error
}

type closeOp struct {
	done chan struct{}
	err  error
}

// handle implements Handle over a fileIO.
type handle struct {
	path string
	mode osfs.Mode
	io   fileIO

	mu            sync.Mutex
	position      int64
	size          int64
	busy          bool
	pendingWrites int
	lastWrite     *writeOp
	writable      bool
	closed        bool
	closing       *closeOp

	// inflight counts issued operations; close waits for them.
	inflight sync.WaitGroup
}

func newHandle(path string, mode osfs.Mode, size int64, fio fileIO) *handle {
	h := &handle{
		path:     path,
		mode:     mode,
		io:       fio,
		size:     size,
		writable: mode.Writable(),
	}
	if mode.Append() {
		h.position = size
	}
	return h
}

func (h *handle) Path() string {
	return h.path
}

func (h *handle) Mode() string {
	return h.mode.Name
}

func (h *handle) Tell() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

func (h *handle) Size() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

func (h *handle) EOF() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pendingWrites == 0 && h.position >= h.size
}

// beginExclusive claims the handle for a read, seek or truncate and returns
// the committed position and size.
func (h *handle) beginExclusive(ctx context.Context, op string) (int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, 0, fmt.Errorf("%w: cannot %s %s", common.ErrClosed, op, h.path)
	}
	if h.busy || h.pendingWrites > 0 {
		return 0, 0, fmt.Errorf("%w: cannot %s while another operation is pending", common.ErrPendingOperation, op)
	}
	h.busy = true
	h.inflight.Add(1)
	return h.position, h.size, nil
}

func (h *handle) endExclusive(commit func()) {
	h.mu.Lock()
	h.busy = false
	if commit != nil {
		commit()
	}
	h.mu.Unlock()
	h.inflight.Done()
}

func (h *handle) Read(ctx context.Context, length int) ([]byte, error) {
	if length <= 0 {
		length = DefaultReadLength
	}
	position, size, err := h.beginExclusive(ctx, "read")
	if err != nil {
		return nil, err
	}

	if h.io.bounded() {
		length = int(min(int64(length), max(size-position, 0)))
	}
	var data []byte
	if length > 0 {
		data, err = h.io.read(ctx, length, position)
	}

	h.endExclusive(func() {
		if err == nil {
			h.position += int64(len(data))
			if h.position > h.size {
				h.size = h.position
			}
		}
	})

	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, io.EOF
	}
	log.Tracef("[handle.Read] %s: %d bytes at %d", h.path, len(data), position)
	return data, nil
}

func (h *handle) Seek(ctx context.Context, offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart, io.SeekCurrent, io.SeekEnd:
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", common.ErrInvalidArgument, whence)
	}
	position, size, err := h.beginExclusive(ctx, "seek")
	if err != nil {
		return 0, err
	}

	newPos, err := h.io.seek(ctx, offset, whence, position, size)
	h.endExclusive(func() {
		if err == nil {
			h.position = newPos
			if newPos > h.size {
				h.size = newPos
			}
		}
	})
	if err != nil {
		return 0, err
	}
	return newPos, nil
}

func (h *handle) Truncate(ctx context.Context, size int64) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", common.ErrInvalidArgument, size)
	}
	h.mu.Lock()
	writable, closed := h.writable, h.closed
	h.mu.Unlock()
	if !writable && !closed {
		return fmt.Errorf("%w: the file is no longer writable", common.ErrClosed)
	}
	if _, _, err := h.beginExclusive(ctx, "truncate"); err != nil {
		return err
	}

	err := h.io.truncate(ctx, size)
	h.endExclusive(func() {
		if err == nil {
			h.size = size
		}
	})
	return err
}

func (h *handle) Write(ctx context.Context, data []byte) (int, error) {
	wait, err := h.issueWrite(ctx, data, false)
	if err != nil {
		return 0, err
	}
	return wait()
}

func (h *handle) End(ctx context.Context, data []byte) (int, error) {
	wait, err := h.issueWrite(ctx, data, true)
	if err != nil {
		return 0, err
	}
	n, err := wait()
	if cerr := h.Close(ctx); cerr != nil {
		log.Debugf("[handle.End] %s: discarding close error: %v", h.path, cerr)
	}
	return n, err
}

// issueWrite queues a write behind any write still in flight. The returned
// function runs it and reports the outcome. When final is set the handle
// stops accepting writes once this one is queued.
func (h *handle) issueWrite(ctx context.Context, data []byte, final bool) (func() (int, error), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	switch {
	case h.closed:
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot write to %s", common.ErrClosed, h.path)
	case !h.writable:
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: the file is no longer writable", common.ErrClosed)
	case h.busy:
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot write while a read or seek is pending", common.ErrPendingOperation)
	}

	prev := h.lastWrite
	op := &writeOp{done: make(chan struct{})}
	h.lastWrite = op
	h.pendingWrites++
	if final {
		h.writable = false
	}
	h.inflight.Add(1)
	h.mu.Unlock()

	return func() (int, error) {
		n, err := h.runWrite(ctx, prev, data)

		h.mu.Lock()
		h.pendingWrites--
		if h.pendingWrites == 0 {
			h.lastWrite = nil
		}
		h.mu.Unlock()

		op.err = err
		close(op.done)
		h.inflight.Done()
		return n, err
	}, nil
}

func (h *handle) runWrite(ctx context.Context, prev *writeOp, data []byte) (int, error) {
	if prev != nil {
		<-prev.done
		if prev.err != nil {
			return 0, common.NewFilesystemError("write", h.path, "a previous write failed", prev.err)
		}
	}

	h.mu.Lock()
	position := h.position
	if h.mode.Append() {
		// O_APPEND writes land at the end whatever the cursor says.
		position = h.size
	}
	h.mu.Unlock()

	n, err := h.io.write(ctx, data, position)

	h.mu.Lock()
	h.position = position + int64(n)
	if h.position > h.size {
		h.size = h.position
	}
	h.mu.Unlock()

	log.Tracef("[handle.Write] %s: %d bytes at %d", h.path, n, position)
	return n, err
}

func (h *handle) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closing != nil {
		op := h.closing
		h.mu.Unlock()
		<-op.done
		return nil
	}
	op := &closeOp{done: make(chan struct{})}
	h.closing = op
	h.closed = true
	h.writable = false
	h.mu.Unlock()

	// Queued writes finish before the resource is released.
	h.inflight.Wait()
	op.err = h.io.close(context.WithoutCancel(ctx))
	close(op.done)

	log.Debugf("[handle.Close] %s closed (err=%v)", h.path, op.err)
	return op.err
}
