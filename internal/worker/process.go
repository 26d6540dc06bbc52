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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	log "github.com/sirupsen/logrus"

	"asyncfs/internal/codec"
	"asyncfs/internal/util"
)

// EnvWorker is set to "1" in the environment of subprocess workers.
const EnvWorker = "ASYNCFS_WORKER"

// InWorker reports whether this process is a worker.
func InWorker() bool {
	return os.Getenv(EnvWorker) == "1"
}

// processTransport talks to a child process over its stdin and stdout,
// one CBOR frame per task and per result.
type processTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	enc    *codec.Encoder
	dec    *codec.Decoder

	// mu keeps a single task in flight on the pipe.
	mu        sync.Mutex
	exited    chan struct{}
	closeOnce sync.Once
	cfg       util.ProcessConfig
}

// ProcessFactory returns a TransportFactory that starts command with args
// as a worker. The command must serve the protocol on stdio; see Serve.
func ProcessFactory(command string, args ...string) TransportFactory {
	return func(ctx context.Context) (Transport, error) {
		return StartProcess(command, args...)
	}
}

// SelfFactory starts the running executable's hidden worker command.
func SelfFactory() (TransportFactory, error) {
	exe, err := util.GetExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	return ProcessFactory(exe, "worker"), nil
}

// StartProcess starts a subprocess worker.
func StartProcess(command string, args ...string) (Transport, error) {
	cmd := exec.Command(command, args...)
	cmd.Env = append(os.Environ(), EnvWorker+"=1")
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create worker stdin: %w", err)
	}
	// A plain pipe instead of StdoutPipe: Wait must not close our read end
	// while a reply is still buffered.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create worker stdout: %w", err)
	}
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	pw.Close()

	t := &processTransport{
		cmd:    cmd,
		stdin:  stdin,
		stdout: pr,
		enc:    codec.NewEncoder(stdin),
		dec:    codec.NewDecoder(pr),
		exited: make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		log.Debugf("[processTransport] worker pid=%d exited: %v", cmd.Process.Pid, err)
		close(t.exited)
	}()
	return t, nil
}

func (t *processTransport) Send(ctx context.Context, task *Task) (*Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Running() {
		return nil, ErrWorkerStopped
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.enc.Encode(task); err != nil {
		return nil, fmt.Errorf("failed to write task: %w", err)
	}
	var res Result
	if err := t.dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("worker stopped before replying: %w", err)
	}
	return &res, nil
}

func (t *processTransport) Running() bool {
	select {
	case <-t.exited:
		return false
	default:
		return true
	}
}

func (t *processTransport) Close(ctx context.Context) error {
	var err error
	t.closeOnce.Do(func() {
		err = util.StopProcess(ctx, t.cfg,
			t.stdin.Close,
			t.Running,
			func() error { return t.cmd.Process.Kill() },
		)
		t.stdout.Close()
	})
	return err
}

// Serve runs the worker side of the protocol: it decodes tasks from r,
// executes them, and encodes results to w until r reaches EOF. Files left
// open are closed on return.
func Serve(r io.Reader, w io.Writer) error {
	ex := NewExecutor()
	defer ex.Shutdown()

	dec := codec.NewDecoder(r)
	enc := codec.NewEncoder(w)
	for {
		var task Task
		if err := dec.Decode(&task); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read task: %w", err)
		}
		if err := enc.Encode(ex.Execute(&task)); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
}
