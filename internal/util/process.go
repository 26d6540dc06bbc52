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

package util

import (
	"context"
	"fmt"
	"os"
	"time"
)

// ProcessConfig configures child process shutdown.
type ProcessConfig struct {
	GracefulTimeout time.Duration // Time to wait for graceful exit (default: 2s)
	PollInterval    time.Duration // Polling interval for process state (default: 10ms)
}

// StopProcess asks a child to exit, then kills it if it is still running
// after the graceful timeout. gracefulStop requests the exit, for example by
// closing the child's stdin; kill terminates it unconditionally.
func StopProcess(ctx context.Context, cfg ProcessConfig, gracefulStop func() error, isRunning func() bool, kill func() error) error {
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 2 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}

	if gracefulStop != nil {
		// An error here still leaves the forced path below.
		_ = gracefulStop()
	}

	err := PollUntil(ctx, PollConfig{Timeout: cfg.GracefulTimeout, Interval: cfg.PollInterval}, func() bool {
		return !isRunning()
	})
	if err == nil {
		return nil
	}

	if kill != nil {
		_ = kill()
	}
	// The kill wait ignores ctx so a cancelled caller still reaps the child.
	exited := PollUntil(context.Background(), PollConfig{Timeout: cfg.GracefulTimeout, Interval: cfg.PollInterval}, func() bool {
		return !isRunning()
	})
	if exited != nil {
		return fmt.Errorf("failed to stop process: %w", exited)
	}
	return nil
}

// GetExecutablePath returns the path to the current executable.
func GetExecutablePath() (string, error) {
	return os.Executable()
}
