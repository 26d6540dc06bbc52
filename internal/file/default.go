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
	"sync"

	log "github.com/sirupsen/logrus"

	"asyncfs/internal/cache"
	"asyncfs/internal/common"
	"asyncfs/internal/config"
	"asyncfs/internal/reactor"
	"asyncfs/internal/worker"
)

var (
	defaultMu     sync.Mutex
	defaultDriver Driver
)

// Default returns the process-wide driver, creating it from the loaded
// settings on first use. If the settings cannot be loaded or name a backend
// that cannot run here, the blocking driver is used.
func Default() Driver {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultDriver != nil {
		return defaultDriver
	}
	settings, err := config.Load()
	if err == nil {
		defaultDriver, err = NewFromSettings(settings)
	}
	if err != nil {
		log.Warnf("[file.Default] falling back to the blocking driver: %v", err)
		defaultDriver = NewBlockingDriver()
	}
	return defaultDriver
}

// SetDefault replaces the process-wide driver and returns the previous one,
// which the caller may close. A nil driver resets to lazy creation. Inside a
// worker process a parallel driver is refused with
// common.ErrWorkerRecursion.
func SetDefault(d Driver) (Driver, error) {
	if d != nil && d.Backend() == "parallel" && worker.InWorker() {
		return nil, common.ErrWorkerRecursion
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultDriver
	defaultDriver = d
	return prev, nil
}

// NewFromSettings builds a driver for settings and applies its cache TTL to
// cache.Default.
func NewFromSettings(s *config.Settings) (Driver, error) {
	ttl, err := s.TTL()
	if err != nil {
		return nil, err
	}
	cache.Default.SetTTL(ttl)

	backend := s.Backend
	if backend == "" || backend == config.BackendAuto {
		backend = probe()
	}
	log.Debugf("[file.NewFromSettings] backend=%s cache_ttl=%s", backend, ttl)

	switch backend {
	case config.BackendReactor:
		if !ReactorSupported() {
			return nil, fmt.Errorf("reactor backend is not supported on this platform")
		}
		return NewReactorDriver(reactor.NewLoop(s.ReactorThreads)), nil
	case config.BackendBlocking:
		return NewBlockingDriver(), nil
	case config.BackendParallel:
		var factory worker.TransportFactory = worker.LocalFactory
		if s.WorkerMode == config.WorkerModeProcess {
			if factory, err = worker.SelfFactory(); err != nil {
				return nil, err
			}
		}
		return NewParallelDriver(worker.NewPool(worker.Config{
			Size:          s.Workers,
			Factory:       factory,
			RetryAttempts: s.RetryAttempts,
		}))
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

// probe picks a backend: the reactor where supported, the blocking driver
// inside a worker, and the worker pool otherwise.
func probe() string {
	switch {
	case ReactorSupported():
		return config.BackendReactor
	case worker.InWorker():
		return config.BackendBlocking
	}
	return config.BackendParallel
}

// WithHandle opens path, passes the handle to fn and always closes it. A
// close error is returned only when fn succeeded.
func WithHandle(ctx context.Context, d Driver, path, mode string, fn func(Handle) error) (err error) {
	h, err := d.Open(ctx, path, mode)
	if err != nil {
		return err
	}
	defer func() {
		cerr := h.Close(ctx)
		if err == nil {
			err = cerr
		} else if cerr != nil {
			log.Debugf("[file.WithHandle] %s: discarding close error: %v", path, cerr)
		}
	}()
	return fn(h)
}
