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

package reactor

import (
	"context"
	"sync"
)

// Poll holds a loop alive while requests it listens to are outstanding.
// The keep-alive is registered when the count goes from zero to one and
// dropped when it returns to zero.
type Poll struct {
	loop *Loop

	mu       sync.Mutex
	requests int
}

// NewPoll creates a poll bound to loop.
func NewPoll(loop *Loop) *Poll {
	return &Poll{loop: loop}
}

// Issue registers a request with p and then submits fn to p's loop. The
// registration is held until the returned future resolves, and dropped
// at once if the request is never issued.
func Issue[T any](ctx context.Context, p *Poll, fn func() (T, error)) (*Future[T], error) {
	p.acquire()
	f, err := Submit(ctx, p.loop, fn)
	if err != nil {
		p.release()
		return nil, err
	}
	f.OnComplete(func(T, error) { p.release() })
	return f, nil
}

// Pending returns the number of outstanding requests.
func (p *Poll) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *Poll) acquire() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	if p.requests == 1 {
		p.loop.Ref()
	}
}

func (p *Poll) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests--
	if p.requests == 0 {
		p.loop.Unref()
	}
}
