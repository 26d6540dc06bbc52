package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport answers every task with OK unless failures are queued.
type fakeTransport struct {
	mu       sync.Mutex
	running  bool
	failures int
	sends    int
	closed   bool
	reply    func(*Task) *Result
}

func newFake() *fakeTransport {
	return &fakeTransport{running: true}
}

func (f *fakeTransport) Send(_ context.Context, task *Task) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if !f.running {
		return nil, ErrWorkerStopped
	}
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("broken pipe")
	}
	if f.reply != nil {
		return f.reply(task), nil
	}
	return &Result{OK: true}, nil
}

func (f *fakeTransport) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeTransport) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.closed = true
	return nil
}

func (f *fakeTransport) crash() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

// fakeFactory hands out the given transports in order, then fresh ones.
func fakeFactory(started *atomic.Int32, transports ...*fakeTransport) TransportFactory {
	var mu sync.Mutex
	return func(context.Context) (Transport, error) {
		started.Add(1)
		mu.Lock()
		defer mu.Unlock()
		if len(transports) == 0 {
			return newFake(), nil
		}
		t := transports[0]
		transports = transports[1:]
		return t, nil
	}
}

func TestPool_StartsWorkersLazily(t *testing.T) {
	t.Parallel()
	var started atomic.Int32
	p := NewPool(Config{Size: 2, Factory: fakeFactory(&started)})
	assert.Equal(t, 0, p.Workers())

	_, err := p.Execute(context.Background(), &Task{Op: OpStat, Path: "/"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Workers())
	assert.Equal(t, int32(1), started.Load())
}

func TestPool_RetriesDeliveryFailures(t *testing.T) {
	t.Parallel()
	var started atomic.Int32
	flaky := newFake()
	flaky.failures = 2
	p := NewPool(Config{Size: 1, Factory: fakeFactory(&started, flaky), RetryAttempts: 3})

	res, err := p.Execute(context.Background(), &Task{Op: OpUnlink, Path: "/tmp/x"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 3, flaky.sends)
}

func TestPool_DeliveryFailureAfterRetries(t *testing.T) {
	t.Parallel()
	var started atomic.Int32
	flaky := newFake()
	flaky.failures = 10
	p := NewPool(Config{Size: 1, Factory: fakeFactory(&started, flaky), RetryAttempts: 2})

	_, err := p.Execute(context.Background(), &Task{Op: OpUnlink, Path: "/tmp/x"})
	require.Error(t, err)
	assert.True(t, IsDeliveryError(err))

	var te *TaskError
	assert.False(t, errors.As(err, &te))
	assert.Equal(t, 2, flaky.sends)
}

func TestPool_TaskFailuresAreNotRetried(t *testing.T) {
	t.Parallel()
	var started atomic.Int32
	failing := newFake()
	failing.reply = func(*Task) *Result {
		return &Result{Kind: KindNotExist, Message: "no such file"}
	}
	p := NewPool(Config{Size: 1, Factory: fakeFactory(&started, failing), RetryAttempts: 3})

	_, err := p.Execute(context.Background(), &Task{Op: OpUnlink, Path: "/tmp/x"})
	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindNotExist, te.Kind)
	assert.False(t, IsDeliveryError(err))
	assert.Equal(t, 1, failing.sends)
}

func TestPool_ReplacesCrashedWorkers(t *testing.T) {
	t.Parallel()
	var started atomic.Int32
	first := newFake()
	p := NewPool(Config{Size: 1, Factory: fakeFactory(&started, first)})

	w1, err := p.Get(context.Background())
	require.NoError(t, err)
	first.crash()

	w2, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, w1.ID(), w2.ID())
	assert.True(t, w2.Running())
	assert.Equal(t, 1, p.Workers())
	assert.Equal(t, int32(2), started.Load())

	// A handle bound to the crashed worker sees a delivery failure.
	_, err = w1.Execute(context.Background(), &Task{Op: OpRead, ID: 1})
	assert.True(t, IsDeliveryError(err))
}

func TestPool_PrefersLeastLoaded(t *testing.T) {
	t.Parallel()
	var started atomic.Int32
	p := NewPool(Config{Size: 2, Factory: fakeFactory(&started)})

	w1, err := p.Get(context.Background())
	require.NoError(t, err)
	w2, err := p.Get(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, w1.ID(), w2.ID())

	w1.Bind()
	w1.Bind()
	for range 4 {
		w, err := p.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, w2.ID(), w.ID())
	}
	w1.Unbind()
	w1.Unbind()
}

func TestPool_Close(t *testing.T) {
	t.Parallel()
	var started atomic.Int32
	a, b := newFake(), newFake()
	p := NewPool(Config{Size: 2, Factory: fakeFactory(&started, a, b)})
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, 2, p.Workers())

	require.NoError(t, p.Close(context.Background()))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.False(t, p.Running())

	_, err := p.Execute(context.Background(), &Task{Op: OpStat})
	assert.True(t, IsDeliveryError(err))
	assert.ErrorIs(t, err, ErrPoolClosed)

	require.NoError(t, p.Close(context.Background()), "second close is a no-op")
}

func TestPool_StartFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("exec failed")
	p := NewPool(Config{Size: 1, Factory: func(context.Context) (Transport, error) {
		return nil, boom
	}})

	_, err := p.Execute(context.Background(), &Task{Op: OpStat})
	assert.True(t, IsDeliveryError(err))
	assert.ErrorIs(t, err, boom)
}
