package worker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncfs/internal/codec"
)

// TestMain lets the test binary double as a subprocess worker.
func TestMain(m *testing.M) {
	if InWorker() {
		if err := Serve(os.Stdin, os.Stdout); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func testProcessFactory() TransportFactory {
	return ProcessFactory(os.Args[0], "-test.run=^$")
}

func TestLocalTransport(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	tr := NewLocalTransport()

	res, err := tr.Send(context.Background(), &Task{Op: OpGet, Path: filepath.Join(dir, "small.txt")})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "small", string(res.Data))

	require.NoError(t, tr.Close(context.Background()))
	assert.False(t, tr.Running())

	_, err = tr.Send(context.Background(), &Task{Op: OpStat, Path: dir})
	assert.ErrorIs(t, err, ErrWorkerStopped)
	require.NoError(t, tr.Close(context.Background()), "close is idempotent")
}

func TestLocalTransport_CancelledBeforeDelivery(t *testing.T) {
	t.Parallel()
	dir := fixture(t)
	tr := NewLocalTransport()
	defer tr.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Send(ctx, &Task{Op: OpPut, Path: filepath.Join(dir, "never.txt"), Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "never.txt"))
}

func TestServe(t *testing.T) {
	t.Parallel()
	dir := fixture(t)

	taskR, taskW := io.Pipe()
	resR, resW := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- Serve(taskR, resW)
		resW.Close()
	}()

	enc := codec.NewEncoder(taskW)
	dec := codec.NewDecoder(resR)
	roundTrip := func(task *Task) *Result {
		require.NoError(t, enc.Encode(task))
		var res Result
		require.NoError(t, dec.Decode(&res))
		return &res
	}

	open := roundTrip(&Task{Op: OpOpen, Path: filepath.Join(dir, "small.txt"), Mode: "r"})
	require.True(t, open.OK)
	read := roundTrip(&Task{Op: OpRead, ID: open.ID, Length: 8192})
	assert.Equal(t, "small", string(read.Data))

	st := roundTrip(&Task{Op: OpStat, Path: filepath.Join(dir, "small.txt")})
	require.NotNil(t, st.Stat)
	assert.True(t, st.Stat.IsFile())
	assert.WithinDuration(t, time.Now(), st.Stat.Mtime, time.Minute)

	failed := roundTrip(&Task{Op: OpUnlink, Path: filepath.Join(dir, "nope")})
	assert.False(t, failed.OK)
	assert.Equal(t, KindNotExist, failed.Kind)

	require.NoError(t, taskW.Close())
	require.NoError(t, <-done)
}

func TestProcessTransport(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a subprocess")
	}
	dir := fixture(t)

	p := NewPool(Config{Size: 1, Factory: testProcessFactory()})
	defer p.Close(context.Background())

	ctx := context.Background()
	w, err := p.Get(ctx)
	require.NoError(t, err)

	open, err := w.Execute(ctx, &Task{Op: OpOpen, Path: filepath.Join(dir, "out.txt"), Mode: "w+"})
	require.NoError(t, err)
	_, err = w.Execute(ctx, &Task{Op: OpWrite, ID: open.ID, Data: []byte("foo")})
	require.NoError(t, err)
	_, err = w.Execute(ctx, &Task{Op: OpWrite, ID: open.ID, Data: []byte("bar")})
	require.NoError(t, err)
	_, err = w.Execute(ctx, &Task{Op: OpClose, ID: open.ID})
	require.NoError(t, err)

	res, err := p.Execute(ctx, &Task{Op: OpGet, Path: filepath.Join(dir, "out.txt")})
	require.NoError(t, err)
	assert.Equal(t, "foobar", string(res.Data))

	_, err = p.Execute(ctx, &Task{Op: OpRmdir, Path: filepath.Join(dir, "nope")})
	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindNotExist, te.Kind)

	require.NoError(t, w.transport.Close(ctx))
	assert.False(t, w.Running())
	_, err = w.Execute(ctx, &Task{Op: OpStat, Path: dir})
	assert.True(t, IsDeliveryError(err))
}
