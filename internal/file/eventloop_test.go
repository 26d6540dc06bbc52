package file

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncfs/internal/cache"
	"asyncfs/internal/reactor"
)

func TestReactor_KeepAliveOnlyWhileBusy(t *testing.T) {
	t.Parallel()
	g := gomega.NewWithT(t)
	ctx := context.Background()
	loop := reactor.NewLoop(4)
	d := NewReactorDriver(loop, WithStatCache(cache.NewStatCache(0, 0)))
	root := fixture(t)

	assert.False(t, loop.Running(), "an unused loop has no dispatcher")

	h, err := d.Open(ctx, filepath.Join(root, "small.txt"), "r")
	require.NoError(t, err)
	data, err := h.Read(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "small", string(data))

	// Nothing outstanding: the loop is free to go idle while the handle
	// stays open.
	g.Eventually(loop.Refs).WithTimeout(time.Second).Should(gomega.Equal(0))
	g.Eventually(loop.Running).WithTimeout(time.Second).Should(gomega.BeFalse())

	require.NoError(t, h.Close(ctx))
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(waitCtx))
	assert.Zero(t, loop.InFlight())
}

func TestReactor_ConcurrentHandles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	loop := reactor.NewLoop(2)
	d := NewReactorDriver(loop, WithStatCache(cache.NewStatCache(0, 0)))
	root := fixture(t)

	errs := make(chan error, 8)
	for i := range 8 {
		go func() {
			path := filepath.Join(root, "out", "f"+string(rune('a'+i)))
			if err := d.Mkdir(ctx, filepath.Dir(path), 0o755, true); err != nil {
				errs <- err
				return
			}
			errs <- WithHandle(ctx, d, path, "w", func(h Handle) error {
				_, err := h.Write(ctx, []byte("x"))
				return err
			})
		}()
	}
	for range 8 {
		require.NoError(t, <-errs)
	}

	names, err := d.Scandir(ctx, filepath.Join(root, "out"))
	require.NoError(t, err)
	assert.Len(t, names, 8)
}
