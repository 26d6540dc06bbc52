package osfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncfs/internal/common"
)

func TestPositionalIO(t *testing.T) {
	root := fixture(t)
	path := filepath.Join(root, "pio")

	fd, size, err := OpenFd(path, MustParseMode("c+"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)

	n, err := Pwrite(fd, []byte("foo"), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = Pwrite(fd, []byte("bar"), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := Pread(fd, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, "foobar", string(data))

	data, err = Pread(fd, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "ar", string(data))

	data, err = Pread(fd, 10, 6)
	require.NoError(t, err)
	assert.Empty(t, data, "reading at the end yields zero bytes")

	data, err = Pread(fd, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, Ftruncate(fd, 2))
	data, err = Pread(fd, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, "fo", string(data))

	require.NoError(t, CloseFd(fd))
}

func TestOpenFd_Missing(t *testing.T) {
	root := fixture(t)
	_, _, err := OpenFd(filepath.Join(root, "nonexistent"), MustParseMode("r"))
	assert.True(t, common.IsFilesystemError(err))
}

func TestClassifyFd(t *testing.T) {
	// Closing a descriptor twice reports EBADF the second time.
	root := fixture(t)
	fd, _, err := OpenFd(filepath.Join(root, "small.txt"), MustParseMode("r"))
	require.NoError(t, err)
	require.NoError(t, CloseFd(fd))

	_, err = Pread(fd, 10, 0)
	assert.ErrorIs(t, err, common.ErrClosed)
}
