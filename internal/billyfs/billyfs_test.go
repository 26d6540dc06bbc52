package billyfs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	nfsfile "github.com/willscott/go-nfs/file"

	"asyncfs/internal/cache"
	"asyncfs/internal/file"
)

func newTestFS(t *testing.T) (*Filesystem, string) {
	t.Helper()
	root := t.TempDir()
	d := file.NewBlockingDriver(file.WithStatCache(cache.NewStatCache(0, 0)))
	return New(d, root), root
}

func TestModeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		flag     int
		mode     string
		truncate bool
	}{
		{"read only", os.O_RDONLY, "r", false},
		{"read write", os.O_RDWR, "r+", false},
		{"write only", os.O_WRONLY, "r+", false},
		{"truncate existing", os.O_RDWR | os.O_TRUNC, "r+", true},
		{"create truncate", os.O_RDWR | os.O_CREATE | os.O_TRUNC, "w+", false},
		{"create truncate write only", os.O_WRONLY | os.O_CREATE | os.O_TRUNC, "w", false},
		{"append", os.O_WRONLY | os.O_CREATE | os.O_APPEND, "a", false},
		{"exclusive", os.O_RDWR | os.O_CREATE | os.O_EXCL, "x+", false},
		{"create", os.O_RDWR | os.O_CREATE, "c+", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mode, truncate := modeFor(tt.flag)
			assert.Equal(t, tt.mode, mode)
			assert.Equal(t, tt.truncate, truncate)
		})
	}
}

func TestFileReadWrite(t *testing.T) {
	t.Parallel()
	bfs, root := newTestFS(t)

	f, err := bfs.Create("hello.txt")
	require.NoError(t, err)
	n, err := f.Write([]byte("foobar"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(root, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "foobar", string(data))

	f, err = bfs.Open("hello.txt")
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 3)
	n, err = f.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "bar", string(buf[:n]))

	all, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "foobar", string(all), "ReadAt must not move the position")
}

func TestTruncateOnOpen(t *testing.T) {
	t.Parallel()
	bfs, root := newTestFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "t.txt"), []byte("abcdef"), 0o644))

	f, err := bfs.OpenFile("t.txt", os.O_RDWR|os.O_TRUNC, 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fi, err := bfs.Stat("t.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), fi.Size())
}

func TestStatAndReadDir(t *testing.T) {
	t.Parallel()
	bfs, _ := newTestFS(t)

	require.NoError(t, bfs.MkdirAll("a/b", 0o755))
	require.NoError(t, util.WriteFile(bfs, "a/one.txt", []byte("1"), 0o640))
	require.NoError(t, bfs.Symlink("one.txt", "a/link"))

	fi, err := bfs.Stat("a/one.txt")
	require.NoError(t, err)
	assert.Equal(t, "one.txt", fi.Name())
	assert.Equal(t, fs.FileMode(0o640), fi.Mode().Perm())

	sys, ok := fi.Sys().(*nfsfile.FileInfo)
	require.True(t, ok)
	assert.NotZero(t, sys.Fileid)
	assert.Equal(t, uint32(os.Getuid()), sys.UID)

	entries, err := bfs.ReadDir("a")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"b", "link", "one.txt"}, names)
	assert.True(t, entries[0].IsDir())
	assert.Equal(t, fs.ModeSymlink, entries[1].Mode().Type())

	target, err := bfs.Readlink("a/link")
	require.NoError(t, err)
	assert.Equal(t, "one.txt", target)

	_, err = bfs.Stat("a/missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRemoveAndRename(t *testing.T) {
	t.Parallel()
	bfs, root := newTestFS(t)

	require.NoError(t, bfs.MkdirAll("d", 0o755))
	require.NoError(t, util.WriteFile(bfs, "f", []byte("x"), 0o644))

	require.NoError(t, bfs.Rename("f", "d/g"))
	_, err := os.Stat(filepath.Join(root, "d", "g"))
	require.NoError(t, err)

	assert.Error(t, bfs.Remove("d"), "non-empty directory")
	require.NoError(t, bfs.Remove("d/g"))
	require.NoError(t, bfs.Remove("d"))
	assert.ErrorIs(t, bfs.Remove("d"), fs.ErrNotExist)
}

func TestNamesStayUnderRoot(t *testing.T) {
	t.Parallel()
	bfs, root := newTestFS(t)

	require.NoError(t, util.WriteFile(bfs, "../../escape.txt", []byte("x"), 0o644))
	_, err := os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)
}

func TestChroot(t *testing.T) {
	t.Parallel()
	bfs, root := newTestFS(t)
	require.NoError(t, bfs.MkdirAll("sub", 0o755))

	sub, err := bfs.Chroot("sub")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub"), sub.Root())
	require.NoError(t, util.WriteFile(sub, "in.txt", []byte("x"), 0o644))
	_, err = os.Stat(filepath.Join(root, "sub", "in.txt"))
	assert.NoError(t, err)

	_, err = bfs.Chroot("nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestTempFile(t *testing.T) {
	t.Parallel()
	bfs, _ := newTestFS(t)

	a, err := bfs.TempFile("", "tmp-")
	require.NoError(t, err)
	b, err := bfs.TempFile("", "tmp-")
	require.NoError(t, err)
	assert.NotEqual(t, a.Name(), b.Name())
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())

	fi, err := bfs.Stat(a.Name())
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), fi.Mode().Perm())
}

func TestChangeInterface(t *testing.T) {
	t.Parallel()
	bfs, _ := newTestFS(t)
	require.NoError(t, util.WriteFile(bfs, "c.txt", []byte("x"), 0o644))

	require.NoError(t, bfs.Chmod("c.txt", 0o600))
	mtime := time.Unix(1_600_000_000, 0)
	require.NoError(t, bfs.Chtimes("c.txt", mtime, mtime))

	fi, err := bfs.Stat("c.txt")
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), fi.Mode().Perm())
	assert.True(t, fi.ModTime().Equal(mtime))

	assert.ErrorIs(t, bfs.Chtimes("absent", mtime, mtime), fs.ErrNotExist)
	require.NoError(t, bfs.Lchown("c.txt", -1, -1))
}

func TestFileLock(t *testing.T) {
	t.Parallel()
	bfs, _ := newTestFS(t)

	f, err := bfs.Create("locked")
	require.NoError(t, err)
	require.NoError(t, f.Lock())
	require.NoError(t, f.Unlock())
	require.NoError(t, f.Close())
}
