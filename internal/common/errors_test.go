package common

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorDefinitions(t *testing.T) {
	t.Parallel()

	errs := []error{
		ErrInvalidArgument,
		ErrClosed,
		ErrPendingOperation,
		ErrWorkerRecursion,
	}

	t.Run("all errors are non-nil", func(t *testing.T) {
		t.Parallel()
		for i, err := range errs {
			require.NotNil(t, err, "error at index %d should not be nil", i)
		}
	})

	t.Run("all error messages are unique", func(t *testing.T) {
		t.Parallel()
		seen := make(map[string]bool)
		for _, err := range errs {
			msg := err.Error()
			assert.False(t, seen[msg], "duplicate error message: %s", msg)
			seen[msg] = true
		}
	})
}

func TestFilesystemError(t *testing.T) {
	t.Parallel()

	t.Run("message includes op and path", func(t *testing.T) {
		t.Parallel()
		err := NewFilesystemError("size", "/tmp/x", "specified path does not exist", fs.ErrNotExist)
		assert.Equal(t, "size /tmp/x: specified path does not exist: file does not exist", err.Error())
	})

	t.Run("unwraps to cause", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("outer: %w", NewFilesystemError("stat", "/tmp/x", "", fs.ErrPermission))
		assert.ErrorIs(t, err, fs.ErrPermission)
		assert.True(t, IsFilesystemError(err))
		assert.False(t, IsUndelivered(err))
	})

	t.Run("delivery error is distinguishable", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("worker exited")
		err := fmt.Errorf("outer: %w", NewDeliveryError("unlink", "/tmp/x", cause))
		assert.True(t, IsUndelivered(err))
		assert.ErrorIs(t, err, cause)

		var fsErr *FilesystemError
		require.ErrorAs(t, err, &fsErr)
		assert.Equal(t, "unlink", fsErr.Op)
	})

	t.Run("plain errors are neither", func(t *testing.T) {
		t.Parallel()
		assert.False(t, IsUndelivered(ErrClosed))
		assert.False(t, IsFilesystemError(ErrClosed))
	})

	t.Run("default message without path", func(t *testing.T) {
		t.Parallel()
		err := &FilesystemError{Op: "read"}
		assert.Equal(t, "read: the file operation failed", err.Error())
	})
}

func TestStatTypeBits(t *testing.T) {
	t.Parallel()

	file := &Stat{Mode: 0o100644, Size: 5}
	dir := &Stat{Mode: 0o040755}
	link := &Stat{Mode: 0o120777}

	assert.True(t, file.IsFile())
	assert.False(t, file.IsDir())
	assert.True(t, dir.IsDir())
	assert.False(t, dir.IsFile())
	assert.True(t, link.IsSymlink())
	assert.False(t, link.IsFile(), "symlink type bits must not read as a regular file")

	var missing *Stat
	assert.False(t, missing.IsFile())
	assert.False(t, missing.IsDir())

	assert.Equal(t, fs.FileMode(0o644), file.FileMode())
	assert.Equal(t, fs.ModeDir|0o755, dir.FileMode())
	assert.Equal(t, fs.ModeSymlink|0o777, link.FileMode())
}
