package osfs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncfs/internal/common"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		want     string
		flags    int
		readable bool
		writable bool
		append   bool
	}{
		{"r", "r", os.O_RDONLY, true, false, false},
		{"rb", "r", os.O_RDONLY, true, false, false},
		{"r+", "r+", os.O_RDWR, true, true, false},
		{"w", "w", os.O_WRONLY | os.O_CREATE | os.O_TRUNC, false, true, false},
		{"w+b", "w+", os.O_RDWR | os.O_CREATE | os.O_TRUNC, true, true, false},
		{"a", "a", os.O_WRONLY | os.O_CREATE | os.O_APPEND, false, true, true},
		{"a+", "a+", os.O_RDWR | os.O_CREATE | os.O_APPEND, true, true, true},
		{"xe", "x", os.O_WRONLY | os.O_CREATE | os.O_EXCL, false, true, false},
		{"x+", "x+", os.O_RDWR | os.O_CREATE | os.O_EXCL, true, true, false},
		{"c", "c", os.O_WRONLY | os.O_CREATE, false, true, false},
		{"ct+", "c+", os.O_RDWR | os.O_CREATE, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			m, err := ParseMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Name)
			assert.Equal(t, tt.want, m.String())
			assert.Equal(t, tt.flags, m.Flags)
			assert.Equal(t, tt.readable, m.Readable())
			assert.Equal(t, tt.writable, m.Writable())
			assert.Equal(t, tt.append, m.Append())
		})
	}
}

func TestParseMode_Invalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "z", "rw", "r++", "a-", "++"} {
		_, err := ParseMode(input)
		assert.ErrorIs(t, err, common.ErrInvalidArgument, "mode %q", input)
	}

	assert.Panics(t, func() { MustParseMode("q") })
}
