package commands

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncfs/internal/config"
)

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI on the blocking backend with an isolated config dir.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	args = append([]string{"--backend", "blocking"}, args...)
	err := run(args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvConfigDir, t.TempDir())
	t.Setenv(config.EnvBackend, "")
	t.Setenv(config.EnvLogLevel, "")
	return t.TempDir()
}

func TestPutCatAppend(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "f.txt")

	_, err := execute(t, "foo", "put", path)
	require.NoError(t, err)
	_, err = execute(t, "bar", "put", "--append", path)
	require.NoError(t, err)

	out, err := execute(t, "", "cat", path)
	require.NoError(t, err)
	assert.Equal(t, "foobar", out)

	_, err = execute(t, "", "cat", filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestStatAndLs(t *testing.T) {
	dir := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("12345"), 0o644))

	_, err := execute(t, "", "mkdir", "-p", filepath.Join(dir, "a", "nested"))
	require.NoError(t, err)

	out, err := execute(t, "", "stat", filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "Type:   file")
	assert.Contains(t, out, "Size:   5")

	out, err = execute(t, "", "ls", dir)
	require.NoError(t, err)
	assert.Equal(t, "a\nb.txt\n", out)

	out, err = execute(t, "", "ls", "-l", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "b.txt")
	assert.Contains(t, out, "drwxr-xr-x")

	_, err = execute(t, "", "stat", filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLinksMoveRemove(t *testing.T) {
	dir := setup(t)
	target := filepath.Join(dir, "t")
	_, err := execute(t, "", "touch", target)
	require.NoError(t, err)

	link := filepath.Join(dir, "l")
	_, err = execute(t, "", "ln", "-s", "t", link)
	require.NoError(t, err)
	out, err := execute(t, "", "readlink", link)
	require.NoError(t, err)
	assert.Equal(t, "t\n", out)

	out, err = execute(t, "", "stat", "-L", link)
	require.NoError(t, err)
	assert.Contains(t, out, "symlink")

	moved := filepath.Join(dir, "moved")
	_, err = execute(t, "", "mv", target, moved)
	require.NoError(t, err)
	_, err = execute(t, "", "ln", moved, filepath.Join(dir, "hard"))
	require.NoError(t, err)

	_, err = execute(t, "", "chmod", "600", moved)
	require.NoError(t, err)
	fi, err := os.Stat(moved)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), fi.Mode().Perm())

	sub := filepath.Join(dir, "sub")
	_, err = execute(t, "", "mkdir", sub)
	require.NoError(t, err)
	_, err = execute(t, "", "rm", link, moved, filepath.Join(dir, "hard"), sub)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParsePerm(t *testing.T) {
	perm, err := parsePerm("750")
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o750), perm)

	for _, bad := range []string{"", "9", "7777", "rwx"} {
		_, err := parsePerm(bad)
		assert.Error(t, err, bad)
	}
}

func TestInitWritesSettings(t *testing.T) {
	setup(t)

	out, err := execute(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, config.SettingsPath())
	assert.FileExists(t, config.SettingsPath())

	_, err = execute(t, "", "init", "--default-backend", "parallel", "--cache-ttl", "0", "--workers", "2")
	require.NoError(t, err)

	settings, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendParallel, settings.Backend)
	assert.Equal(t, "0", settings.CacheTTL)
	assert.Equal(t, 2, settings.Workers)

	_, err = execute(t, "", "init", "--default-backend", "bogus")
	assert.Error(t, err)
}

func TestUnknownBackendFlag(t *testing.T) {
	setup(t)
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	err := run([]string{"--backend", "bogus", "ls", "."}, strings.NewReader(""), &out, &out)
	assert.ErrorContains(t, err, "unknown backend")
}

func TestVersionString(t *testing.T) {
	SetVersion("1.2.0", "abc", "1700000000")
	assert.True(t, strings.HasPrefix(rootCmd.Version, "1.2.0 ("), rootCmd.Version)

	SetVersion("1.3.0-dev", "abc", "1700000000")
	assert.Contains(t, rootCmd.Version, "commit: abc")
}
