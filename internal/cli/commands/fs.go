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

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"asyncfs/internal/common"
	"asyncfs/internal/file"
)

var (
	statLstat   bool
	lsLong      bool
	putAppend   bool
	mkdirParent bool
	mkdirMode   string
	lnSymbolic  bool
)

var statCmd = &cobra.Command{
	Use:   "stat PATH",
	Short: "Show metadata for a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var (
			st  *common.Stat
			err error
		)
		if statLstat {
			st, err = file.Lstat(ctx, args[0])
		} else {
			st, err = file.Stat(ctx, args[0])
		}
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("%s: %w", args[0], os.ErrNotExist)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', 0)
		fmt.Fprintf(w, "Path:\t%s\n", args[0])
		fmt.Fprintf(w, "Type:\t%s\n", typeName(st))
		fmt.Fprintf(w, "Size:\t%d\n", st.Size)
		fmt.Fprintf(w, "Mode:\t%s (%04o)\n", st.FileMode(), st.Perm())
		fmt.Fprintf(w, "Inode:\t%d\tLinks: %d\n", st.Ino, st.Nlink)
		fmt.Fprintf(w, "Owner:\t%d:%d\n", st.UID, st.GID)
		fmt.Fprintf(w, "Access:\t%s\n", st.Atime.Format(time.RFC3339))
		fmt.Fprintf(w, "Modify:\t%s\n", st.Mtime.Format(time.RFC3339))
		fmt.Fprintf(w, "Change:\t%s\n", st.Ctime.Format(time.RFC3339))
		return w.Flush()
	},
}

func typeName(st *common.Stat) string {
	switch {
	case st.IsFile():
		return "file"
	case st.IsDir():
		return "directory"
	case st.IsSymlink():
		return "symlink"
	}
	return "other"
}

var catCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "Print a file by streaming it through a handle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		return file.WithHandle(ctx, file.Default(), args[0], "r", func(h file.Handle) error {
			for {
				data, err := h.Read(ctx, file.DefaultReadLength)
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if _, err := out.Write(data); err != nil {
					return err
				}
			}
		})
	},
}

var putCmd = &cobra.Command{
	Use:   "put PATH",
	Short: "Write standard input to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if !putAppend {
			return file.Put(ctx, args[0], data)
		}
		h, err := file.Open(ctx, args[0], "a")
		if err != nil {
			return err
		}
		if _, err := h.Write(ctx, data); err != nil {
			_ = h.Close(ctx)
			return err
		}
		return h.Close(ctx)
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [DIR]",
	Short: "List a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		names, err := file.Scandir(ctx, dir)
		if err != nil {
			return err
		}
		if !lsLong {
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', tabwriter.AlignRight)
		for _, name := range names {
			st, err := file.Lstat(ctx, filepath.Join(dir, name))
			if err != nil {
				return err
			}
			if st == nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t %s\n", st.FileMode(), st.Size, st.Mtime.Format("Jan _2 15:04"), name)
		}
		return w.Flush()
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm PATH...",
	Short: "Remove files or empty directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		for _, path := range args {
			st, err := file.Lstat(ctx, path)
			if err != nil {
				return err
			}
			if st.IsDir() {
				err = file.Rmdir(ctx, path)
			} else {
				err = file.Unlink(ctx, path)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir DIR...",
	Short: "Create directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		perm, err := parsePerm(mkdirMode)
		if err != nil {
			return err
		}
		for _, dir := range args {
			if err := file.Mkdir(cmd.Context(), dir, perm, mkdirParent); err != nil {
				return err
			}
		}
		return nil
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch PATH...",
	Short: "Create files or update their times",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			if err := file.Touch(cmd.Context(), path, time.Time{}, time.Time{}); err != nil {
				return err
			}
		}
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv FROM TO",
	Short: "Rename a path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return file.Rename(cmd.Context(), args[0], args[1])
	},
}

var lnCmd = &cobra.Command{
	Use:   "ln TARGET LINK",
	Short: "Create a hard or symbolic link",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if lnSymbolic {
			return file.Symlink(cmd.Context(), args[0], args[1])
		}
		return file.Link(cmd.Context(), args[0], args[1])
	},
}

var readlinkCmd = &cobra.Command{
	Use:   "readlink LINK",
	Short: "Print a symbolic link's target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := file.Readlink(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	},
}

var chmodCmd = &cobra.Command{
	Use:   "chmod MODE PATH...",
	Short: "Change permission bits",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		perm, err := parsePerm(args[0])
		if err != nil {
			return err
		}
		for _, path := range args[1:] {
			if err := file.Chmod(cmd.Context(), path, perm); err != nil {
				return err
			}
		}
		return nil
	},
}

// parsePerm parses an octal permission string such as "755".
func parsePerm(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("invalid mode %q: %w", s, common.ErrInvalidArgument)
	}
	return os.FileMode(v), nil
}

func init() {
	statCmd.Flags().BoolVarP(&statLstat, "lstat", "L", false, "do not follow a final symbolic link")
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "show mode, size and mtime")
	putCmd.Flags().BoolVarP(&putAppend, "append", "a", false, "append instead of replacing")
	mkdirCmd.Flags().BoolVarP(&mkdirParent, "parents", "p", false, "create missing parents")
	mkdirCmd.Flags().StringVarP(&mkdirMode, "mode", "m", "755", "permission bits (octal)")
	lnCmd.Flags().BoolVarP(&lnSymbolic, "symbolic", "s", false, "create a symbolic link")

	rootCmd.AddCommand(statCmd, catCmd, putCmd, lsCmd, rmCmd, mkdirCmd, touchCmd, mvCmd, lnCmd, readlinkCmd, chmodCmd)
}
