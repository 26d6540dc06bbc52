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
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"asyncfs/internal/billyfs"
	"asyncfs/internal/config"
	"asyncfs/internal/file"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [DIR]",
	Short: "Export a directory over NFS through the configured driver",
	Long: `Export a directory over NFSv3. Every NFS request is served through the
configured driver, so its stat cache and backend apply.

Only one server runs per config directory.

Examples:
  asyncfs serve ./data --addr 127.0.0.1:12049
  mount -t nfs -o port=12049,mountport=12049,nfsvers=3,tcp,nolock 127.0.0.1:/ /mnt/data`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:12049", "listen address")
	rootCmd.AddCommand(serveCmd)
}

// LockPath returns the lock file held by a running server.
func LockPath() string {
	return filepath.Join(config.ConfigDir(), "serve.lock")
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if !file.IsDir(cmd.Context(), root) {
		return fmt.Errorf("not a directory: %s", root)
	}

	if err := os.MkdirAll(config.ConfigDir(), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	lock := flock.New(LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another asyncfs server is already running")
	}
	defer lock.Unlock()

	srv := billyfs.NewServer(billyfs.New(file.Default(), root))
	addr, err := srv.Listen(serveAddr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s (backend: %s)\n", root, addr, file.Default().Backend())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case sig := <-sigCh:
		fmt.Fprintf(cmd.ErrOrStderr(), "Received signal %v, shutting down...\n", sig)
	case <-cmd.Context().Done():
	case err := <-errCh:
		return err
	}
	srv.Shutdown()
	return <-errCh
}
