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
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"asyncfs/internal/config"
	"asyncfs/internal/file"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagBackend  string
	flagLogLevel string
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, buildDate, date, commit)
	}
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}

var rootCmd = &cobra.Command{
	Use:   "asyncfs",
	Short: "Asynchronous filesystem access with pluggable backends",
	Long: `Asynchronous filesystem access with pluggable backends.

Every command runs through the configured driver: the event-loop reactor,
a pool of workers, or plain blocking syscalls. Settings are read from
~/.asyncfs/settings.yaml (or $ASYNCFS_CONFIG_DIR).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipDriverSetup(cmd) {
			return nil
		}
		return setupDriver(cmd)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("asyncfs version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "driver backend: auto, reactor, parallel or blocking")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: trace, debug, info, warn or off")
}

// skipDriverSetup reports whether cmd runs without a driver.
func skipDriverSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", workerCmd.Name(), initCmd.Name():
		return true
	}
	return false
}

// setupDriver loads settings, applies flag overrides and installs the
// resulting driver as the process default.
func setupDriver(cmd *cobra.Command) error {
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if flagBackend != "" {
		settings.Backend = strings.ToLower(flagBackend)
		if err := settings.Validate(); err != nil {
			return err
		}
	}
	if flagLogLevel != "" {
		settings.LogLevel = flagLogLevel
	}
	config.SetupLogging(settings.LogLevel, cmd.ErrOrStderr())

	d, err := file.NewFromSettings(settings)
	if err != nil {
		return err
	}
	prev, err := file.SetDefault(d)
	if err != nil {
		_ = d.Close(context.Background())
		return err
	}
	if prev != nil {
		_ = prev.Close(context.Background())
	}
	return nil
}

// closeDriver releases the default driver installed by setupDriver.
func closeDriver() {
	prev, _ := file.SetDefault(nil)
	if prev != nil {
		_ = prev.Close(context.Background())
	}
}

// run executes the command line args with the given streams.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	defer closeDriver()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

// Execute runs the root command
func Execute() error {
	defer closeDriver()
	return rootCmd.Execute()
}
