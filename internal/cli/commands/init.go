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

	"github.com/spf13/cobra"

	"asyncfs/internal/config"
)

var (
	initBackend  string
	initCacheTTL string
	initWorkers  int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the settings file",
	Long: `Create the asyncfs config directory and its settings.yaml.

An existing settings file is kept. Flags update the named settings.

Examples:
  asyncfs init
  asyncfs init --default-backend parallel --workers 4
  asyncfs init --cache-ttl 0`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initBackend, "default-backend", "", "backend to store in settings")
	initCmd.Flags().StringVar(&initCacheTTL, "cache-ttl", "", "stat cache TTL to store in settings (\"0\" disables)")
	initCmd.Flags().IntVar(&initWorkers, "workers", -1, "parallel backend pool size (0 = default)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if err := config.InitConfigDir(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Settings: %s\n", config.SettingsPath())

	changed := cmd.Flags().Changed("default-backend") ||
		cmd.Flags().Changed("cache-ttl") ||
		cmd.Flags().Changed("workers")
	if !changed {
		return nil
	}

	settings, err := config.Load()
	if err != nil {
		return err
	}
	if initBackend != "" {
		settings.Backend = initBackend
	}
	if initCacheTTL != "" {
		settings.CacheTTL = initCacheTTL
	}
	if initWorkers >= 0 {
		settings.Workers = initWorkers
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := config.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Fprintf(out, "  updated settings\n")
	return nil
}
