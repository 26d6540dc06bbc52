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
	"os"

	"github.com/spf13/cobra"

	"asyncfs/internal/config"
	"asyncfs/internal/worker"
)

// workerCmd is started by the parallel backend in process mode. It serves
// tasks on stdin/stdout until stdin closes.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Serve file tasks over stdin/stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; logs go to stderr only.
		config.SetupLogging(os.Getenv(config.EnvLogLevel), os.Stderr)
		return worker.Serve(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
