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

package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	// Libraries stay quiet until SetupLogging is called.
	logrus.SetOutput(io.Discard)
}

// SetupLogging routes logrus output to w at the given level. An empty level
// or "off"/"none" discards output. Unknown levels fall back to debug.
func SetupLogging(level string, w io.Writer) {
	level = strings.ToLower(level)
	if level == "" || level == "off" || level == "none" {
		logrus.SetOutput(io.Discard)
		return
	}
	if w == nil {
		w = os.Stderr
	}
	logrus.SetOutput(w)

	switch level {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	default:
		logrus.SetLevel(logrus.DebugLevel)
	}
}
