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

package common

import (
	"path/filepath"
	"strings"
)

// CleanPath returns the lexical canonical form of a path, used as the
// metadata cache key so "a/./b" and "a/b" share one entry.
func CleanPath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// ParentDir returns the directory containing path, or "" when path has no
// parent (empty, "/" or ".").
func ParentDir(path string) string {
	path = CleanPath(path)
	if path == "" || path == "/" || path == "." {
		return ""
	}
	dir := filepath.Dir(path)
	if dir == path {
		return ""
	}
	return dir
}

// NormalizeName cleans a slash-separated name relative to some root,
// removing leading/trailing slashes. ".." elements cannot climb above the root.
func NormalizeName(name string) string {
	name = filepath.Clean("/" + name)
	name = strings.TrimPrefix(name, "/")
	if name == "." {
		return ""
	}
	return name
}

// ResolveUnder joins a relative name onto root without letting it escape.
func ResolveUnder(root, name string) string {
	name = NormalizeName(name)
	if name == "" {
		return filepath.Clean(root)
	}
	return filepath.Join(root, name)
}
