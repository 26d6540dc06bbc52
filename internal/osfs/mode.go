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

package osfs

import (
	"fmt"
	"os"
	"strings"

	"asyncfs/internal/common"
)

// Mode is a validated, normalized open mode.
type Mode struct {
	// Name is the normalized mode string with b/t/e modifiers stripped.
	Name  string
	Flags int
}

// modeFlags maps every accepted mode onto open(2) flags.
var modeFlags = map[string]int{
	"r":  os.O_RDONLY,
	"r+": os.O_RDWR,
	"w":  os.O_WRONLY | os.O_CREATE | os.O_TRUNC,
	"w+": os.O_RDWR | os.O_CREATE | os.O_TRUNC,
	"a":  os.O_WRONLY | os.O_CREATE | os.O_APPEND,
	"a+": os.O_RDWR | os.O_CREATE | os.O_APPEND,
	"x":  os.O_WRONLY | os.O_CREATE | os.O_EXCL,
	"x+": os.O_RDWR | os.O_CREATE | os.O_EXCL,
	"c":  os.O_WRONLY | os.O_CREATE,
	"c+": os.O_RDWR | os.O_CREATE,
}

// ParseMode validates an fopen-style mode string. Text, binary and
// close-on-exec modifiers are stripped first. Anything outside
// {r, r+, w, w+, a, a+, x, x+, c, c+} fails with common.ErrInvalidArgument.
func ParseMode(mode string) (Mode, error) {
	name := strings.NewReplacer("b", "", "t", "", "e", "").Replace(mode)
	flags, ok := modeFlags[name]
	if !ok {
		return Mode{}, fmt.Errorf("%w: invalid file mode %q", common.ErrInvalidArgument, mode)
	}
	return Mode{Name: name, Flags: flags}, nil
}

// MustParseMode is ParseMode for modes known to be valid.
func MustParseMode(mode string) Mode {
	m, err := ParseMode(mode)
	if err != nil {
		panic(err)
	}
	return m
}

// Append reports whether writes go to the end of the file; the cursor
// of a new handle starts at the current size.
func (m Mode) Append() bool {
	return strings.HasPrefix(m.Name, "a")
}

// Readable reports whether the mode permits reads.
func (m Mode) Readable() bool {
	return m.Flags&(os.O_WRONLY|os.O_RDWR) != os.O_WRONLY
}

// Writable reports whether the mode permits writes.
func (m Mode) Writable() bool {
	return m.Flags&(os.O_WRONLY|os.O_RDWR) != 0
}

func (m Mode) String() string {
	return m.Name
}
