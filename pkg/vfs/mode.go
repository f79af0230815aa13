// Copyright 2025 Chainguard, Inc.
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

package vfs

// File type constants (upper bits of mode).
const (
	S_IFMT   uint32 = 0o170000 // file type mask
	S_IFSOCK uint32 = 0o140000 // socket
	S_IFLNK  uint32 = 0o120000 // symbolic link
	S_IFREG  uint32 = 0o100000 // regular file
	S_IFBLK  uint32 = 0o060000 // block device
	S_IFDIR  uint32 = 0o040000 // directory
	S_IFCHR  uint32 = 0o020000 // character device
	S_IFIFO  uint32 = 0o010000 // FIFO
)

// Open flags. The values match Linux on amd64, except that O_SYNC is the
// single 0o10000 bit, which Linux's O_SYNC (0o4010000) includes, so numeric
// masks built from os.O_* pass through unchanged.
const (
	O_RDONLY    int = 0o0
	O_WRONLY    int = 0o1
	O_RDWR      int = 0o2
	O_ACCMODE   int = 0o3
	O_CREAT     int = 0o100
	O_EXCL      int = 0o200
	O_TRUNC     int = 0o1000
	O_APPEND    int = 0o2000
	O_SYNC      int = 0o10000
	O_DIRECTORY int = 0o200000
	O_NOFOLLOW  int = 0o400000
)

// openFlagStrings maps the mode strings accepted by Open to flag masks,
// with the standard POSIX meanings.
var openFlagStrings = map[string]int{
	"r":   O_RDONLY,
	"r+":  O_RDWR,
	"rs+": O_RDWR | O_SYNC,
	"w":   O_WRONLY | O_CREAT | O_TRUNC,
	"wx":  O_WRONLY | O_CREAT | O_TRUNC | O_EXCL,
	"w+":  O_RDWR | O_CREAT | O_TRUNC,
	"wx+": O_RDWR | O_CREAT | O_TRUNC | O_EXCL,
	"a":   O_WRONLY | O_CREAT | O_APPEND,
	"ax":  O_WRONLY | O_CREAT | O_APPEND | O_EXCL,
	"a+":  O_RDWR | O_CREAT | O_APPEND,
	"ax+": O_RDWR | O_CREAT | O_APPEND | O_EXCL,
}

// ParseOpenFlags translates a mode string such as "r+" or "wx" into a flag
// mask. Unknown strings fail with EINVAL.
func ParseOpenFlags(s string) (int, error) {
	flags, ok := openFlagStrings[s]
	if !ok {
		return 0, errorf(EINVAL, "open", s)
	}
	return flags, nil
}

func isReadable(flags int) bool {
	return flags&O_ACCMODE != O_WRONLY
}

func isWritable(flags int) bool {
	return flags&O_ACCMODE != O_RDONLY
}

func isFileType(mode uint32, typ uint32) bool {
	return mode&S_IFMT == typ
}
