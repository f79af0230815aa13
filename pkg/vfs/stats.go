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

import "time"

// Stats reports the identity and attributes of an inode at a moment in
// time, in the shape callers of stat expect.
type Stats struct {
	Dev         int64
	Ino         int64
	Mode        uint32
	Nlink       int
	Uid         int
	Gid         int
	Rdev        int64
	Size        int64
	Blksize     int64
	Blocks      int64
	AtimeMs     int64
	MtimeMs     int64
	CtimeMs     int64
	BirthtimeMs int64
}

func (s *Stats) Atime() time.Time     { return time.UnixMilli(s.AtimeMs) }
func (s *Stats) Mtime() time.Time     { return time.UnixMilli(s.MtimeMs) }
func (s *Stats) Ctime() time.Time     { return time.UnixMilli(s.CtimeMs) }
func (s *Stats) Birthtime() time.Time { return time.UnixMilli(s.BirthtimeMs) }

func (s *Stats) IsFile() bool            { return isFileType(s.Mode, S_IFREG) }
func (s *Stats) IsDirectory() bool       { return isFileType(s.Mode, S_IFDIR) }
func (s *Stats) IsSymbolicLink() bool    { return isFileType(s.Mode, S_IFLNK) }
func (s *Stats) IsBlockDevice() bool     { return isFileType(s.Mode, S_IFBLK) }
func (s *Stats) IsCharacterDevice() bool { return isFileType(s.Mode, S_IFCHR) }
func (s *Stats) IsFIFO() bool            { return isFileType(s.Mode, S_IFIFO) }
func (s *Stats) IsSocket() bool          { return isFileType(s.Mode, S_IFSOCK) }

// statsFor snapshots an inode into a Stats value.
func (fs *FS) statsFor(node *inode) *Stats {
	var size int64
	if node.isFile() {
		size = fs.fileSize(node)
	} else if node.isSymlink() {
		size = int64(len(node.symlink))
	}
	return &Stats{
		Dev:         node.dev,
		Ino:         node.ino,
		Mode:        node.mode,
		Nlink:       node.nlink,
		Size:        size,
		Blksize:     4096,
		AtimeMs:     node.atimeMs,
		MtimeMs:     node.mtimeMs,
		CtimeMs:     node.ctimeMs,
		BirthtimeMs: node.birthtimeMs,
	}
}
