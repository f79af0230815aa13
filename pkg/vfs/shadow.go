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

// getShadow returns this file system's mirror of an inode belonging to the
// frozen parent. Two lookups of the same parent inode always return the same
// shadow object; the memo table is keyed by ino.
func (fs *FS) getShadow(root *inode) *inode {
	if shadow, ok := fs.shadows[root.ino]; ok {
		return shadow
	}
	shadow := &inode{
		dev:           root.dev,
		ino:           root.ino,
		mode:          root.mode,
		atimeMs:       root.atimeMs,
		mtimeMs:       root.mtimeMs,
		ctimeMs:       root.ctimeMs,
		birthtimeMs:   root.birthtimeMs,
		nlink:         root.nlink,
		shadowRoot:    root,
		incomingLinks: map[*inode]map[string]struct{}{},
		paths:         root.paths,
		meta:          root.meta,
	}
	// insert before translating links so cyclic reverse references terminate
	fs.shadows[root.ino] = shadow
	if root.isSymlink() {
		shadow.symlink = root.symlink
	}
	for parent, names := range root.incomingLinks {
		copied := make(map[string]struct{}, len(names))
		for name := range names {
			copied[name] = struct{}{}
		}
		if parent == nil {
			shadow.incomingLinks[nil] = copied
			continue
		}
		shadow.incomingLinks[fs.getShadow(parent)] = copied
	}
	return shadow
}
