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

import (
	"fmt"
	"strings"
)

// Tree renders the whole tree as indented text, one entry per line, in
// link-map order. The rendering is deterministic and is what tests snapshot
// against.
func (fs *FS) Tree() string {
	var b strings.Builder
	for _, entry := range fs.roots.entries() {
		fmt.Fprintf(&b, "%s\n", entry.name)
		fs.writeTree(&b, entry.node, 1)
	}
	return b.String()
}

func (fs *FS) writeTree(b *strings.Builder, dir *inode, depth int) {
	indent := strings.Repeat("  ", depth)
	fs.getLinks(dir).each(func(name string, node *inode) bool {
		switch {
		case node.isDir():
			fmt.Fprintf(b, "%s%s/\n", indent, name)
			fs.writeTree(b, node, depth+1)
		case node.isSymlink():
			fmt.Fprintf(b, "%s%s -> %s\n", indent, name, node.symlink)
		default:
			fmt.Fprintf(b, "%s%s (%d bytes)\n", indent, name, fs.fileSize(node))
		}
		return true
	})
}

func (fs *FS) String() string {
	return fs.Tree()
}
