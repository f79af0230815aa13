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
	"sort"
	"sync/atomic"

	"golang.org/x/exp/maps"

	"chainguard.dev/harnessfs/pkg/vpath"
)

// Process-wide monotonic counters. Atomic so that distinct file system
// instances in one process observe globally unique dev/ino/fd values.
var (
	devCount atomic.Int64
	inoCount atomic.Int64
	fdCount  atomic.Int64
)

const defaultUmask uint32 = 0o022

// inode is an identity-bearing file system object, independent of any name.
// One struct covers all types; the type bits of mode select which of the
// type-specific fields are meaningful.
type inode struct {
	dev         int64
	ino         int64
	mode        uint32
	atimeMs     int64
	mtimeMs     int64
	ctimeMs     int64
	birthtimeMs int64
	nlink       int

	// shadowRoot points at the corresponding inode in the frozen parent
	// file system, when this inode mirrors one.
	shadowRoot *inode

	// incomingLinks records every directory link pointing at this inode,
	// keyed by parent inode. The nil key holds root entries. nlink always
	// equals the sum of the name-set sizes.
	incomingLinks map[*inode]map[string]struct{}

	// paths caches the absolute paths reaching this inode; invalidated on
	// any mutation that re-parents it.
	paths []string

	meta map[string]any

	// regular file
	buf      []byte
	size     int64
	haveSize bool

	// directory
	links *linkMap

	// mount pin: while set, contents are materialized lazily through the
	// resolver on first access. Shared by file inodes (lazy content) and
	// directory inodes (lazy children).
	source   string
	resolver Resolver

	// symlink target, stored verbatim
	symlink string
}

func (n *inode) isFile() bool    { return isFileType(n.mode, S_IFREG) }
func (n *inode) isDir() bool     { return isFileType(n.mode, S_IFDIR) }
func (n *inode) isSymlink() bool { return isFileType(n.mode, S_IFLNK) }

// mknod builds a fresh inode on the given device. The permission bits are
// masked by the umask; the type bits come from typ alone.
func (fs *FS) mknod(dev int64, typ uint32, mode uint32) *inode {
	now := fs.now()
	return &inode{
		dev:           dev,
		ino:           inoCount.Add(1),
		mode:          (mode & ^S_IFMT & ^defaultUmask & 0o7777) | (typ & S_IFMT),
		atimeMs:       now,
		mtimeMs:       now,
		ctimeMs:       now,
		birthtimeMs:   now,
		incomingLinks: map[*inode]map[string]struct{}{},
	}
}

// addLink inserts name→node into linkmap and updates the reverse-link
// bookkeeping. parent is nil for root entries.
func (fs *FS) addLink(parent *inode, linkmap *linkMap, name string, node *inode) {
	linkmap.set(name, node)
	node.nlink++
	names := node.incomingLinks[parent]
	if names == nil {
		names = map[string]struct{}{}
		node.incomingLinks[parent] = names
	}
	names[name] = struct{}{}
	fs.invalidatePaths(node)
}

// removeLink is the inverse of addLink. An emptied name set is removed
// outright so nlink accounting stays equal to the sum of set sizes.
func (fs *FS) removeLink(parent *inode, linkmap *linkMap, name string, node *inode) {
	linkmap.delete(name)
	node.nlink--
	if names := node.incomingLinks[parent]; names != nil {
		delete(names, name)
		if len(names) == 0 {
			delete(node.incomingLinks, parent)
		}
	}
	fs.invalidatePaths(node)
}

// replaceLink moves node from one directory entry to another. Within a
// single parent the map and name set are mutated in place, leaving nlink
// untouched.
func (fs *FS) replaceLink(oldParent *inode, oldMap *linkMap, oldName string, newParent *inode, newMap *linkMap, newName string, node *inode) {
	if oldParent != newParent {
		fs.removeLink(oldParent, oldMap, oldName, node)
		fs.addLink(newParent, newMap, newName, node)
		return
	}
	oldMap.delete(oldName)
	newMap.set(newName, node)
	if names := node.incomingLinks[oldParent]; names != nil {
		delete(names, oldName)
		names[newName] = struct{}{}
	}
	fs.invalidatePaths(node)
}

// invalidatePaths drops the cached paths of node and, for directories, of
// every materialized descendant.
func (fs *FS) invalidatePaths(node *inode) {
	node.paths = nil
	if node.isDir() && node.links != nil {
		node.links.each(func(_ string, child *inode) bool {
			if child.paths != nil || (child.isDir() && child.links != nil) {
				fs.invalidatePaths(child)
			}
			return true
		})
	}
}

// nodePaths computes (and caches) every absolute path reaching node.
func (fs *FS) nodePaths(node *inode) []string {
	if node.paths != nil {
		return node.paths
	}
	var paths []string
	for parent, names := range node.incomingLinks {
		sorted := maps.Keys(names)
		sort.Slice(sorted, func(i, j int) bool {
			return vpath.Compare(sorted[i], sorted[j], fs.ignoreCase) < 0
		})
		if parent == nil {
			paths = append(paths, sorted...)
			continue
		}
		for _, parentPath := range fs.nodePaths(parent) {
			for _, name := range sorted {
				paths = append(paths, vpath.Combine(parentPath, name))
			}
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		return vpath.Compare(paths[i], paths[j], fs.ignoreCase) < 0
	})
	node.paths = paths
	return paths
}

// fileSize returns the byte size of a regular file, deferring to the shadow
// root or the cached size when the buffer has not been realized.
func (fs *FS) fileSize(node *inode) int64 {
	if node.buf != nil {
		return int64(len(node.buf))
	}
	if node.haveSize {
		return node.size
	}
	if node.shadowRoot != nil && fs.shadowRoot != nil {
		return fs.shadowRoot.fileSize(node.shadowRoot)
	}
	buf, err := fs.fileBuffer(node)
	if err != nil {
		return 0
	}
	return int64(len(buf))
}

// fileBuffer returns the contents of a regular file, materializing external
// or shadowed contents on first access. Resolver errors propagate verbatim;
// the pin stays in place so a later read retries. The returned slice is
// owned by the inode; writers must copy before mutating.
func (fs *FS) fileBuffer(node *inode) ([]byte, error) {
	if node.buf != nil {
		return node.buf, nil
	}
	if node.source != "" && node.resolver != nil {
		data, err := node.resolver.ReadFile(node.source)
		if err != nil {
			return nil, err
		}
		node.source, node.resolver = "", nil
		node.buf = data
		node.haveSize = false
		return node.buf, nil
	}
	if node.shadowRoot != nil && fs.shadowRoot != nil {
		return fs.shadowRoot.fileBuffer(node.shadowRoot)
	}
	node.buf = []byte{}
	return node.buf, nil
}

// setFileBuffer installs buf as the inode's contents, taking ownership away
// from any shadow or external source.
func (fs *FS) setFileBuffer(node *inode, buf []byte) {
	node.buf = buf
	node.source, node.resolver = "", nil
	node.haveSize = false
}
