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
	"chainguard.dev/harnessfs/pkg/vpath"
)

// Mount creates a directory at target whose children are materialized
// lazily from source through resolver on first access.
func (fs *FS) Mount(source, target string, resolver Resolver, mode ...uint32) error {
	perm := uint32(0o777)
	if len(mode) > 0 {
		perm = mode[0]
	}
	if resolver == nil {
		return errorf2(EINVAL, "mount", source, target)
	}
	if err := vpath.Validate(source, vpath.RelativeOrAbsolute); err != nil {
		return errorf2(EINVAL, "mount", source, target)
	}
	path, err := fs.resolvePath(target, "mount")
	if err != nil {
		return err
	}
	if err := fs.checkWritable("mount", path); err != nil {
		return err
	}
	if vpath.Dirname(path) == path {
		// a mount may itself be a root
		if _, ok := fs.roots.get(path); ok {
			return errorf2(EEXIST, "mount", source, path)
		}
		node := fs.mknod(devCount.Add(1), S_IFDIR, perm)
		node.source, node.resolver = source, resolver
		fs.addLink(nil, fs.roots, path, node)
		return nil
	}
	parent, err := fs.walkParent(path, "mount")
	if err != nil {
		return err
	}
	links := fs.getLinks(parent.node)
	if _, ok := links.get(vpath.Basename(path)); ok {
		return errorf2(EEXIST, "mount", source, path)
	}
	node := fs.mknod(parent.node.dev, S_IFDIR, perm)
	node.source, node.resolver = source, resolver
	fs.addLink(parent.node, links, vpath.Basename(path), node)
	now := fs.now()
	parent.node.mtimeMs, parent.node.ctimeMs = now, now
	return nil
}

// materializeMount populates a pinned directory from its resolver. The pin
// is cleared before any resolver call so re-entry cannot repeat the work.
// Entries that are neither files nor directories are not materialized.
func (fs *FS) materializeMount(dir *inode) {
	source, resolver := dir.source, dir.resolver
	dir.source, dir.resolver = "", nil
	dir.links = newLinkMap(fs.ignoreCase)
	names, err := resolver.ReadDir(source)
	if err != nil {
		return
	}
	for _, name := range names {
		childSource := joinSource(source, name)
		attr, err := resolver.Stat(childSource)
		if err != nil {
			continue
		}
		switch {
		case isFileType(attr.Mode, S_IFDIR):
			child := fs.mknod(dir.dev, S_IFDIR, attr.Mode)
			child.source, child.resolver = childSource, resolver
			fs.addLink(dir, dir.links, name, child)
		case isFileType(attr.Mode, S_IFREG):
			child := fs.mknod(dir.dev, S_IFREG, attr.Mode)
			child.source, child.resolver = childSource, resolver
			child.size, child.haveSize = attr.Size, true
			fs.addLink(dir, dir.links, name, child)
		}
	}
}
