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
	"errors"

	"chainguard.dev/harnessfs/pkg/vpath"
)

// Mkdir creates a directory. A path that is its own dirname names a new
// root, which is created in the root map on a fresh device.
func (fs *FS) Mkdir(path string, mode ...uint32) error {
	perm := uint32(0o777)
	if len(mode) > 0 {
		perm = mode[0]
	}
	perm &= 0o1777 // keep the sticky bit, drop setuid/setgid
	resolved, err := fs.resolvePath(path, "mkdir")
	if err != nil {
		return err
	}
	if err := fs.checkWritable("mkdir", resolved); err != nil {
		return err
	}
	if vpath.Dirname(resolved) == resolved {
		if _, ok := fs.roots.get(resolved); ok {
			return errorf(EEXIST, "mkdir", resolved)
		}
		node := fs.mknod(devCount.Add(1), S_IFDIR, perm)
		fs.addLink(nil, fs.roots, resolved, node)
		return nil
	}
	parent, err := fs.walkParent(resolved, "mkdir")
	if err != nil {
		return err
	}
	links := fs.getLinks(parent.node)
	basename := vpath.Basename(resolved)
	if _, ok := links.get(basename); ok {
		return errorf(EEXIST, "mkdir", resolved)
	}
	node := fs.mknod(parent.node.dev, S_IFDIR, perm)
	fs.addLink(parent.node, links, basename, node)
	now := fs.now()
	parent.node.mtimeMs, parent.node.ctimeMs = now, now
	return nil
}

// MkdirAll creates a directory and any missing ancestors. Existing
// directories along the way are fine; an existing non-directory is not.
func (fs *FS) MkdirAll(path string, mode ...uint32) error {
	err := fs.Mkdir(path, mode...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, EEXIST):
		stats, serr := fs.Stat(path)
		if serr == nil && !stats.IsDirectory() {
			return err
		}
		return nil
	case errors.Is(err, ENOENT):
		resolved, rerr := fs.resolvePath(path, "mkdir")
		if rerr != nil {
			return rerr
		}
		if parent := vpath.Dirname(resolved); parent != resolved {
			if perr := fs.MkdirAll(parent, mode...); perr != nil {
				return perr
			}
		}
		if err := fs.Mkdir(path, mode...); err != nil && !errors.Is(err, EEXIST) {
			return err
		}
		return nil
	default:
		return err
	}
}

// Rmdir removes an empty directory.
func (fs *FS) Rmdir(path string) error {
	resolved, err := fs.resolvePath(path, "rmdir")
	if err != nil {
		return err
	}
	if err := fs.checkWritable("rmdir", resolved); err != nil {
		return err
	}
	res, err := fs.find(resolved, "rmdir")
	if err != nil {
		return err
	}
	if res == nil {
		return errorf(ENOENT, "rmdir", resolved)
	}
	if !res.node.isDir() {
		return errorf(ENOTDIR, "rmdir", resolved)
	}
	if fs.getLinks(res.node).len() > 0 {
		return errorf(ENOTEMPTY, "rmdir", resolved)
	}
	if vpath.Dirname(res.path) == res.path {
		fs.removeLink(nil, fs.roots, res.path, res.node)
		return nil
	}
	fs.removeLink(res.parent, fs.getLinks(res.parent), res.basename, res.node)
	now := fs.now()
	res.parent.mtimeMs, res.parent.ctimeMs = now, now
	return nil
}

// Link creates a new hard link to an existing file. Directories cannot be
// hard linked.
func (fs *FS) Link(oldpath, newpath string) error {
	oldResolved, err := fs.resolvePath(oldpath, "link")
	if err != nil {
		return err
	}
	newResolved, err := fs.resolvePath(newpath, "link")
	if err != nil {
		return err
	}
	if err := fs.checkWritable("link", newResolved); err != nil {
		return err
	}
	res, err := fs.find(oldResolved, "link")
	if err != nil {
		return err
	}
	if res == nil {
		return errorf2(ENOENT, "link", oldResolved, newResolved)
	}
	if res.node.isDir() {
		return errorf2(EPERM, "link", oldResolved, newResolved)
	}
	parent, err := fs.walkParent(newResolved, "link")
	if err != nil {
		return err
	}
	links := fs.getLinks(parent.node)
	basename := vpath.Basename(newResolved)
	if _, ok := links.get(basename); ok {
		return errorf2(EEXIST, "link", oldResolved, newResolved)
	}
	fs.addLink(parent.node, links, basename, res.node)
	now := fs.now()
	res.node.ctimeMs = now
	parent.node.mtimeMs, parent.node.ctimeMs = now, now
	return nil
}

// Unlink removes a directory entry. The final component is not followed, so
// unlinking a symlink removes the link itself.
func (fs *FS) Unlink(path string) error {
	resolved, err := fs.resolvePath(path, "unlink")
	if err != nil {
		return err
	}
	if err := fs.checkWritable("unlink", resolved); err != nil {
		return err
	}
	res, err := fs.lfind(resolved, "unlink")
	if err != nil {
		return err
	}
	if res == nil {
		return errorf(ENOENT, "unlink", resolved)
	}
	if res.node.isDir() {
		return errorf(EISDIR, "unlink", resolved)
	}
	fs.removeLink(res.parent, fs.getLinks(res.parent), res.basename, res.node)
	now := fs.now()
	res.node.ctimeMs = now
	res.parent.mtimeMs, res.parent.ctimeMs = now, now
	return nil
}

// Rename moves an entry. An existing target is replaced when types agree;
// a replaced directory must be empty.
func (fs *FS) Rename(oldpath, newpath string) error {
	oldResolved, err := fs.resolvePath(oldpath, "rename")
	if err != nil {
		return err
	}
	newResolved, err := fs.resolvePath(newpath, "rename")
	if err != nil {
		return err
	}
	if err := fs.checkWritable("rename", newResolved); err != nil {
		return err
	}
	if vpath.Dirname(oldResolved) == oldResolved {
		return errorf2(EINVAL, "rename", oldResolved, newResolved)
	}
	res, err := fs.lfind(oldResolved, "rename")
	if err != nil {
		return err
	}
	if res == nil {
		return errorf2(ENOENT, "rename", oldResolved, newResolved)
	}
	parent, err := fs.walkParent(newResolved, "rename")
	if err != nil {
		return err
	}
	links := fs.getLinks(parent.node)
	basename := vpath.Basename(newResolved)
	now := fs.now()
	if existing, ok := links.get(basename); ok {
		if existing == res.node {
			return nil
		}
		switch {
		case res.node.isDir() && existing.isDir():
			if fs.getLinks(existing).len() > 0 {
				return errorf2(ENOTEMPTY, "rename", oldResolved, newResolved)
			}
		case res.node.isDir():
			return errorf2(ENOTDIR, "rename", oldResolved, newResolved)
		case existing.isDir():
			return errorf2(EISDIR, "rename", oldResolved, newResolved)
		}
		fs.removeLink(parent.node, links, basename, existing)
		existing.ctimeMs = now
	}
	oldLinks := fs.getLinks(res.parent)
	fs.replaceLink(res.parent, oldLinks, res.basename, parent.node, links, basename, res.node)
	res.parent.mtimeMs, res.parent.ctimeMs = now, now
	parent.node.mtimeMs, parent.node.ctimeMs = now, now
	res.node.ctimeMs = now
	return nil
}

// Symlink stores target verbatim at linkpath; target is interpreted at walk
// time against the directory the link lives in.
func (fs *FS) Symlink(target, linkpath string) error {
	if err := vpath.Validate(target, vpath.RelativeOrAbsolute); err != nil {
		return errorf2(EINVAL, "symlink", target, linkpath)
	}
	resolved, err := fs.resolvePath(linkpath, "symlink")
	if err != nil {
		return err
	}
	if err := fs.checkWritable("symlink", resolved); err != nil {
		return err
	}
	parent, err := fs.walkParent(resolved, "symlink")
	if err != nil {
		return err
	}
	links := fs.getLinks(parent.node)
	basename := vpath.Basename(resolved)
	if _, ok := links.get(basename); ok {
		return errorf2(EEXIST, "symlink", target, resolved)
	}
	node := fs.mknod(parent.node.dev, S_IFLNK, 0o666)
	node.symlink = target
	fs.addLink(parent.node, links, basename, node)
	now := fs.now()
	parent.node.mtimeMs, parent.node.ctimeMs = now, now
	return nil
}

// Readlink returns the stored target of a symbolic link.
func (fs *FS) Readlink(path string) (string, error) {
	resolved, err := fs.resolvePath(path, "readlink")
	if err != nil {
		return "", err
	}
	res, err := fs.lfind(resolved, "readlink")
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", errorf(ENOENT, "readlink", resolved)
	}
	if !res.node.isSymlink() {
		return "", errorf(EINVAL, "readlink", resolved)
	}
	return res.node.symlink, nil
}

// Readdir lists the names in a directory, in link-map order.
func (fs *FS) Readdir(path string) ([]string, error) {
	resolved, err := fs.resolvePath(path, "readdir")
	if err != nil {
		return nil, err
	}
	res, err := fs.find(resolved, "readdir")
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errorf(ENOENT, "readdir", resolved)
	}
	if !res.node.isDir() {
		return nil, errorf(ENOTDIR, "readdir", resolved)
	}
	return fs.getLinks(res.node).names(), nil
}

// DirEntry pairs a directory entry name with its stats.
type DirEntry struct {
	Name  string
	Stats *Stats
}

// ReaddirStats lists a directory with per-entry stats, lstat-flavored.
func (fs *FS) ReaddirStats(path string) ([]DirEntry, error) {
	resolved, err := fs.resolvePath(path, "readdir")
	if err != nil {
		return nil, err
	}
	res, err := fs.find(resolved, "readdir")
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errorf(ENOENT, "readdir", resolved)
	}
	if !res.node.isDir() {
		return nil, errorf(ENOTDIR, "readdir", resolved)
	}
	var entries []DirEntry
	fs.getLinks(res.node).each(func(name string, node *inode) bool {
		entries = append(entries, DirEntry{Name: name, Stats: fs.statsFor(node)})
		return true
	})
	return entries, nil
}

// Chmod replaces the permission bits of a path, preserving the type bits.
func (fs *FS) Chmod(path string, mode uint32) error {
	resolved, err := fs.resolvePath(path, "chmod")
	if err != nil {
		return err
	}
	if err := fs.checkWritable("chmod", resolved); err != nil {
		return err
	}
	res, err := fs.find(resolved, "chmod")
	if err != nil {
		return err
	}
	if res == nil {
		return errorf(ENOENT, "chmod", resolved)
	}
	res.node.mode = (res.node.mode & S_IFMT) | (mode & ^S_IFMT & 0o7777)
	res.node.ctimeMs = fs.now()
	return nil
}

// Stat resolves path, following symlinks, and reports its stats.
func (fs *FS) Stat(path string) (*Stats, error) {
	resolved, err := fs.resolvePath(path, "stat")
	if err != nil {
		return nil, err
	}
	res, err := fs.find(resolved, "stat")
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errorf(ENOENT, "stat", resolved)
	}
	return fs.statsFor(res.node), nil
}

// Lstat is Stat without following a symlink in the final component.
func (fs *FS) Lstat(path string) (*Stats, error) {
	resolved, err := fs.resolvePath(path, "lstat")
	if err != nil {
		return nil, err
	}
	res, err := fs.lfind(resolved, "lstat")
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errorf(ENOENT, "lstat", resolved)
	}
	return fs.statsFor(res.node), nil
}

// Exists reports whether path resolves to anything.
func (fs *FS) Exists(path string) bool {
	resolved, err := fs.resolvePath(path, "stat")
	if err != nil {
		return false
	}
	res, err := fs.find(resolved, "stat")
	return err == nil && res != nil
}

// Realpath returns the canonical absolute path of an entry, with every
// symlink resolved.
func (fs *FS) Realpath(path string) (string, error) {
	resolved, err := fs.resolvePath(path, "realpath")
	if err != nil {
		return "", err
	}
	res, err := fs.find(resolved, "realpath")
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", errorf(ENOENT, "realpath", resolved)
	}
	return res.path, nil
}

// Paths returns every absolute path currently reaching the entry at path.
func (fs *FS) Paths(path string) ([]string, error) {
	resolved, err := fs.resolvePath(path, "stat")
	if err != nil {
		return nil, err
	}
	res, err := fs.lfind(resolved, "stat")
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errorf(ENOENT, "stat", resolved)
	}
	return fs.nodePaths(res.node), nil
}

// PathMeta returns the metadata bag attached to the entry at path, or nil.
func (fs *FS) PathMeta(path string) (map[string]any, error) {
	resolved, err := fs.resolvePath(path, "stat")
	if err != nil {
		return nil, err
	}
	res, err := fs.lfind(resolved, "stat")
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errorf(ENOENT, "stat", resolved)
	}
	return res.node.meta, nil
}

func (fs *FS) setPathMeta(path string, meta map[string]any) error {
	res, err := fs.lfind(path, "stat")
	if err != nil {
		return err
	}
	if res == nil {
		return errorf(ENOENT, "stat", path)
	}
	res.node.meta = meta
	return nil
}

// Rimraf removes path and everything beneath it. A missing path is not an
// error.
func (fs *FS) Rimraf(path string) error {
	resolved, err := fs.resolvePath(path, "rimraf")
	if err != nil {
		return err
	}
	res, err := fs.lfind(resolved, "rimraf")
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	if res.node.isDir() {
		for _, name := range fs.getLinks(res.node).names() {
			if err := fs.Rimraf(vpath.Combine(resolved, name)); err != nil {
				return err
			}
		}
		if err := fs.Rmdir(resolved); err != nil && !errors.Is(err, ENOENT) {
			return err
		}
		return nil
	}
	if err := fs.Unlink(resolved); err != nil && !errors.Is(err, ENOENT) {
		return err
	}
	return nil
}
