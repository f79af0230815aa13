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

// maxSymlinkDepth is the per-walk symlink expansion count at which a walk
// fails with ELOOP: a chain of 39 expansions resolves, the 40th fails.
const maxSymlinkDepth = 40

// walkResult describes the terminal component of a successful walk.
type walkResult struct {
	path     string
	basename string
	parent   *inode
	node     *inode
}

// resolvePath validates path and resolves it against the current working
// directory into a clean absolute path.
func (fs *FS) resolvePath(path, syscall string) (string, error) {
	if err := vpath.Validate(path, vpath.RelativeOrAbsolute); err != nil {
		return "", errorf(EINVAL, syscall, path)
	}
	return vpath.Resolve(fs.cwd, path), nil
}

// walk performs POSIX name resolution on an absolute path. Symlinks are
// expanded at every step except, when noFollow is set, on the final
// component. A missing terminal or intermediate entry yields (nil, nil);
// callers decide whether that is ENOENT.
func (fs *FS) walk(path string, noFollow bool, syscall string) (*walkResult, error) {
	components := vpath.Parse(path)
	links := fs.roots
	var parent *inode
	step := 0
	depth := 0
	for {
		basename := components[step]
		node, _ := links.get(basename)
		last := step == len(components)-1
		if node == nil {
			return nil, nil
		}
		if node.isSymlink() && !(noFollow && last) {
			depth++
			if depth >= maxSymlinkDepth {
				return nil, errorf(ELOOP, syscall, vpath.Format(components))
			}
			dirname := vpath.Format(components[:step])
			target := vpath.Resolve(dirname, node.symlink)
			components = append(vpath.Parse(target), components[step+1:]...)
			links = fs.roots
			parent = nil
			step = 0
			continue
		}
		if last {
			if node.isDir() && parent == nil {
				// a terminal root directory is its own parent
				parent = node
			}
			return &walkResult{
				path:     vpath.Format(components),
				basename: basename,
				parent:   parent,
				node:     node,
			}, nil
		}
		if node.isDir() {
			links = fs.getLinks(node)
			parent = node
			step++
			continue
		}
		return nil, errorf(ENOTDIR, syscall, vpath.Format(components[:step+1]))
	}
}

// find resolves path following every symlink.
func (fs *FS) find(path, syscall string) (*walkResult, error) {
	return fs.walk(path, false, syscall)
}

// lfind resolves path without following a symlink in the final component.
func (fs *FS) lfind(path, syscall string) (*walkResult, error) {
	return fs.walk(path, true, syscall)
}

// walkParent resolves the parent directory of path. It fails with ENOENT
// when the parent is missing and ENOTDIR when it is not a directory.
func (fs *FS) walkParent(path, syscall string) (*walkResult, error) {
	parent, err := fs.find(vpath.Dirname(path), syscall)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, errorf(ENOENT, syscall, path)
	}
	if !parent.node.isDir() {
		return nil, errorf(ENOTDIR, syscall, path)
	}
	return parent, nil
}
