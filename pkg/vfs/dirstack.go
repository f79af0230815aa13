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

// Cwd returns the current working directory.
func (fs *FS) Cwd() string {
	return fs.cwd
}

// Chdir changes the current working directory. It fails with EPERM on a
// read-only file system.
func (fs *FS) Chdir(path string) error {
	if fs.readonly {
		return errorf(EPERM, "chdir", path)
	}
	resolved, err := fs.resolvePath(path, "chdir")
	if err != nil {
		return err
	}
	res, err := fs.find(resolved, "chdir")
	if err != nil {
		return err
	}
	if res == nil {
		return errorf(ENOENT, "chdir", resolved)
	}
	if !res.node.isDir() {
		return errorf(ENOTDIR, "chdir", resolved)
	}
	fs.cwd = res.path
	return nil
}

// Pushd saves the current directory on the stack and, when given a path,
// changes into it.
func (fs *FS) Pushd(path ...string) error {
	if fs.readonly {
		p := ""
		if len(path) > 0 {
			p = path[0]
		}
		return errorf(EPERM, "pushd", p)
	}
	fs.dirStack = append(fs.dirStack, fs.cwd)
	if len(path) > 0 {
		if err := fs.Chdir(path[0]); err != nil {
			fs.dirStack = fs.dirStack[:len(fs.dirStack)-1]
			return err
		}
	}
	return nil
}

// Popd restores the directory most recently saved by Pushd. An empty stack
// is a no-op.
func (fs *FS) Popd() error {
	if fs.readonly {
		return errorf(EPERM, "popd", "")
	}
	if len(fs.dirStack) == 0 {
		return nil
	}
	top := fs.dirStack[len(fs.dirStack)-1]
	fs.dirStack = fs.dirStack[:len(fs.dirStack)-1]
	return fs.Chdir(top)
}
