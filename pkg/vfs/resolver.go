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
	"os"
	"path/filepath"
)

// Attr is the subset of stat information a Resolver reports.
type Attr struct {
	Mode uint32
	Size int64
}

// Resolver supplies an external file tree for mounts and lazily loaded file
// contents. All methods are synchronous; errors propagate verbatim.
type Resolver interface {
	Stat(path string) (Attr, error)
	ReadDir(path string) ([]string, error)
	ReadFile(path string) ([]byte, error)
}

// OSResolver adapts the host operating system's file system to the Resolver
// interface. It is what the CLI uses to mount host directories.
type OSResolver struct{}

func (OSResolver) Stat(path string) (Attr, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Attr{}, err
	}
	mode := uint32(info.Mode().Perm())
	switch {
	case info.IsDir():
		mode |= S_IFDIR
	case info.Mode().IsRegular():
		mode |= S_IFREG
	}
	return Attr{Mode: mode, Size: info.Size()}, nil
}

func (OSResolver) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (OSResolver) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// joinSource extends a resolver source path by one component using the host
// separator convention the resolver understands.
func joinSource(source, name string) string {
	return filepath.ToSlash(filepath.Join(filepath.FromSlash(source), name))
}
