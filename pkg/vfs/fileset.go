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
	"sort"

	"gopkg.in/yaml.v3"

	"chainguard.dev/harnessfs/pkg/vpath"
)

// FileSet declares a tree of entries to apply to the file system. Values
// may be strings or byte slices (implicit files), nested FileSets (implicit
// directories), *File, *Directory, *Link, *Symlink, *Mount, or nil (which
// removes the named entry).
type FileSet map[string]any

// File declares a regular file.
type File struct {
	Data []byte
	Mode *uint32
	Meta map[string]any
}

// Directory declares a directory with nested entries.
type Directory struct {
	Files FileSet
	Mode  *uint32
	Meta  map[string]any
}

// Link declares a hard link to an existing entry.
type Link struct {
	Path string
}

// Symlink declares a symbolic link.
type Symlink struct {
	Target string
	Mode   *uint32
	Meta   map[string]any
}

// Mount declares a directory materialized lazily from an external resolver.
type Mount struct {
	Source   string
	Resolver Resolver
	Mode     *uint32
	Meta     map[string]any
}

type deferredKind int

const (
	deferLink deferredKind = iota
	deferSymlink
	deferMount
)

type deferredEntry struct {
	kind  deferredKind
	path  string
	base  string
	value any
}

// Apply populates the file system from a declarative file set, resolving
// names against the current directory. Links, symlinks, and mounts are
// applied in a second pass so they may reference entries from the first.
func (fs *FS) Apply(files FileSet) error {
	var deferred []deferredEntry
	if err := fs.applyFiles(fs.cwd, files, &deferred); err != nil {
		return err
	}
	for _, d := range deferred {
		if dirname := vpath.Dirname(d.path); dirname != d.path {
			if err := fs.MkdirAll(dirname); err != nil {
				return err
			}
		}
		switch d.kind {
		case deferSymlink:
			s := d.value.(*Symlink)
			if err := fs.Symlink(s.Target, d.path); err != nil {
				return err
			}
			if err := fs.applyDecoration(d.path, nil, s.Meta); err != nil {
				return err
			}
		case deferLink:
			l := d.value.(*Link)
			if err := fs.Link(vpath.Resolve(d.base, l.Path), d.path); err != nil {
				return err
			}
		case deferMount:
			m := d.value.(*Mount)
			var mode []uint32
			if m.Mode != nil {
				mode = append(mode, *m.Mode)
			}
			if err := fs.Mount(m.Source, d.path, m.Resolver, mode...); err != nil {
				return err
			}
			if err := fs.applyDecoration(d.path, nil, m.Meta); err != nil {
				return err
			}
		}
	}
	return nil
}

func (fs *FS) applyFiles(base string, files FileSet, deferred *[]deferredEntry) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return vpath.Compare(names[i], names[j], fs.ignoreCase) < 0
	})
	for _, name := range names {
		value := files[name]
		if err := vpath.Validate(name, vpath.RelativeOrAbsolute); err != nil {
			return errorf(EINVAL, "apply", name)
		}
		path := vpath.Resolve(base, name)
		isRoot := vpath.Dirname(path) == path
		switch v := value.(type) {
		case nil:
			if isRoot {
				return errorf(EINVAL, "apply", path)
			}
			if err := fs.Rimraf(path); err != nil {
				return err
			}
		case string:
			if err := fs.applyFile(path, isRoot, &File{Data: []byte(v)}); err != nil {
				return err
			}
		case []byte:
			if err := fs.applyFile(path, isRoot, &File{Data: v}); err != nil {
				return err
			}
		case *File:
			if err := fs.applyFile(path, isRoot, v); err != nil {
				return err
			}
		case FileSet:
			if err := fs.applyDirectory(path, &Directory{Files: v}, deferred); err != nil {
				return err
			}
		case map[string]any:
			if err := fs.applyDirectory(path, &Directory{Files: FileSet(v)}, deferred); err != nil {
				return err
			}
		case *Directory:
			if err := fs.applyDirectory(path, v, deferred); err != nil {
				return err
			}
		case *Link:
			if isRoot {
				return errorf(EINVAL, "apply", path)
			}
			*deferred = append(*deferred, deferredEntry{kind: deferLink, path: path, base: base, value: v})
		case *Symlink:
			if isRoot {
				return errorf(EINVAL, "apply", path)
			}
			*deferred = append(*deferred, deferredEntry{kind: deferSymlink, path: path, base: base, value: v})
		case *Mount:
			*deferred = append(*deferred, deferredEntry{kind: deferMount, path: path, base: base, value: v})
		default:
			return errorf(EINVAL, "apply", path)
		}
	}
	return nil
}

func (fs *FS) applyFile(path string, isRoot bool, file *File) error {
	if isRoot {
		// roots may only be directories or mounts
		return errorf(EINVAL, "apply", path)
	}
	if err := fs.MkdirAll(vpath.Dirname(path)); err != nil {
		return err
	}
	perm := uint32(0o666)
	if file.Mode != nil {
		perm = *file.Mode
	}
	if err := fs.WriteFile(path, file.Data, perm); err != nil {
		return err
	}
	return fs.applyDecoration(path, file.Mode, file.Meta)
}

func (fs *FS) applyDirectory(path string, dir *Directory, deferred *[]deferredEntry) error {
	perm := uint32(0o777)
	if dir.Mode != nil {
		perm = *dir.Mode
	}
	if err := fs.MkdirAll(path, perm); err != nil {
		return err
	}
	if err := fs.applyDecoration(path, dir.Mode, dir.Meta); err != nil {
		return err
	}
	if dir.Files != nil {
		return fs.applyFiles(path, dir.Files, deferred)
	}
	return nil
}

func (fs *FS) applyDecoration(path string, mode *uint32, meta map[string]any) error {
	if mode != nil {
		if err := fs.Chmod(path, *mode); err != nil {
			return err
		}
	}
	if meta != nil {
		if err := fs.setPathMeta(path, meta); err != nil {
			return err
		}
	}
	return nil
}

// ParseManifest decodes a YAML document into a FileSet. Scalars are files,
// nulls are removals, and mappings are directories unless they carry one of
// the reserved keys: "data" (file), "symlink" (symbolic link), "link" (hard
// link), or "source" (mount; resolver supplied per-manifest).
func ParseManifest(data []byte, resolver Resolver) (FileSet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(doc.Content) == 0 {
		return FileSet{}, nil
	}
	value, err := manifestEntry(doc.Content[0], resolver)
	if err != nil {
		return nil, err
	}
	files, ok := value.(FileSet)
	if !ok {
		return nil, fmt.Errorf("parsing manifest: document must be a mapping")
	}
	return files, nil
}

func manifestEntry(node *yaml.Node, resolver Resolver) (any, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
		return s, nil
	case yaml.MappingNode:
		keys := map[string]*yaml.Node{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			keys[node.Content[i].Value] = node.Content[i+1]
		}
		mode, err := manifestMode(keys["mode"])
		if err != nil {
			return nil, err
		}
		meta, err := manifestMeta(keys["meta"])
		if err != nil {
			return nil, err
		}
		if target, ok := keys["symlink"]; ok {
			return &Symlink{Target: target.Value, Mode: mode, Meta: meta}, nil
		}
		if source, ok := keys["link"]; ok {
			return &Link{Path: source.Value}, nil
		}
		if source, ok := keys["source"]; ok {
			return &Mount{Source: source.Value, Resolver: resolver, Mode: mode, Meta: meta}, nil
		}
		if data, ok := keys["data"]; ok {
			return &File{Data: []byte(data.Value), Mode: mode, Meta: meta}, nil
		}
		files := FileSet{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			if name == "mode" || name == "meta" {
				continue
			}
			child, err := manifestEntry(node.Content[i+1], resolver)
			if err != nil {
				return nil, err
			}
			files[name] = child
		}
		if mode != nil || meta != nil {
			return &Directory{Files: files, Mode: mode, Meta: meta}, nil
		}
		return files, nil
	default:
		return nil, fmt.Errorf("parsing manifest: unsupported node at line %d", node.Line)
	}
}

func manifestMode(node *yaml.Node) (*uint32, error) {
	if node == nil {
		return nil, nil
	}
	var mode uint32
	if err := node.Decode(&mode); err != nil {
		return nil, fmt.Errorf("parsing manifest mode: %w", err)
	}
	return &mode, nil
}

func manifestMeta(node *yaml.Node) (map[string]any, error) {
	if node == nil {
		return nil, nil
	}
	meta := map[string]any{}
	if err := node.Decode(&meta); err != nil {
		return nil, fmt.Errorf("parsing manifest meta: %w", err)
	}
	return meta, nil
}
