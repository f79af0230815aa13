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

// Package vfs implements an in-memory POSIX-like virtual file system for use
// as a deterministic test harness. It supports inodes with hard-link
// accounting, symbolic links with walk-time resolution, lazily materialized
// mounts over an external resolver, and copy-on-write shadowing of a frozen
// parent file system.
package vfs

import (
	"fmt"

	"chainguard.dev/harnessfs/pkg/vpath"
)

// FS is a single virtual file system instance. It is single-threaded by
// construction; operations run to completion and are never suspended.
type FS struct {
	ignoreCase bool
	readonly   bool

	time  int64
	clock Clock

	cwd      string
	dirStack []string

	// roots holds the root entries, addressed by complete absolute path.
	roots *linkMap

	// shadowRoot is the frozen parent file system when this one shadows it.
	shadowRoot *FS

	// shadows memoizes parent-inode → shadow-inode, keyed by ino, so every
	// lookup of the same parent inode yields the same shadow object.
	shadows map[int64]*inode

	meta map[string]any
}

// Option configures a file system at construction.
type Option func(*FS) error

// WithIgnoreCase makes name comparison case-insensitive. The choice is
// immutable for the life of the file system.
func WithIgnoreCase() Option {
	return func(fs *FS) error {
		fs.ignoreCase = true
		fs.roots = newLinkMap(true)
		return nil
	}
}

// WithTime fixes the time source to an epoch-ms value, or to real wall-clock
// time when given the WallClock sentinel.
func WithTime(v int64) Option {
	return func(fs *FS) error {
		fs.time = v
		return nil
	}
}

// WithClock supplies the time as a function.
func WithClock(fn Clock) Option {
	return func(fs *FS) error {
		fs.clock = fn
		return nil
	}
}

// WithFiles populates the file system from a declarative file set.
func WithFiles(files FileSet) Option {
	return func(fs *FS) error {
		return fs.Apply(files)
	}
}

// WithCwd creates path (and any missing ancestors) and makes it the current
// directory.
func WithCwd(path string) Option {
	return func(fs *FS) error {
		if err := fs.MkdirAll(path, 0o777); err != nil {
			return err
		}
		return fs.Chdir(path)
	}
}

// WithMeta attaches a metadata bag to the file system itself.
func WithMeta(meta map[string]any) Option {
	return func(fs *FS) error {
		fs.meta = meta
		return nil
	}
}

// New constructs an empty file system. The default time source is the wall
// clock; pass WithTime for determinism.
func New(opts ...Option) (*FS, error) {
	fs := &FS{
		time:  WallClock,
		cwd:   vpath.Sep,
		roots: newLinkMap(false),
	}
	for _, opt := range opts {
		if err := opt(fs); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// IgnoreCase reports whether name comparison folds case.
func (fs *FS) IgnoreCase() bool { return fs.ignoreCase }

// IsReadonly reports whether the file system has been frozen.
func (fs *FS) IsReadonly() bool { return fs.readonly }

// MakeReadonly freezes the file system. Freezing is monotone: every
// subsequent mutation fails.
func (fs *FS) MakeReadonly() *FS {
	fs.readonly = true
	return fs
}

// Meta returns the file system's own metadata bag.
func (fs *FS) Meta() map[string]any { return fs.meta }

// Shadow derives a mutable child file system that lazily mirrors this one.
// The parent must already be frozen, and the child's case sensitivity must
// match the parent's.
func (fs *FS) Shadow(opts ...ShadowOption) (*FS, error) {
	var cfg shadowConfig
	cfg.ignoreCase = fs.ignoreCase
	for _, opt := range opts {
		opt(&cfg)
	}
	if !fs.readonly {
		return nil, fmt.Errorf("shadow: parent file system must be read-only")
	}
	if cfg.ignoreCase != fs.ignoreCase {
		return nil, fmt.Errorf("shadow: case sensitivity cannot change across a shadow")
	}
	shadow := &FS{
		ignoreCase: cfg.ignoreCase,
		time:       fs.time,
		clock:      fs.clock,
		cwd:        fs.cwd,
		roots:      newLinkMap(cfg.ignoreCase),
		shadowRoot: fs,
		shadows:    map[int64]*inode{},
	}
	// Root entries translate directly: getShadow already carries over the
	// reverse links and link counts.
	for _, entry := range fs.roots.entries() {
		shadow.roots.set(entry.name, shadow.getShadow(entry.node))
	}
	return shadow, nil
}

// ShadowOption configures Shadow.
type ShadowOption func(*shadowConfig)

type shadowConfig struct {
	ignoreCase bool
}

// ShadowIgnoreCase requests a specific case sensitivity for the child. Any
// value differing from the parent's is rejected.
func ShadowIgnoreCase(ignoreCase bool) ShadowOption {
	return func(cfg *shadowConfig) {
		cfg.ignoreCase = ignoreCase
	}
}

// getLinks returns the link map of a directory inode, materializing it on
// first access from a mount pin or from the shadowed parent.
func (fs *FS) getLinks(dir *inode) *linkMap {
	if dir.links != nil {
		return dir.links
	}
	if dir.source != "" && dir.resolver != nil {
		fs.materializeMount(dir)
		return dir.links
	}
	dir.links = newLinkMap(fs.ignoreCase)
	if fs.shadowRoot != nil && dir.shadowRoot != nil {
		parentLinks := fs.shadowRoot.getLinks(dir.shadowRoot)
		for _, entry := range parentLinks.entries() {
			// translate, don't addLink: getShadow already carried over the
			// reverse links and link counts
			dir.links.set(entry.name, fs.getShadow(entry.node))
		}
	}
	return dir.links
}

// checkWritable fails with EROFS when the file system is frozen.
func (fs *FS) checkWritable(syscall, path string) error {
	if fs.readonly {
		return errorf(EROFS, syscall, path)
	}
	return nil
}
