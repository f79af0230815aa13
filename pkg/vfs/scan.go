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

// Axis selects which related entries Scan enumerates.
type Axis string

const (
	AxisAncestors         Axis = "ancestors"
	AxisAncestorsOrSelf   Axis = "ancestors-or-self"
	AxisSelf              Axis = "self"
	AxisDescendantsOrSelf Axis = "descendants-or-self"
	AxisDescendants       Axis = "descendants"
)

// Traversal gates a scan: Accept decides whether a candidate is included,
// Traverse whether a directory is descended into. A nil predicate means
// "always".
type Traversal struct {
	Accept   func(path string, stats *Stats) bool
	Traverse func(path string, stats *Stats) bool
}

// Scan enumerates paths along an axis, following symlinks when statting.
// The named path must exist; errors below it are swallowed so one
// unreadable branch does not abort the scan.
func (fs *FS) Scan(path string, axis Axis, traversal Traversal) ([]string, error) {
	return fs.scan(path, axis, traversal, false)
}

// Lscan is Scan with lstat semantics on the final component of each
// candidate.
func (fs *FS) Lscan(path string, axis Axis, traversal Traversal) ([]string, error) {
	return fs.scan(path, axis, traversal, true)
}

func (fs *FS) scan(path string, axis Axis, traversal Traversal, noFollow bool) ([]string, error) {
	resolved, err := fs.resolvePath(path, "scan")
	if err != nil {
		return nil, err
	}
	stats, err := fs.statScan(resolved, noFollow)
	if err != nil {
		return nil, err
	}
	results := []string{}
	includeSelf := axis == AxisSelf || axis == AxisAncestorsOrSelf || axis == AxisDescendantsOrSelf
	if includeSelf && accepts(traversal, resolved, stats) {
		results = append(results, resolved)
	}
	switch axis {
	case AxisAncestors, AxisAncestorsOrSelf:
		for p := resolved; ; {
			up := vpath.Dirname(p)
			if up == p {
				break
			}
			p = up
			upStats, err := fs.statScan(p, noFollow)
			if err != nil {
				break
			}
			if accepts(traversal, p, upStats) {
				results = append(results, p)
			}
		}
	case AxisDescendants, AxisDescendantsOrSelf:
		if stats.IsDirectory() && traverses(traversal, resolved, stats) {
			fs.scanChildren(resolved, traversal, noFollow, &results)
		}
	}
	return results, nil
}

func (fs *FS) scanChildren(dir string, traversal Traversal, noFollow bool, results *[]string) {
	names, err := fs.Readdir(dir)
	if err != nil {
		return
	}
	for _, name := range names {
		child := vpath.Combine(dir, name)
		stats, err := fs.statScan(child, noFollow)
		if err != nil {
			// an unreadable sibling does not abort the scan
			continue
		}
		if accepts(traversal, child, stats) {
			*results = append(*results, child)
		}
		if stats.IsDirectory() && traverses(traversal, child, stats) {
			fs.scanChildren(child, traversal, noFollow, results)
		}
	}
}

func (fs *FS) statScan(path string, noFollow bool) (*Stats, error) {
	if noFollow {
		return fs.Lstat(path)
	}
	return fs.Stat(path)
}

func accepts(t Traversal, path string, stats *Stats) bool {
	return t.Accept == nil || t.Accept(path, stats)
}

func traverses(t Traversal, path string, stats *Stats) bool {
	return t.Traverse == nil || t.Traverse(path, stats)
}
