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
	"github.com/google/btree"

	"chainguard.dev/harnessfs/pkg/vpath"
)

const linkMapDegree = 8

// dirent is one name→inode entry in a directory (or in the root map, where
// names are complete absolute root paths).
type dirent struct {
	name string
	node *inode
}

// linkMap is an ordered name→inode map. Ordering follows the file-system
// wide comparator, fixed at construction.
type linkMap struct {
	tree       *btree.BTreeG[dirent]
	ignoreCase bool
}

func newLinkMap(ignoreCase bool) *linkMap {
	less := func(a, b dirent) bool {
		return vpath.Compare(a.name, b.name, ignoreCase) < 0
	}
	return &linkMap{
		tree:       btree.NewG(linkMapDegree, less),
		ignoreCase: ignoreCase,
	}
}

func (m *linkMap) get(name string) (*inode, bool) {
	item, ok := m.tree.Get(dirent{name: name})
	if !ok {
		return nil, false
	}
	return item.node, true
}

func (m *linkMap) set(name string, node *inode) {
	m.tree.ReplaceOrInsert(dirent{name: name, node: node})
}

func (m *linkMap) delete(name string) {
	m.tree.Delete(dirent{name: name})
}

func (m *linkMap) len() int {
	return m.tree.Len()
}

// each visits entries in comparator order. The visitor must not mutate the
// map; collect first when mutating.
func (m *linkMap) each(fn func(name string, node *inode) bool) {
	m.tree.Ascend(func(item dirent) bool {
		return fn(item.name, item.node)
	})
}

func (m *linkMap) names() []string {
	names := make([]string, 0, m.tree.Len())
	m.each(func(name string, _ *inode) bool {
		names = append(names, name)
		return true
	})
	return names
}

func (m *linkMap) entries() []dirent {
	entries := make([]dirent, 0, m.tree.Len())
	m.tree.Ascend(func(item dirent) bool {
		entries = append(entries, item)
		return true
	})
	return entries
}
