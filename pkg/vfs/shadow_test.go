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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newShadowPair(t *testing.T) (*FS, *FS) {
	t.Helper()
	parent := newTestFS(t)
	require.NoError(t, parent.MkdirAll("/a/b"))
	require.NoError(t, parent.WriteFile("/a/f", []byte("hello")))
	require.NoError(t, parent.Symlink("f", "/a/l"))
	parent.MakeReadonly()
	child, err := parent.Shadow()
	require.NoError(t, err)
	return parent, child
}

func TestShadowRequiresFrozenParent(t *testing.T) {
	parent := newTestFS(t)
	_, err := parent.Shadow()
	require.Error(t, err)
}

func TestShadowCaseSensitivityPreserved(t *testing.T) {
	t.Run("cannot narrow", func(t *testing.T) {
		parent := newTestFS(t)
		parent.MakeReadonly()
		_, err := parent.Shadow(ShadowIgnoreCase(true))
		require.Error(t, err)
	})
	t.Run("cannot widen", func(t *testing.T) {
		parent := newTestFS(t, WithIgnoreCase())
		parent.MakeReadonly()
		_, err := parent.Shadow(ShadowIgnoreCase(false))
		require.Error(t, err)
	})
	t.Run("same sensitivity allowed", func(t *testing.T) {
		parent := newTestFS(t, WithIgnoreCase())
		parent.MakeReadonly()
		child, err := parent.Shadow()
		require.NoError(t, err)
		require.True(t, child.IgnoreCase())
	})
}

func TestShadowIdentity(t *testing.T) {
	parent, child := newShadowPair(t)

	t.Run("stat matches parent on unchanged entries", func(t *testing.T) {
		for _, path := range []string{"/", "/a", "/a/b", "/a/f"} {
			ps, err := parent.Stat(path)
			require.NoError(t, err)
			cs, err := child.Stat(path)
			require.NoError(t, err)
			require.Equal(t, ps.Ino, cs.Ino, "ino of %s", path)
			require.Equal(t, ps.Dev, cs.Dev, "dev of %s", path)
			require.Equal(t, ps.Size, cs.Size, "size of %s", path)
			require.Equal(t, ps.Nlink, cs.Nlink, "nlink of %s", path)
		}
	})

	t.Run("same shadow object on repeated lookups", func(t *testing.T) {
		a, err := child.find("/a/f", "stat")
		require.NoError(t, err)
		b, err := child.find("/a/f", "stat")
		require.NoError(t, err)
		require.Same(t, a.node, b.node)
	})

	t.Run("reads fall through", func(t *testing.T) {
		data, err := child.ReadFile("/a/f")
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), data)

		target, err := child.Readlink("/a/l")
		require.NoError(t, err)
		require.Equal(t, "f", target)

		data, err = child.ReadFile("/a/l")
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), data)
	})
}

func TestShadowCopyOnWrite(t *testing.T) {
	parent, child := newShadowPair(t)

	parentStats, err := parent.Stat("/a/f")
	require.NoError(t, err)

	require.NoError(t, child.WriteFile("/a/f", []byte("HI")))

	t.Run("parent unchanged", func(t *testing.T) {
		data, err := parent.ReadFile("/a/f")
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), data)
		stats, err := parent.Stat("/a/f")
		require.NoError(t, err)
		require.Equal(t, int64(5), stats.Size)
	})

	t.Run("child sees the write, identity preserved", func(t *testing.T) {
		data, err := child.ReadFile("/a/f")
		require.NoError(t, err)
		require.Equal(t, []byte("HI"), data)
		stats, err := child.Stat("/a/f")
		require.NoError(t, err)
		require.Equal(t, parentStats.Ino, stats.Ino)
		require.Equal(t, int64(2), stats.Size)
	})
}

func TestShadowStructuralChanges(t *testing.T) {
	parent, child := newShadowPair(t)

	require.NoError(t, child.WriteFile("/a/new", []byte("n")))
	require.NoError(t, child.Unlink("/a/f"))
	require.NoError(t, child.MkdirAll("/c"))

	t.Run("child diverged", func(t *testing.T) {
		names, err := child.Readdir("/a")
		require.NoError(t, err)
		require.Equal(t, []string{"b", "l", "new"}, names)
		require.True(t, child.Exists("/c"))
	})

	t.Run("parent untouched", func(t *testing.T) {
		names, err := parent.Readdir("/a")
		require.NoError(t, err)
		require.Equal(t, []string{"b", "f", "l"}, names)
		require.False(t, parent.Exists("/c"))
		require.False(t, parent.Exists("/a/new"))
	})

	checkLinkCounts(t, child)
}

func TestShadowOfShadow(t *testing.T) {
	_, child := newShadowPair(t)
	require.NoError(t, child.WriteFile("/a/g", []byte("g")))
	child.MakeReadonly()

	grandchild, err := child.Shadow()
	require.NoError(t, err)

	data, err := grandchild.ReadFile("/a/f")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	data, err = grandchild.ReadFile("/a/g")
	require.NoError(t, err)
	require.Equal(t, []byte("g"), data)

	require.NoError(t, grandchild.WriteFile("/a/g", []byte("G2")))
	data, err = child.ReadFile("/a/g")
	require.NoError(t, err)
	require.Equal(t, []byte("g"), data)
}

func TestShadowTreeSnapshot(t *testing.T) {
	parent, child := newShadowPair(t)
	if diff := cmp.Diff(parent.Tree(), child.Tree()); diff != "" {
		t.Errorf("shadow tree mismatch (-parent +child):\n%s", diff)
	}
}
