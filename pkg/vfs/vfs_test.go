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
	"testing"

	"github.com/stretchr/testify/require"
)

const testTime int64 = 1_600_000_000_000

func newTestFS(t *testing.T, opts ...Option) *FS {
	t.Helper()
	fsys, err := New(append([]Option{WithTime(testTime)}, opts...)...)
	require.NoError(t, err)
	if err := fsys.Mkdir("/"); err != nil && !errors.Is(err, EEXIST) {
		require.NoError(t, err)
	}
	return fsys
}

// checkLinkCounts asserts that every reachable inode's nlink equals the sum
// of its incoming link name sets.
func checkLinkCounts(t *testing.T, fsys *FS) {
	t.Helper()
	seen := map[*inode]bool{}
	var visit func(node *inode)
	visit = func(node *inode) {
		if seen[node] {
			return
		}
		seen[node] = true
		total := 0
		for _, names := range node.incomingLinks {
			total += len(names)
		}
		require.Equal(t, total, node.nlink, "nlink accounting for ino %d", node.ino)
		if node.isDir() && node.links != nil {
			node.links.each(func(_ string, child *inode) bool {
				visit(child)
				return true
			})
		}
	}
	fsys.roots.each(func(_ string, node *inode) bool {
		visit(node)
		return true
	})
}

func TestNew(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		fsys, err := New(WithTime(testTime))
		require.NoError(t, err)
		require.False(t, fsys.IgnoreCase())
		require.Equal(t, "/", fsys.Cwd())
		_, err = fsys.Stat("/")
		require.ErrorIs(t, err, ENOENT)
	})
	t.Run("with files", func(t *testing.T) {
		fsys, err := New(WithTime(testTime), WithFiles(FileSet{
			"/a/b.txt": "hello",
		}))
		require.NoError(t, err)
		data, err := fsys.ReadFile("/a/b.txt")
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), data)
	})
	t.Run("with cwd", func(t *testing.T) {
		fsys, err := New(WithTime(testTime), WithCwd("/home/test"))
		require.NoError(t, err)
		require.Equal(t, "/home/test", fsys.Cwd())
	})
	t.Run("ignore case", func(t *testing.T) {
		fsys := newTestFS(t, WithIgnoreCase())
		require.NoError(t, fsys.WriteFile("/Readme.md", []byte("x")))
		stats, err := fsys.Stat("/README.MD")
		require.NoError(t, err)
		require.True(t, stats.IsFile())
	})
}

func TestUniqueIdentifiers(t *testing.T) {
	a := newTestFS(t)
	b := newTestFS(t)
	sa, err := a.Stat("/")
	require.NoError(t, err)
	sb, err := b.Stat("/")
	require.NoError(t, err)
	require.NotEqual(t, sa.Dev, sb.Dev)
	require.NotEqual(t, sa.Ino, sb.Ino)
}

func TestMakeReadonly(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, fsys.WriteFile("/a", []byte("x")))
	fsys.MakeReadonly()
	require.True(t, fsys.IsReadonly())

	t.Run("mutations fail with EROFS", func(t *testing.T) {
		require.ErrorIs(t, fsys.Mkdir("/d"), EROFS)
		require.ErrorIs(t, fsys.WriteFile("/b", []byte("y")), EROFS)
		require.ErrorIs(t, fsys.Unlink("/a"), EROFS)
		require.ErrorIs(t, fsys.Rename("/a", "/b"), EROFS)
		require.ErrorIs(t, fsys.Symlink("/a", "/l"), EROFS)
		require.ErrorIs(t, fsys.Link("/a", "/b"), EROFS)
		require.ErrorIs(t, fsys.Chmod("/a", 0o600), EROFS)
		require.ErrorIs(t, fsys.Rmdir("/"), EROFS)
		_, err := fsys.Open("/a", O_RDWR)
		require.ErrorIs(t, err, EROFS)
	})
	t.Run("reads still work", func(t *testing.T) {
		data, err := fsys.ReadFile("/a")
		require.NoError(t, err)
		require.Equal(t, []byte("x"), data)
	})
	t.Run("directory stack fails with EPERM", func(t *testing.T) {
		require.ErrorIs(t, fsys.Chdir("/"), EPERM)
		require.ErrorIs(t, fsys.Pushd("/"), EPERM)
		require.ErrorIs(t, fsys.Popd(), EPERM)
	})
}

func TestTime(t *testing.T) {
	fsys := newTestFS(t)
	require.Equal(t, testTime, fsys.Time())
	require.NoError(t, fsys.WriteFile("/a", []byte("x")))
	stats, err := fsys.Stat("/a")
	require.NoError(t, err)
	require.Equal(t, testTime, stats.MtimeMs)
	require.Equal(t, testTime, stats.BirthtimeMs)

	fsys.SetTime(testTime + 5000)
	require.NoError(t, fsys.WriteFile("/b", []byte("y")))
	stats, err = fsys.Stat("/b")
	require.NoError(t, err)
	require.Equal(t, testTime+5000, stats.BirthtimeMs)
}

func TestDirectoryStack(t *testing.T) {
	fsys := newTestFS(t)
	require.NoError(t, fsys.MkdirAll("/a/b"))

	require.NoError(t, fsys.Chdir("/a"))
	require.Equal(t, "/a", fsys.Cwd())

	t.Run("relative resolution", func(t *testing.T) {
		require.NoError(t, fsys.WriteFile("b/f.txt", []byte("x")))
		data, err := fsys.ReadFile("/a/b/f.txt")
		require.NoError(t, err)
		require.Equal(t, []byte("x"), data)
	})

	t.Run("pushd and popd", func(t *testing.T) {
		require.NoError(t, fsys.Pushd("/a/b"))
		require.Equal(t, "/a/b", fsys.Cwd())
		require.NoError(t, fsys.Popd())
		require.Equal(t, "/a", fsys.Cwd())
	})

	t.Run("pushd without argument saves current", func(t *testing.T) {
		require.NoError(t, fsys.Pushd())
		require.NoError(t, fsys.Chdir("/a/b"))
		require.NoError(t, fsys.Popd())
		require.Equal(t, "/a", fsys.Cwd())
	})

	t.Run("popd on empty stack is a no-op", func(t *testing.T) {
		require.NoError(t, fsys.Popd())
		require.Equal(t, "/a", fsys.Cwd())
	})

	t.Run("chdir to file", func(t *testing.T) {
		require.ErrorIs(t, fsys.Chdir("/a/b/f.txt"), ENOTDIR)
	})
	t.Run("chdir to missing", func(t *testing.T) {
		require.ErrorIs(t, fsys.Chdir("/missing"), ENOENT)
	})
}

func TestErrorFormatting(t *testing.T) {
	err := &PathError{Errno: ENOENT, Syscall: "open", Path: "/a"}
	require.Equal(t, "ENOENT: no such file or directory, open '/a'", err.Error())

	err = &PathError{Errno: EEXIST, Syscall: "rename", Path: "/a", Dest: "/b"}
	require.Equal(t, "EEXIST: file already exists, rename '/a' -> '/b'", err.Error())

	require.ErrorIs(t, err, EEXIST)
}
