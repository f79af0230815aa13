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
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeResolver serves a fixed external tree and counts every call, so tests
// can pin down exactly when materialization happens.
type fakeResolver struct {
	files    map[string][]byte
	dirs     map[string][]string
	statN    map[string]int
	readdirN map[string]int
	readN    map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		files:    map[string][]byte{},
		dirs:     map[string][]string{},
		statN:    map[string]int{},
		readdirN: map[string]int{},
		readN:    map[string]int{},
	}
}

func (r *fakeResolver) addFile(path string, data []byte) {
	r.files[path] = data
}

func (r *fakeResolver) addDir(path string, names ...string) {
	r.dirs[path] = names
}

func (r *fakeResolver) Stat(path string) (Attr, error) {
	r.statN[path]++
	if data, ok := r.files[path]; ok {
		return Attr{Mode: S_IFREG | 0o644, Size: int64(len(data))}, nil
	}
	if _, ok := r.dirs[path]; ok {
		return Attr{Mode: S_IFDIR | 0o755}, nil
	}
	return Attr{}, fmt.Errorf("stat %s: no such file", path)
}

func (r *fakeResolver) ReadDir(path string) ([]string, error) {
	r.readdirN[path]++
	names, ok := r.dirs[path]
	if !ok {
		return nil, fmt.Errorf("readdir %s: no such directory", path)
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return sorted, nil
}

func (r *fakeResolver) ReadFile(path string) ([]byte, error) {
	r.readN[path]++
	data, ok := r.files[path]
	if !ok {
		return nil, fmt.Errorf("readfile %s: no such file", path)
	}
	return data, nil
}

func TestMountLazyMaterialization(t *testing.T) {
	fsys := newTestFS(t)
	resolver := newFakeResolver()
	resolver.addDir("/src", "a.txt")
	resolver.addFile("/src/a.txt", []byte("payload"))

	require.NoError(t, fsys.Mount("/src", "/m", resolver))

	t.Run("mount itself is not materialized", func(t *testing.T) {
		require.Zero(t, resolver.readdirN["/src"])
	})

	t.Run("first stat materializes once", func(t *testing.T) {
		stats, err := fsys.Stat("/m/a.txt")
		require.NoError(t, err)
		require.True(t, stats.IsFile())
		require.Equal(t, int64(len("payload")), stats.Size)
		require.Equal(t, 1, resolver.readdirN["/src"])
		require.Equal(t, 1, resolver.statN["/src/a.txt"])
	})

	t.Run("second stat does not consult the resolver", func(t *testing.T) {
		_, err := fsys.Stat("/m/a.txt")
		require.NoError(t, err)
		require.Equal(t, 1, resolver.readdirN["/src"])
		require.Equal(t, 1, resolver.statN["/src/a.txt"])
	})

	t.Run("content loads lazily and once", func(t *testing.T) {
		require.Zero(t, resolver.readN["/src/a.txt"])
		data, err := fsys.ReadFile("/m/a.txt")
		require.NoError(t, err)
		require.Equal(t, []byte("payload"), data)
		require.Equal(t, 1, resolver.readN["/src/a.txt"])

		_, err = fsys.ReadFile("/m/a.txt")
		require.NoError(t, err)
		require.Equal(t, 1, resolver.readN["/src/a.txt"])
	})
}

func TestMountNestedDirectories(t *testing.T) {
	fsys := newTestFS(t)
	resolver := newFakeResolver()
	resolver.addDir("/src", "sub", "top.txt")
	resolver.addDir("/src/sub", "inner.txt")
	resolver.addFile("/src/top.txt", []byte("t"))
	resolver.addFile("/src/sub/inner.txt", []byte("i"))

	require.NoError(t, fsys.Mount("/src", "/m", resolver))

	names, err := fsys.Readdir("/m")
	require.NoError(t, err)
	require.Equal(t, []string{"sub", "top.txt"}, names)
	require.Zero(t, resolver.readdirN["/src/sub"], "subdirectory still lazy")

	data, err := fsys.ReadFile("/m/sub/inner.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("i"), data)
	require.Equal(t, 1, resolver.readdirN["/src/sub"])
}

func TestMountIsMutable(t *testing.T) {
	fsys := newTestFS(t)
	resolver := newFakeResolver()
	resolver.addDir("/src", "a.txt")
	resolver.addFile("/src/a.txt", []byte("x"))

	require.NoError(t, fsys.Mount("/src", "/m", resolver))
	require.NoError(t, fsys.WriteFile("/m/extra", []byte("e")))

	names, err := fsys.Readdir("/m")
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "extra"}, names)

	require.NoError(t, fsys.Unlink("/m/a.txt"))
	require.False(t, fsys.Exists("/m/a.txt"))
	checkLinkCounts(t, fsys)
}

func TestMountAsRoot(t *testing.T) {
	fsys, err := New(WithTime(testTime))
	require.NoError(t, err)
	resolver := newFakeResolver()
	resolver.addDir("/src", "a.txt")
	resolver.addFile("/src/a.txt", []byte("x"))

	require.NoError(t, fsys.Mount("/src", "/", resolver))
	data, err := fsys.ReadFile("/a.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("x"), data)
}

func TestMountErrors(t *testing.T) {
	fsys := newTestFS(t)
	resolver := newFakeResolver()
	resolver.addDir("/src")

	t.Run("nil resolver", func(t *testing.T) {
		require.ErrorIs(t, fsys.Mount("/src", "/m", nil), EINVAL)
	})
	t.Run("existing target", func(t *testing.T) {
		require.NoError(t, fsys.Mkdir("/m"))
		require.ErrorIs(t, fsys.Mount("/src", "/m", resolver), EEXIST)
	})
	t.Run("readonly file system", func(t *testing.T) {
		frozen := newTestFS(t)
		frozen.MakeReadonly()
		require.ErrorIs(t, frozen.Mount("/src", "/m", resolver), EROFS)
	})
}
