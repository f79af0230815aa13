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

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testManifest = `
etc:
  passwd: "root:x:0:0"
bin:
  busybox: "#!bb"
  sh:
    symlink: busybox
`

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "files.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := New()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestCatCommand(t *testing.T) {
	manifest := writeManifest(t)
	out := runCommand(t, "-f", manifest, "cat", "/etc/passwd")
	require.Equal(t, "root:x:0:0", out)
}

func TestLsCommand(t *testing.T) {
	manifest := writeManifest(t)
	out := runCommand(t, "-f", manifest, "ls", "/bin")
	require.Equal(t, []string{"busybox", "sh"}, strings.Fields(out))
}

func TestTreeCommand(t *testing.T) {
	manifest := writeManifest(t)
	out := runCommand(t, "-f", manifest, "tree")
	require.Contains(t, out, "sh -> busybox")
	require.Contains(t, out, "passwd (10 bytes)")
}

func TestStatCommand(t *testing.T) {
	manifest := writeManifest(t)
	out := runCommand(t, "-f", manifest, "--time", "1600000000000", "stat", "/etc/passwd")
	require.Contains(t, out, "size=10")
	require.Contains(t, out, "nlink=1")
}

func TestShell(t *testing.T) {
	manifest := writeManifest(t)
	in := strings.NewReader(strings.Join([]string{
		"mkdir -p /tmp/work",
		"cd /tmp/work",
		"write note.txt hello world",
		"cat note.txt",
		"ls",
		"exit",
	}, "\n"))
	var out bytes.Buffer
	cmd := New()
	cmd.SetIn(in)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"-f", manifest, "sh"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "hello world")
	require.Contains(t, out.String(), "note.txt")
}
