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
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"chainguard.dev/harnessfs/pkg/vfs"
)

func shCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sh",
		Short: "Run an interactive shell over the file system",
		Long: `Run an interactive shell over the file system.

Builtins: ls, cat, write, mkdir, rm, ln, ln -s, mv, cd, pwd, pushd, popd,
tree, exit. The file system lives only for the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := buildFS()
			if err != nil {
				return err
			}
			return runShell(fsys, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runShell(fsys *vfs.FS, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s $ ", fsys.Cwd())
		if !scanner.Scan() {
			return scanner.Err()
		}
		words, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(out, "harnessfs: %v\n", err)
			continue
		}
		if len(words) == 0 {
			continue
		}
		if words[0] == "exit" {
			return nil
		}
		if err := runBuiltin(fsys, out, words[0], words[1:]); err != nil {
			fmt.Fprintf(out, "harnessfs: %v\n", err)
		}
	}
}

func runBuiltin(fsys *vfs.FS, out io.Writer, name string, args []string) error {
	switch name {
	case "ls":
		path := fsys.Cwd()
		if len(args) > 0 {
			path = args[0]
		}
		names, err := fsys.Readdir(path)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.Join(names, "  "))
		return nil
	case "cat":
		for _, path := range args {
			data, err := fsys.ReadFile(path)
			if err != nil {
				return err
			}
			out.Write(data)
		}
		return nil
	case "write":
		if len(args) < 2 {
			return fmt.Errorf("usage: write PATH DATA")
		}
		return fsys.WriteFile(args[0], []byte(strings.Join(args[1:], " ")))
	case "mkdir":
		if len(args) > 0 && args[0] == "-p" {
			for _, path := range args[1:] {
				if err := fsys.MkdirAll(path); err != nil {
					return err
				}
			}
			return nil
		}
		for _, path := range args {
			if err := fsys.Mkdir(path); err != nil {
				return err
			}
		}
		return nil
	case "rm":
		if len(args) > 0 && args[0] == "-r" {
			for _, path := range args[1:] {
				if err := fsys.Rimraf(path); err != nil {
					return err
				}
			}
			return nil
		}
		for _, path := range args {
			if err := fsys.Unlink(path); err != nil {
				return err
			}
		}
		return nil
	case "ln":
		if len(args) == 3 && args[0] == "-s" {
			return fsys.Symlink(args[1], args[2])
		}
		if len(args) == 2 {
			return fsys.Link(args[0], args[1])
		}
		return fmt.Errorf("usage: ln [-s] TARGET LINK")
	case "mv":
		if len(args) != 2 {
			return fmt.Errorf("usage: mv OLD NEW")
		}
		return fsys.Rename(args[0], args[1])
	case "cd":
		if len(args) != 1 {
			return fmt.Errorf("usage: cd PATH")
		}
		return fsys.Chdir(args[0])
	case "pwd":
		fmt.Fprintln(out, fsys.Cwd())
		return nil
	case "pushd":
		return fsys.Pushd(args...)
	case "popd":
		return fsys.Popd()
	case "tree":
		fmt.Fprint(out, fsys.Tree())
		return nil
	default:
		return fmt.Errorf("unknown builtin %q", name)
	}
}
