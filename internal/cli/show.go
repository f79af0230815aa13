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
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Build the file system from the manifest and print its tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fsys, err := buildFS()
			if err != nil {
				return err
			}
			clog.InfoContextf(ctx, "applied manifest %q", globalOpts.Manifest)
			fmt.Fprint(cmd.OutOrStdout(), fsys.Tree())
			return nil
		},
	}
}

func lsCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:     "ls PATH",
		Short:   "List a directory",
		Example: `  harnessfs -f files.yaml ls /etc`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := buildFS()
			if err != nil {
				return err
			}
			entries, err := fsys.ReaddirStats(args[0])
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if long {
					fmt.Fprintf(cmd.OutOrStdout(), "%o %4d %8d %s\n",
						entry.Stats.Mode, entry.Stats.Nlink, entry.Stats.Size, entry.Name)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), entry.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show mode, link count, and size")
	return cmd
}

func catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat PATH...",
		Short: "Print file contents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := buildFS()
			if err != nil {
				return err
			}
			for _, path := range args {
				data, err := fsys.ReadFile(path)
				if err != nil {
					return err
				}
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func statCmd() *cobra.Command {
	var noFollow bool
	cmd := &cobra.Command{
		Use:   "stat PATH",
		Short: "Print the stats of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := buildFS()
			if err != nil {
				return err
			}
			stat := fsys.Stat
			if noFollow {
				stat = fsys.Lstat
			}
			stats, err := stat(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dev=%d ino=%d mode=%o nlink=%d size=%d mtime=%s\n",
				stats.Dev, stats.Ino, stats.Mode, stats.Nlink, stats.Size, stats.Mtime().UTC())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&noFollow, "no-follow", "L", false, "do not follow a final symlink")
	return cmd
}

func treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the whole tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, err := buildFS()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), fsys.Tree())
			return nil
		},
	}
}
