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

// Package cli implements the harnessfs command tree. Each command builds an
// in-memory file system from a YAML manifest (plus optional host mounts)
// and inspects or exercises it.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/chainguard-dev/clog/slag"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"sigs.k8s.io/release-utils/version"

	"chainguard.dev/harnessfs/pkg/vfs"
)

// GlobalOptions holds flags that apply to all commands.
type GlobalOptions struct {
	Manifest string
	Mounts   []string
	Time     int64
	Quiet    bool
	Verbose  int
}

var globalOpts = &GlobalOptions{}

func New() *cobra.Command {
	level := slag.Level(slog.LevelInfo)

	cmd := &cobra.Command{
		Use:               "harnessfs",
		Short:             "Inspect and exercise an in-memory harness file system",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if globalOpts.Quiet {
				level = slag.Level(slog.LevelError)
			} else if globalOpts.Verbose > 0 {
				level = slag.Level(slog.LevelDebug)
			}

			slog.SetDefault(slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
				ReportTimestamp: true,
				Level:           charmlog.Level(level),
			})))

			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&globalOpts.Manifest, "file", "f", "", "YAML manifest declaring the file set")
	cmd.PersistentFlags().StringSliceVarP(&globalOpts.Mounts, "mount", "m", nil, "host mount as HOSTDIR:TARGET (repeatable)")
	cmd.PersistentFlags().Int64Var(&globalOpts.Time, "time", vfs.WallClock, "fixed epoch-ms time source (-1 for wall clock)")
	cmd.PersistentFlags().BoolVarP(&globalOpts.Quiet, "quiet", "q", false, "print less information")
	cmd.PersistentFlags().CountVarP(&globalOpts.Verbose, "verbose", "v", "print more information")

	cmd.AddCommand(applyCmd())
	cmd.AddCommand(lsCmd())
	cmd.AddCommand(catCmd())
	cmd.AddCommand(statCmd())
	cmd.AddCommand(treeCmd())
	cmd.AddCommand(shCmd())
	cmd.AddCommand(version.Version())

	return cmd
}

// buildFS constructs the file system described by the global flags: an
// empty root, the manifest file set, then any host mounts.
func buildFS() (*vfs.FS, error) {
	fsys, err := vfs.New(vfs.WithTime(globalOpts.Time))
	if err != nil {
		return nil, err
	}
	if err := fsys.Mkdir("/"); err != nil {
		return nil, err
	}
	if globalOpts.Manifest != "" {
		data, err := os.ReadFile(globalOpts.Manifest)
		if err != nil {
			return nil, err
		}
		files, err := vfs.ParseManifest(data, vfs.OSResolver{})
		if err != nil {
			return nil, err
		}
		if err := fsys.Apply(files); err != nil {
			return nil, err
		}
	}
	for _, mount := range globalOpts.Mounts {
		source, target, ok := strings.Cut(mount, ":")
		if !ok {
			slog.Warn("ignoring malformed mount, want HOSTDIR:TARGET", "mount", mount)
			continue
		}
		if err := fsys.Mount(source, target, vfs.OSResolver{}); err != nil {
			return nil, err
		}
	}
	return fsys, nil
}
