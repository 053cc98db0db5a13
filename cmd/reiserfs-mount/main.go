// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Command reiserfs-mount mounts a ReiserFS v3.5/v3.6 device read-only
// at a mountpoint, via FUSE.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs"
	"lukeshu.com/reiserfs-progs-ng/internal/reiserfsmount"
	"lukeshu.com/reiserfs-progs-ng/lib/textui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "reiserfs-mount: error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var logLevel textui.LogLevelFlag
	logLevel.Set("info") //nolint:errcheck // a hard-coded level string always parses

	var settingsPath string

	cmd := &cobra.Command{
		Use:   "reiserfs-mount DEVICE MOUNTPOINT",
		Short: "Mount a ReiserFS device read-only",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			ctx = dlog.WithLogger(ctx, textui.NewLogger(os.Stderr, logLevel.Level))

			var settingsFile io.Reader
			if settingsPath != "" {
				f, err := os.Open(settingsPath)
				if err != nil {
					return err
				}
				defer f.Close()
				settingsFile = f
			}

			vol, err := reiserfs.Mount(ctx, args[0], settingsFile)
			if err != nil {
				return err
			}

			return reiserfsmount.MountRO(ctx, vol, args[1])
		},
	}
	cmd.Flags().Var(&logLevel, "log-level", "one of error, warn, info, debug, trace")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "path to a reiserfs driver-settings file")
	cmd.SetArgs(os.Args[1:])

	return cmd.Execute()
}
