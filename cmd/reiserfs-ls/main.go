// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Command reiserfs-ls lists or stats a single path inside a ReiserFS
// image without mounting it, for inspection and debugging.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"lukeshu.com/reiserfs-progs-ng/internal/reiserfs"
	"lukeshu.com/reiserfs-progs-ng/lib/textui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "reiserfs-ls: error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var debug bool

	cmd := &cobra.Command{
		Use:   "reiserfs-ls DEVICE [PATH]",
		Short: "List or stat a path inside a ReiserFS image, without mounting it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			vol, err := reiserfs.Mount(ctx, args[0], nil)
			if err != nil {
				return err
			}

			path := "/"
			if len(args) == 2 {
				path = args[1]
			}

			node, err := resolvePath(ctx, vol, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			if debug {
				spew.Fdump(os.Stdout, node.Stat)
			}

			printStat(os.Stdout, path, node)
			if node.IsDir() {
				return listDir(ctx, vol, node, debug)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "dump decoded stat data with github.com/davecgh/go-spew")
	cmd.SetArgs(os.Args[1:])

	return cmd.Execute()
}

// resolvePath walks path's components from vol's root, same as a
// mounted driver's repeated lookup calls would, without ever
// synthesizing "." or "..": reiserfs-ls is a read-only inspection
// tool and has no notion of a current or parent working directory.
func resolvePath(ctx context.Context, vol *reiserfs.Volume, path string) (reiserfs.VNode, error) {
	node := vol.RootVNode()
	for _, component := range strings.Split(strings.Trim(path, "/"), "/") {
		if component == "" {
			continue
		}
		var err error
		node, err = vol.FindDirEntry(ctx, node, component)
		if err != nil {
			return reiserfs.VNode{}, err
		}
	}
	return node, nil
}

func kindOf(node reiserfs.VNode) string {
	switch {
	case node.IsDir():
		return "dir"
	case node.IsFile():
		return "file"
	case node.IsSymlink():
		return "symlink"
	default:
		return "esoteric"
	}
}

func printStat(w io.Writer, name string, node reiserfs.VNode) {
	textui.Fprintf(w, "%s\t%s\tmode=%#o\tuid=%d\tgid=%d\tsize=%d\tnlink=%d\n",
		name, kindOf(node), node.Stat.Mode(), node.Stat.UID(), node.Stat.GID(),
		node.Stat.Size(), node.Stat.NLink())
}

func listDir(ctx context.Context, vol *reiserfs.Volume, dir reiserfs.VNode, debug bool) error {
	dit := reiserfs.NewDirEntryIterator(vol.Tree(), dir.ID.DirID(), dir.ID.ObjectID(), 0, false)
	defer dit.Close(ctx)

	for {
		item, idx, err := dit.GetNext(ctx)
		if err != nil {
			return nil
		}
		head, err := item.EntryHeadAt(idx)
		if err != nil {
			continue
		}
		name, err := item.EntryNameAt(idx)
		if err != nil || len(name) == 0 {
			continue
		}
		if debug {
			spew.Fdump(os.Stdout, head)
		}
		child, err := vol.FindVNode(ctx, head.DirID, head.ObjectID)
		if err != nil {
			textui.Fprintf(os.Stdout, "  %s\terror=%v\n", name, err)
			continue
		}
		textui.Fprintf(os.Stdout, "  %s\t%s\tino=%d:%d\n", name, kindOf(child), head.DirID, head.ObjectID)
	}
}
