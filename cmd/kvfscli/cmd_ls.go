package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hviana/kvfs"
)

func newLsCommand() *cobra.Command {
	var opts LsOptions

	cmd := &cobra.Command{
		Use:               "ls [path]",
		Short:             "List files under a directory prefix",
		Args:              cobra.MaximumNArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(cmd.Context(), opts, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// LsOptions collects the ls command's flags.
type LsOptions struct {
	Rate int
}

func (opts *LsOptions) AddFlags(f *pflag.FlagSet) {
	f.IntVar(&opts.Rate, "rate", 0, "directory entries per second (0 = unbounded)")
}

func runLs(ctx context.Context, opts LsOptions, args []string) error {
	var path []string
	if len(args) == 1 && args[0] != "" {
		path = strings.Split(args[0], "/")
	}

	list, status := sharedEngine.ReadDir(ctx, kvfs.ReadDirOptions{
		Path:                   path,
		MaxDirEntriesPerSecond: opts.Rate,
		ClientID:               clientID(),
	})
	if status.Status != "" {
		return fmt.Errorf("%s: %s", status.Status, status.Msg)
	}

	for _, entry := range list.Entries {
		switch {
		case entry.Record != nil:
			if entry.Reader != nil {
				entry.Reader.Close()
			}
			fmt.Printf("%-40s %10d bytes\n", entry.Record.URIComponent, entry.Record.Size)
		default:
			fmt.Printf("%-40s %s\n", entry.Status.URIComponent, entry.Status.Status)
		}
	}
	fmt.Printf("total %d bytes\n", list.Size)
	return nil
}
