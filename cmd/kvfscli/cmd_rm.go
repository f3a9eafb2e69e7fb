package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hviana/kvfs"
)

func newRmCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "rm path",
		Short:             "Delete a file",
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(cmd.Context(), args)
		},
	}
	return cmd
}

func runRm(ctx context.Context, args []string) error {
	path := strings.Split(args[0], "/")
	status := sharedEngine.Delete(ctx, kvfs.DeleteOptions{Path: path, ClientID: clientID()})
	if status.Status != "" {
		return fmt.Errorf("%s: %s", status.Status, status.Msg)
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func newRmdirCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "rmdir path",
		Short:             "Delete every file under a directory prefix",
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRmdir(cmd.Context(), args)
		},
	}
	return cmd
}

func runRmdir(ctx context.Context, args []string) error {
	path := strings.Split(args[0], "/")
	statuses := sharedEngine.DeleteDir(ctx, kvfs.DeleteDirOptions{Path: path, ClientID: clientID()})

	failed := 0
	for _, s := range statuses {
		if s.Status != "" {
			failed++
			fmt.Printf("error: %s: %s\n", s.URIComponent, s.Msg)
		}
	}
	fmt.Printf("deleted %d files, %d errors\n", len(statuses)-failed, failed)
	return nil
}
