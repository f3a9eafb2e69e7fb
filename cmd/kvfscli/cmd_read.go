package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hviana/kvfs"
)

func newReadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "read path",
		Short:             "Read a file's content to stdout",
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd.Context(), args)
		},
	}
	return cmd
}

func runRead(ctx context.Context, args []string) error {
	path := strings.Split(args[0], "/")

	rec, reader, status := sharedEngine.Read(ctx, kvfs.ReadOptions{Path: path, ClientID: clientID()})
	if status.Status != "" {
		return fmt.Errorf("%s: %s", status.Status, status.Msg)
	}
	if rec == nil {
		return fmt.Errorf("no such file: %s", args[0])
	}
	defer reader.Close()

	_, err := io.Copy(os.Stdout, reader)
	return err
}
