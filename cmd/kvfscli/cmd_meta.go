package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMetaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "meta",
		Short:             "Get or set a file's metadata",
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(newMetaGetCommand(), newMetaSetCommand())
	return cmd
}

func newMetaGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "get path",
		Short:             "Print a file's metadata as JSON",
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetaGet(cmd.Context(), args)
		},
	}
}

func runMetaGet(ctx context.Context, args []string) error {
	path := strings.Split(args[0], "/")
	meta, err := sharedEngine.GetMetadata(ctx, path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func newMetaSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "set path json",
		Short:             "Replace a file's metadata",
		Args:              cobra.ExactArgs(2),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetaSet(cmd.Context(), args)
		},
	}
}

func runMetaSet(ctx context.Context, args []string) error {
	path := strings.Split(args[0], "/")
	var meta map[string]any
	if err := json.Unmarshal([]byte(args[1]), &meta); err != nil {
		return err
	}
	return sharedEngine.SetMetadata(ctx, path, meta)
}
