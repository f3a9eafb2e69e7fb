package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hviana/kvfs"
)

func newSaveCommand() *cobra.Command {
	var opts SaveOptions

	cmd := &cobra.Command{
		Use:   "save path content",
		Short: "Save content at path",
		Long: `
The "save" command writes content to path, chunking it the way the engine
would for any other caller. path is a slash-separated sequence of
segments; content is read from --file if given, else taken from the
second positional argument.
`,
		Args:              cobra.RangeArgs(1, 2),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd.Context(), opts, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// SaveOptions collects the save command's flags.
type SaveOptions struct {
	File              string
	Metadata          string
	ChunksPerSecond   int
	MaxFileSizeBytes  int64
	MaxConcurrentReqs int
	AllowedExtensions string
}

func (opts *SaveOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&opts.File, "file", "", "read content from this file instead of the second argument")
	f.StringVar(&opts.Metadata, "metadata", "", "metadata as a JSON object")
	f.IntVar(&opts.ChunksPerSecond, "rate", 0, "chunks per second (0 = unbounded)")
	f.Int64Var(&opts.MaxFileSizeBytes, "max-size", 0, "maximum file size in bytes (0 = unbounded)")
	f.IntVar(&opts.MaxConcurrentReqs, "max-concurrent", 0, "per-client concurrency cap (0 = unbounded)")
	f.StringVar(&opts.AllowedExtensions, "ext", "", "comma-separated list of allowed extensions")
}

func runSave(ctx context.Context, opts SaveOptions, args []string) error {
	path := strings.Split(args[0], "/")

	var content kvfs.Content
	switch {
	case opts.File != "":
		f, err := os.Open(opts.File)
		if err != nil {
			return err
		}
		defer f.Close()
		content = kvfs.StreamContent{Reader: f}
	case len(args) == 2:
		content = kvfs.StringContent(args[1])
	default:
		content = kvfs.StreamContent{Reader: os.Stdin}
	}

	var metadata map[string]any
	if opts.Metadata != "" {
		if err := json.Unmarshal([]byte(opts.Metadata), &metadata); err != nil {
			return err
		}
	}

	var extensions []string
	if opts.AllowedExtensions != "" {
		extensions = strings.Split(opts.AllowedExtensions, ",")
	}

	rec, status := sharedEngine.Save(ctx, kvfs.SaveOptions{
		Path:                    path,
		Content:                 content,
		Metadata:                metadata,
		ChunksPerSecond:         opts.ChunksPerSecond,
		ClientID:                clientID(),
		MaxClientConcurrentReqs: opts.MaxConcurrentReqs,
		MaxFileSizeBytes:        opts.MaxFileSizeBytes,
		AllowedExtensions:       extensions,
	})
	if status.Status != "" {
		return fmt.Errorf("%s: %s", status.Status, status.Msg)
	}

	fmt.Printf("saved %s (%d bytes)\n", rec.URIComponent, rec.Size)
	return nil
}
