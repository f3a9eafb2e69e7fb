// Command kvfscli drives a kvfs.Engine from the shell, backed by an
// in-memory substrate. It exists to exercise the engine end to end and as
// a worked example of wiring one up.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hviana/kvfs/internal/debug"
	"github.com/hviana/kvfs/internal/errors"
)

var globalOptions = struct {
	ClientID string
}{}

var cmdRoot = &cobra.Command{
	Use:               "kvfscli",
	Short:             "Inspect and exercise a kvfs store",
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

func init() {
	cmdRoot.PersistentFlags().StringVar(&globalOptions.ClientID, "client-id", "", "client id for concurrency accounting (default: a random id)")
	cmdRoot.AddCommand(
		newSaveCommand(),
		newReadCommand(),
		newLsCommand(),
		newRmCommand(),
		newRmdirCommand(),
		newMetaCommand(),
	)
}

func clientID() string {
	if globalOptions.ClientID != "" {
		return globalOptions.ClientID
	}
	return uuid.NewString()
}

func main() {
	debug.Log("kvfscli %#v", os.Args)

	err := cmdRoot.Execute()
	if err == nil {
		return
	}

	if errors.IsFatal(err) {
		fmt.Fprintln(os.Stderr, err.Error())
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}
