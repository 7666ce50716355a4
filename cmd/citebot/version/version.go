package versioncmder

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X .../versioncmder.Version=v1.2.3".
var (
	Version = "dev"
	Commit  = "none"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the citebot version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "citebot %s (commit %s, %s)\n", Version, Commit, runtime.Version())
		},
	}
}
