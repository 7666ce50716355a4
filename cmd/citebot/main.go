package main

import (
	"os"

	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/citebot/cmd/citebot/chat"
	historycmder "github.com/papercomputeco/citebot/cmd/citebot/history"
	mergecmder "github.com/papercomputeco/citebot/cmd/citebot/merge"
	servecmder "github.com/papercomputeco/citebot/cmd/citebot/serve"
	"github.com/papercomputeco/citebot/cmd/citebot/setup"
	versioncmder "github.com/papercomputeco/citebot/cmd/citebot/version"
)

const rootLongDesc string = `citebot answers chat messages with a hosted chat completion model,
optionally grounded on an Azure AI Search index, and rewrites the
document citations in its replies.

Settings are read from a TOML file (--config) and from the
LLM_INSTRUCTIONS, AZURE_OPENAI_* and AZURE_SEARCH_* environment
variables, which take precedence.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "citebot",
		Short:         "A chat completion bot with citations",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setup.AddPersistentFlags(cmd)

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(mergecmder.NewMergeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
