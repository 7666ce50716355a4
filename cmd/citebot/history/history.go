package historycmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/citebot/cmd/citebot/setup"
	"github.com/papercomputeco/citebot/pkg/conversation"
)

const historyLongDesc string = `Print stored conversation transcripts.

Without arguments every conversation key is listed. With a key the
transcript is printed turn by turn, oldest first.

Examples:
  citebot history
  citebot history 19:meeting_abc@thread.v2
  citebot history --json --db /tmp/citebot.db K`

const historyShortDesc string = "Print stored transcripts"

type historyCommander struct {
	backend string
	path    string
	json    bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [key]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			}
			return cmder.run(cmd.Context(), cmd, key)
		},
	}

	cmd.Flags().StringVar(&cmder.backend, "backend", "", "Storage backend: sqlite, bolt or firestore")
	cmd.Flags().StringVar(&cmder.path, "db", "", "Path to the sqlite or bolt database")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print the transcript as JSON")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, cmd *cobra.Command, key string) error {
	cfg, _, log, err := setup.Load(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if c.backend != "" {
		cfg.Storage.Backend = c.backend
	}
	if c.path != "" {
		cfg.Storage.Path = c.path
	}

	store, err := setup.OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if key == "" {
		keys, err := store.Keys(ctx)
		if err != nil {
			return fmt.Errorf("could not list conversations: %w", err)
		}
		if len(keys) == 0 {
			fmt.Fprintln(out, "No conversations stored.")
			return nil
		}
		for _, k := range keys {
			fmt.Fprintln(out, k)
		}
		return nil
	}

	data, err := store.Get(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("could not load conversation %s: %w", key, err)
	}
	if data == nil {
		return fmt.Errorf("conversation %s not found", key)
	}

	if c.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data.ToMessages())
	}

	printTranscript(cmd, data)
	return nil
}

func printTranscript(cmd *cobra.Command, data *conversation.Data) {
	out := cmd.OutOrStdout()
	for i, t := range data.Turns {
		fmt.Fprintf(out, "%3d  %-9s  %s\n", i+1, t.Role, t.Content)
	}
}
