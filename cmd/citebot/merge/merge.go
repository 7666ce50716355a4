package mergecmder

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/citebot/cmd/citebot/setup"
	"github.com/papercomputeco/citebot/pkg/config"
	"github.com/papercomputeco/citebot/pkg/storage"
)

const mergeLongDesc string = `Merge one or more source transcript databases into a target.

Content-addressing makes node merging a simple union: turns that
already exist in the target are skipped (deduped by hash).

Conversation heads are copied when the target does not know the
conversation, or fast-forwarded when the target's head is an ancestor
of the source's. Diverged conversations keep the target's head and are
reported.

Examples:
  citebot merge source1.db source2.db
  citebot merge --db /tmp/merged.db ~/alice/citebot.db ~/bob/citebot.db
  citebot merge --backend bolt a.bolt b.bolt`

const mergeShortDesc string = "Merge transcript databases"

type mergeCommander struct {
	backend string
	path    string
}

type mergeStats struct {
	newNodes   int
	dupedNodes int
	heads      int
	diverged   []string
}

func NewMergeCmd() *cobra.Command {
	cmder := &mergeCommander{}

	cmd := &cobra.Command{
		Use:   "merge [sources...]",
		Short: mergeShortDesc,
		Long:  mergeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVar(&cmder.backend, "backend", config.BackendSQLite, "Database format: sqlite or bolt")
	cmd.Flags().StringVar(&cmder.path, "db", "", "Path to target database")

	return cmd
}

func (c *mergeCommander) run(ctx context.Context, cmd *cobra.Command, sources []string) error {
	if c.backend != config.BackendSQLite && c.backend != config.BackendBolt {
		return fmt.Errorf("merge supports sqlite and bolt databases, not %q", c.backend)
	}

	targetPath, err := setup.ResolveDBPath(c.path, c.backend)
	if err != nil {
		return fmt.Errorf("could not resolve target database: %w", err)
	}

	target, err := setup.OpenDriver(ctx, config.StorageConfig{Backend: c.backend, Path: targetPath})
	if err != nil {
		return fmt.Errorf("could not open target database %s: %w", targetPath, err)
	}
	defer target.Close()

	var total mergeStats

	for _, srcPath := range sources {
		source, err := setup.OpenDriver(ctx, config.StorageConfig{Backend: c.backend, Path: srcPath})
		if err != nil {
			return fmt.Errorf("could not open source database %s: %w", srcPath, err)
		}

		stats, err := merge(ctx, source, target)
		source.Close()
		if err != nil {
			return fmt.Errorf("could not merge %s: %w", srcPath, err)
		}

		total.newNodes += stats.newNodes
		total.dupedNodes += stats.dupedNodes
		total.heads += stats.heads
		total.diverged = append(total.diverged, stats.diverged...)

		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d new, %d already existed, %d heads updated\n",
			srcPath, stats.newNodes, stats.dupedNodes, stats.heads)
	}

	for _, key := range total.diverged {
		fmt.Fprintf(cmd.OutOrStdout(), "  diverged: %s (kept target head)\n", key)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d new nodes from %d sources (%d already existed) into %s\n",
		total.newNodes, len(sources), total.dupedNodes, targetPath)

	return nil
}

// merge copies every node of source into target, then reconciles heads.
func merge(ctx context.Context, source, target storage.Driver) (*mergeStats, error) {
	stats := &mergeStats{}

	nodes, err := source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list nodes: %w", err)
	}

	for _, n := range nodes {
		isNew, err := target.Put(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("could not put node %s: %w", n.Hash, err)
		}
		if isNew {
			stats.newNodes++
		} else {
			stats.dupedNodes++
		}
	}

	heads, err := source.Heads(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list heads: %w", err)
	}

	keys := make([]string, 0, len(heads))
	for key := range heads {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		srcHead := heads[key]
		tgtHead, err := target.Head(ctx, key)
		var noHead storage.ErrNoHead
		switch {
		case errors.As(err, &noHead):
		case err != nil:
			return nil, fmt.Errorf("could not read head for %s: %w", key, err)
		case tgtHead == srcHead:
			continue
		default:
			ahead, err := descends(ctx, target, srcHead, tgtHead)
			if err != nil {
				return nil, err
			}
			if !ahead {
				stats.diverged = append(stats.diverged, key)
				continue
			}
		}

		if err := target.SetHead(ctx, key, srcHead); err != nil {
			return nil, fmt.Errorf("could not set head for %s: %w", key, err)
		}
		stats.heads++
	}

	return stats, nil
}

// descends reports whether ancestor is on the path from hash to its root.
func descends(ctx context.Context, d storage.Driver, hash, ancestor string) (bool, error) {
	path, err := d.Ancestry(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("could not walk ancestry of %s: %w", hash, err)
	}
	for _, n := range path {
		if n.Hash == ancestor {
			return true, nil
		}
	}
	return false, nil
}
