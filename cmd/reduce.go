package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/trisort/internal/octree"
	"github.com/agentic-research/trisort/internal/store"
	"github.com/agentic-research/trisort/internal/trisort"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/spf13/cobra"
)

var reduceCmd = &cobra.Command{
	Use:   "reduce [index.db] [shard]...",
	Short: "Merge shard files, in argument order, into one stored index",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		m, err := trisort.NewMerger(cfg)
		if err != nil {
			return err
		}

		for _, path := range args[1:] {
			tree, err := readShard(path)
			if err != nil {
				return err
			}
			if err := m.Add(tree); err != nil {
				return errors.New("merge shard").WithTag("path", path).Wrap(err)
			}
			logs.WithTag("shard", path).
				WithTag("buckets", tree.CountAt(cfg.BucketLevel)).
				Info("shard merged")
		}
		tree, err := m.Finish()
		if err != nil {
			return err
		}
		if err := store.Save(args[0], tree, cfg.BucketLevel); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %d shards into %d buckets (%d nodes).\n",
			m.Added(), tree.CountAt(cfg.BucketLevel), tree.Len())
		return nil
	},
}

func readShard(path string) (*octree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, shardErr("open shard", path, err)
	}
	defer func() { _ = f.Close() }() // safe to ignore
	tree, err := octree.ReadTree(f)
	if err != nil {
		// Keeps the codec type of the decode failure.
		return nil, errors.New("read shard").WithTag("path", path).Wrap(err)
	}
	return tree, nil
}

func init() {
	rootCmd.AddCommand(reduceCmd)
}
