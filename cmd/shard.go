package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/trisort/internal/meshio"
	"github.com/agentic-research/trisort/internal/octree"
	"github.com/agentic-research/trisort/internal/trisort"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/spf13/cobra"
)

// ErrTypeShardFile marks failures opening or writing a shard file.
const ErrTypeShardFile = "shard-file"

var (
	shardStart int
	shardCount int
)

// shardCmd builds one partial tree so shards can run as separate processes
// and be combined later with reduce.
var shardCmd = &cobra.Command{
	Use:   "shard [mesh.json] [out.shard]",
	Short: "Build the partial index for one contiguous range of triangles",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		mesh, err := meshio.Load(args[0], cfg.Selectors())
		if err != nil {
			return err
		}

		count := shardCount
		if count < 0 {
			count = len(mesh.Triangles) - shardStart
		}
		tree, err := trisort.BuildShard(cfg, mesh, shardStart, count)
		if err != nil {
			return err
		}
		if err := writeShard(args[1], tree); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote shard [%d, %d) with %d buckets to %s.\n",
			shardStart, shardStart+count, tree.CountAt(cfg.BucketLevel), args[1])
		return nil
	},
}

func writeShard(path string, tree *octree.Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return shardErr("create shard file", path, err)
	}
	if _, err := tree.WriteTo(f); err != nil {
		_ = f.Close()
		return shardErr("write shard", path, err)
	}
	if err := f.Close(); err != nil {
		return shardErr("close shard", path, err)
	}
	return nil
}

func shardErr(msg, path string, err error) error {
	return errors.New(msg).
		WithType(ErrTypeShardFile).
		WithTag("path", path).
		Wrap(err)
}

func init() {
	shardCmd.Flags().IntVar(&shardStart, "start", 0, "First global triangle index of the shard")
	shardCmd.Flags().IntVar(&shardCount, "count", -1, "Number of triangles in the shard (-1 for the rest of the mesh)")
	rootCmd.AddCommand(shardCmd)
}
