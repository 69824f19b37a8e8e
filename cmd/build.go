package cmd

import (
	"fmt"
	"time"

	"github.com/agentic-research/trisort/internal/meshio"
	"github.com/agentic-research/trisort/internal/store"
	"github.com/agentic-research/trisort/internal/trisort"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [mesh.json] [index.db]",
	Short: "Build a triangle index from a JSON mesh and store it in SQLite",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.ValidateParallel(); err != nil {
			return err
		}

		mesh, err := meshio.Load(args[0], cfg.Selectors())
		if err != nil {
			return err
		}

		start := time.Now()
		tree, err := trisort.BuildParallel(cmd.Context(), cfg, mesh)
		if err != nil {
			return err
		}
		if err := store.Save(args[1], tree, cfg.BucketLevel); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Sorted %d triangles into %d buckets (%d nodes) with %d workers in %v.\n",
			len(mesh.Triangles), tree.CountAt(cfg.BucketLevel), tree.Len(), cfg.Workers, time.Since(start))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
