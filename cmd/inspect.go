package cmd

import (
	"fmt"

	"github.com/agentic-research/trisort/internal/store"
	"github.com/spf13/cobra"
)

var inspectLevel int

var inspectCmd = &cobra.Command{
	Use:   "inspect [index.db]",
	Short: "List the nodes of a stored index, parents first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, meta, err := store.Load(args[0])
		if err != nil {
			return err
		}

		lo, hi := 0, tree.Levels()
		if cmd.Flags().Changed("level") {
			lo, hi = inspectLevel, inspectLevel
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "levels=%d bucket_level=%d nodes=%d\n", meta.Levels, meta.BucketLevel, tree.Len())
		for n := range tree.IterDepthFirst(lo, hi) {
			fmt.Fprintf(out, "%s refs=%d\n", n.Address, len(n.TriIDs))
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLevel, "level", 0, "Only list nodes at this level")
	rootCmd.AddCommand(inspectCmd)
}
