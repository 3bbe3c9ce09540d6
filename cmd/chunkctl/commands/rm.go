package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <paths...>",
	Short: "Delete chunks in order, stopping at the first failure",
	Long:  `Deletes the given chunks one by one. Chunks deleted before a failure stay deleted. The failed path and everything after it are journaled; run 'chunkctl resume <batch-id>' once the cause is fixed.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		deleted, batchID, err := CS.Delete(cmd.Context(), args)
		if err != nil {
			fmt.Fprintf(out, "❌ Stopped after %d of %d deletions: %v\n", deleted, len(args), err)
			if batchID != "" {
				fmt.Fprintf(out, "👉 Resume with: chunkctl resume %s\n", batchID)
			}
			return fmt.Errorf("delete batch incomplete")
		}

		fmt.Fprintf(out, "✅ Deleted %d chunks.\n", deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
