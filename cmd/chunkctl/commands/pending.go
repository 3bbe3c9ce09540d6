package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List delete batches waiting to be resumed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		batches, err := CS.Pending(cmd.Context())
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Fprintln(out, "Nothing pending.")
			return nil
		}

		for _, b := range batches {
			fmt.Fprintf(out, "batch %s (attempts: %d, remaining: %d)\n", b.ID, b.Attempts, len(b.Paths))
			if b.LastError != "" {
				fmt.Fprintf(out, "  last error: %s\n", b.LastError)
			}
			for _, p := range b.Paths {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <batch-id>",
	Short: "Retry a journaled delete batch from where it stopped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deleted, err := CS.Resume(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "❌ Stopped again after %d deletions: %v\n", deleted, err)
			return fmt.Errorf("delete batch %s still incomplete", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Batch %s finished, %d chunks deleted.\n", args[0], deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(resumeCmd)
}
