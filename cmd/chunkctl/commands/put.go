package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var putFolder string

var putCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Store a file as one chunk",
	Long:  `Reads the whole file and stores it as a new chunk under --folder. The chunk id is generated; the logical path is printed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		p, err := CS.Put(cmd.Context(), content, putFolder)
		if err != nil {
			return fmt.Errorf("put %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Stored %s (%d bytes)\n", p, len(content))
		return nil
	},
}

func init() {
	putCmd.Flags().StringVarP(&putFolder, "folder", "f", "", "destination folder (default \"/\")")
	rootCmd.AddCommand(putCmd)
}
