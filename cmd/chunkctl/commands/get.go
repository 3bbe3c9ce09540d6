package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var getOutput string

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Fetch a chunk by its logical path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, rc, err := CS.Get(cmd.Context(), args[0])
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("chunk %s does not exist", args[0])
			}
			return err
		}
		defer rc.Close()

		// 默认写到 stdout，方便管道
		if getOutput == "" {
			_, err := io.Copy(cmd.OutOrStdout(), rc)
			return err
		}

		f, err := os.Create(getOutput)
		if err != nil {
			return err
		}
		n, err := io.Copy(f, rc)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		if n != size {
			return fmt.Errorf("short read: got %d of %d bytes", n, size)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✅ Wrote %s (%d bytes)\n", getOutput, n)
		return nil
	},
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(getCmd)
}
