package commands

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"chunkstore/pkg/ignore"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	pushFolder string
	pushJobs   int
)

var pushCmd = &cobra.Command{
	Use:   "push <file|dir>",
	Short: "Store a file, or every file under a directory, as chunks",
	Long:  `Each file becomes one chunk. For a directory, files matched by .chunkignore (plus built-in defaults) are skipped and the relative directory layout is kept under --folder. Usually combined with --remote.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		info, err := os.Stat(target)
		if err != nil {
			return err
		}

		// 模式 A: 单文件
		if !info.IsDir() {
			return pushFile(cmd.Context(), target, pushFolder)
		}

		// 模式 B: 目录
		return pushDir(cmd.Context(), target)
	},
}

func pushFile(ctx context.Context, file, folder string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	p, err := CS.Put(ctx, content, folder)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s -> %s\n", file, p)
	return nil
}

func pushDir(ctx context.Context, root string) error {
	matcher, err := ignore.NewMatcher(root)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", ignore.FileName, err)
	}

	var files []string
	if err := matcher.Walk(root, func(rel string) error {
		files = append(files, rel)
		return nil
	}); err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("Nothing to push.")
		return nil
	}
	fmt.Printf("📦 Pushing %d files...\n", len(files))

	var (
		mu       sync.Mutex
		failures int
	)
	jobs := pushJobs
	if jobs < 1 {
		jobs = 1
	}
	var g errgroup.Group
	g.SetLimit(jobs)
	for _, rel := range files {
		rel := rel
		g.Go(func() error {
			folder := path.Join("/", pushFolder, path.Dir(rel))
			if err := pushFile(ctx, filepath.Join(root, filepath.FromSlash(rel)), folder); err != nil {
				fmt.Printf("❌ %s: %v\n", rel, err)
				mu.Lock()
				failures++
				mu.Unlock()
			}
			// 单个文件失败不取消其他上传
			return nil
		})
	}
	_ = g.Wait()

	fmt.Printf("\nSummary: %d succeeded, %d failed.\n", len(files)-failures, failures)
	if failures > 0 {
		return fmt.Errorf("some files failed to upload")
	}
	return nil
}

func init() {
	pushCmd.Flags().StringVarP(&pushFolder, "folder", "f", "", "destination folder (default \"/\")")
	pushCmd.Flags().IntVarP(&pushJobs, "jobs", "j", 8, "number of concurrent uploads")
	rootCmd.AddCommand(pushCmd)
}
