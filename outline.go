package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/phobologic/rustguide/internal/ast"
	"github.com/phobologic/rustguide/internal/discover"
	"github.com/phobologic/rustguide/internal/toon"
)

const defaultMaxFileSize = 1_000_000 // 1 MB

func (a *app) outlineCmd() *cobra.Command {
	var (
		maxFileSize int
		skipTests   bool
	)
	cmd := &cobra.Command{
		Use:   "outline [DIR]",
		Short: "List the items declared in every Rust file of a workspace",
		Long: `Outline discovers the .rs files under DIR (default: the current directory)
and lists their top-level items, descending into inline modules. Inside a git
work tree only files git knows about are included; elsewhere .gitignore is
honoured. target/ directories are always skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			out, err := outline(root, maxFileSize, skipTests, a.log)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.stdout, out)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxFileSize, "max-file-size", defaultMaxFileSize, "skip files larger than this many bytes")
	cmd.Flags().BoolVar(&skipTests, "skip-tests", false, "leave out tests, benches and examples")
	return cmd
}

func outline(root string, maxFileSize int, skipTests bool, logger zerolog.Logger) (string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", root)
	}

	files, err := discover.Files(root)
	if err != nil {
		return "", fmt.Errorf("discovering files: %w", err)
	}
	if skipTests {
		files = withoutTests(files)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no Rust files found under %s", root)
	}

	files = filterBySize(root, files, maxFileSize, logger)
	if len(files) == 0 {
		return "", fmt.Errorf("no Rust files found (all exceeded size limit)")
	}

	return toon.Outline(filepath.Base(root), parseFilesConcurrent(root, files, logger)), nil
}

func withoutTests(files []discover.FileEntry) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		if !f.Test {
			kept = append(kept, f)
		}
	}
	return kept
}

func filterBySize(root string, files []discover.FileEntry, maxSize int, logger zerolog.Logger) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if maxSize > 0 && fi.Size() > int64(maxSize) {
			logger.Warn().Str("file", f.Path).Int("limit", maxSize).Msg("skipped: too large")
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// parseFilesConcurrent outlines files on a worker pool and returns the
// results in input order. Files that cannot be read are dropped.
func parseFilesConcurrent(root string, files []discover.FileEntry, logger zerolog.Logger) []toon.OutlineFile {
	type result struct {
		index int
		file  toon.OutlineFile
	}

	numWorkers := min(runtime.GOMAXPROCS(0), len(files))

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				f := files[idx]
				source, err := os.ReadFile(filepath.Join(root, f.Path))
				if err != nil {
					logger.Warn().Err(err).Str("file", f.Path).Msg("failed to read")
					continue
				}
				results <- result{
					index: idx,
					file: toon.OutlineFile{
						Path:  filepath.ToSlash(f.Path),
						Test:  f.Test,
						Items: ast.ParseItems(source),
					},
				}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]toon.OutlineFile, len(files))
	valid := make([]bool, len(files))
	for r := range results {
		indexed[r.index] = r.file
		valid[r.index] = true
	}

	var out []toon.OutlineFile
	for i, v := range valid {
		if v {
			out = append(out, indexed[i])
		}
	}
	return out
}
