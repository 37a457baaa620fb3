package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/rustguide/internal/config"
)

const (
	sentinelStart = "# rustguide:start"
	sentinelEnd   = "# rustguide:end"

	defaultConfigPath = ".rustguide.yaml"
)

func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration block to a config file",
		Long: `Init writes rustguide's default settings to a YAML config file. The block is
wrapped in sentinel comments so it can be updated in place on later runs
without touching surrounding content. Creates the file if it does not exist.

path defaults to ./.rustguide.yaml. Keys set outside the block must not repeat
keys inside it.`,
		Args: cobra.MaximumNArgs(1),
		// init must work even when the existing config does not load.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, dryRun, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// runInit writes (or updates) the sentinel-delimited settings block in the
// config file at path.
func runInit(path string, dryRun bool, stdout, stderr io.Writer) error {
	section := generateSection(config.Default())

	// --dry-run with no path: just print the section itself.
	if dryRun && path == "" {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	if path == "" {
		path = defaultConfigPath
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote rustguide settings to %s\n", path)
	return nil
}

// generateSection returns the sentinel-wrapped settings block for cfg.
// Machine-specific paths are left commented out so they are discovered at
// run time.
func generateSection(cfg *config.Config) string {
	body := fmt.Sprintf(`# Managed by "rustguide init". Edits between the markers are replaced on the
# next run; put overrides outside them.
#
# Standard library sources. Empty asks rustc for its sysroot.
# Also read from RUSTGUIDE_RUST_SRC_PATH or RUST_SRC_PATH.
# rust_src_path: ~/.rustup/toolchains/stable-x86_64-unknown-linux-gnu/lib/rustlib/src/rust/library
#
# Cargo home holding registry sources. Also read from CARGO_HOME.
# cargo_home: ~/.cargo

# trace, debug, info, warn, error, fatal, panic or disabled
log_level: %s

cache:
  # Upper bound on the size of cached source files.
  capacity_bytes: %d
  # Drop cached files when they change on disk (daemon mode).
  watch: %t

output:
  # Maximum number of completions printed. 0 prints all.
  max_results: %d`,
		cfg.LogLevel, cfg.Cache.CapacityBytes, cfg.Cache.Watch, cfg.Output.MaxResults)

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if len(content) == 0 {
		return section + "\n"
	}
	return content + "\n" + section + "\n"
}
