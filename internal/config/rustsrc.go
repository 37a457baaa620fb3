package config

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// sysrootLayouts are the standard library source locations below a
// toolchain sysroot, newest layout first.
var sysrootLayouts = []string{
	filepath.Join("lib", "rustlib", "src", "rust", "library"),
	filepath.Join("lib", "rustlib", "src", "rust", "src"),
}

// ResolveRustSrc returns the standard library source directory: the
// configured path, else the one belonging to the rustc on PATH, else "".
func ResolveRustSrc(ctx context.Context, cfg *Config) string {
	if cfg.RustSrcPath != "" {
		return cfg.RustSrcPath
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "rustc", "--print", "sysroot").Output()
	if err != nil {
		log.Debug().Err(err).Msg("cannot ask rustc for its sysroot")
		return ""
	}
	return rustSrcUnder(strings.TrimSpace(string(out)))
}

func rustSrcUnder(sysroot string) string {
	for _, layout := range sysrootLayouts {
		dir := filepath.Join(sysroot, layout)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	log.Debug().Str("sysroot", sysroot).Msg("toolchain has no rust-src component")
	return ""
}
