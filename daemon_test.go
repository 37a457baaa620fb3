package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runDaemon(t *testing.T, input string, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)
	require.NoError(t, root.Execute(), stderr.String())
	return stdout.String()
}

// answers splits daemon output into the blocks terminated by END lines.
func answers(out string) []string {
	blocks := strings.Split(out, endMarker+"\n")
	return blocks[:len(blocks)-1]
}

func TestDaemonAnswersEachLine(t *testing.T) {
	dir, cfg := createSampleCrate(t)
	lib := filepath.Join(dir, "src", "lib.rs")

	input := strings.Join([]string{
		"complete " + lib + " 9 6",
		"",
		"definition " + lib + " 8 14",
		"bogus",
		"complete " + lib + " 9 6 -",
		"quit",
		"complete " + lib + " 9 6",
	}, "\n") + "\n"

	got := answers(runDaemon(t, input, "--config", cfg, "daemon"))
	require.Len(t, got, 4)
	assert.Contains(t, got[0], "  radius,let,")
	assert.Contains(t, got[1], "  Circle,struct,")
	assert.Equal(t, "error: unknown command \"bogus\"\n", got[2])
	assert.Contains(t, got[3], "error: "+errStdinSubstitute.Error())
}

func TestDaemonSubstituteAndInvalidate(t *testing.T) {
	dir, cfg := createSampleCrate(t)
	lib := filepath.Join(dir, "src", "lib.rs")
	unsaved := filepath.Join(t.TempDir(), "unsaved.rs")
	writeTestFile(t, filepath.Dir(unsaved), filepath.Base(unsaved),
		strings.Replace(sampleLib, "    ra\n", "    Cir\n", 1))

	input := strings.Join([]string{
		"complete " + lib + " 9 7 " + unsaved,
		"complete " + lib + " 9 7",
		"invalidate " + lib,
		"complete " + lib + " 9 6",
		"invalidate",
	}, "\n") + "\n"

	got := answers(runDaemon(t, input, "--config", cfg, "daemon"))
	require.Len(t, got, 5)
	assert.Contains(t, got[0], "  Circle,struct,")
	// The overlay stays in place for later queries.
	assert.Contains(t, got[1], "  Circle,struct,")
	assert.Empty(t, got[2])
	assert.Contains(t, got[3], "  radius,let,")
	assert.Equal(t, "error: expected FILE, got 0 arguments\n", got[4])
}

func TestDaemonWatch(t *testing.T) {
	dir, cfg := createSampleCrate(t)
	lib := filepath.Join(dir, "src", "lib.rs")

	got := answers(runDaemon(t, "complete "+lib+" 9 6\n", "--config", cfg, "daemon", "--watch", dir))
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "  radius,let,")
}

func TestDaemonWatchMissingDir(t *testing.T) {
	_, cfg := createSampleCrate(t)

	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs([]string{"--config", cfg, "daemon", "--watch", filepath.Join(t.TempDir(), "missing")})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watching")
}
