package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hedwyn/smelt/internal/testutil"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestNewVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand("1.2.3", "abc1234"))
	require.NoError(t, err)
	assert.Contains(t, out, "smelt v1.2.3")
	assert.Contains(t, out, "abc1234")
}

func TestNewBuildCommandMetadata(t *testing.T) {
	cmd := NewBuildCommand()

	assert.Equal(t, "build", cmd.Use)
	assert.Contains(t, cmd.Aliases, "build-standalone-binary")
	for _, flag := range []string{"package-path", "without-entrypoint", "watch"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewConfigureHostCommandMetadata(t *testing.T) {
	cmd := NewConfigureHostCommand()

	assert.Equal(t, "configure-host <arch> <python-version> [libc]", cmd.Use)
	for _, flag := range []string{"root", "config-site"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestConfigureHostRejectsBadArgCounts(t *testing.T) {
	_, err := execute(t, NewConfigureHostCommand(), "aarch64")
	require.Error(t, err)

	_, err = execute(t, NewConfigureHostCommand(), "a", "b", "c", "d")
	require.Error(t, err)
}

func TestShowConfigWithoutProject(t *testing.T) {
	out, err := execute(t, NewShowConfigCommand(), "-p", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No smelt config found.")
}

func TestShowConfigRendersProject(t *testing.T) {
	dir := t.TempDir()
	pyproject := `
[tool.smelt]
entrypoint = "demo.cli"

[[tool.smelt.mypyc_modules]]
import_path = "demo.fib"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(pyproject), 0o644))

	out, err := execute(t, NewShowConfigCommand(), "-p", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "demo.cli")
	assert.Contains(t, out, "demo.fib")
}

func TestShowConfigReportsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[tool.smelt]\ndebug = true\n"), 0o644))

	_, err := execute(t, NewShowConfigCommand(), "-p", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entrypoint")
}

func TestHistoryEmpty(t *testing.T) {
	out, err := execute(t, NewHistoryCommand(), "-p", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet.")
}

func TestHistoryListsRuns(t *testing.T) {
	dir := t.TempDir()
	store, err := openStore(dir, testutil.NewTestLogger(t))
	require.NoError(t, err)
	_, err = store.CreateRun("build", "demo.cli")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := execute(t, NewHistoryCommand(), "-p", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "running")
}

func TestDebugEnabledFromEnv(t *testing.T) {
	cmd := &cobra.Command{Use: "smelt"}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	t.Setenv(debugEnvVar, "")
	assert.False(t, debugEnabled(cmd), "empty value must leave debug off")

	for _, value := range []string{"1", "true", "yes", "banana"} {
		t.Setenv(debugEnvVar, value)
		assert.True(t, debugEnabled(cmd), "value %q must turn debug on", value)
	}
}

func TestDebugEnabledFromVerboseFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "smelt"}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	require.NoError(t, cmd.PersistentFlags().Set("verbose", "true"))

	assert.True(t, debugEnabled(cmd))
}

func TestOpenStoreCreatesStateDir(t *testing.T) {
	dir := t.TempDir()
	store, err := openStore(dir, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, filepath.Join(dir, stateDir, "state.db"))
}
