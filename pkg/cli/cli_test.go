package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestShellRunsScriptFromStdin(t *testing.T) {
	dir := t.TempDir()
	args := []string{"--data-dir", dir, "--checkpoint-interval", "0s", "--log-level", "error"}

	out, err := execute(t, "INSERT user1\nname=\"John Doe\"\nage=30\n\nWAIT\nGET user1\n", args...)
	require.NoError(t, err)
	assert.Contains(t, out, "submitted ")
	assert.Contains(t, out, `"name": "John Doe"`)
	assert.NotContains(t, out, "neemo> ", "no prompt when input is not a terminal")

	out, err = execute(t, "GET user1\n", append(args, "--format", "yaml")...)
	require.NoError(t, err)
	assert.Contains(t, out, "key: user1\n")
}

func TestDatabaseFlagCreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "INSERT k\nv=1\n\nWAIT\n",
		"--data-dir", dir, "--database", "inventory", "--engine", "sqlite", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "all operations finished")

	_, err = os.Stat(filepath.Join(dir, "inventory"))
	assert.NoError(t, err)
}

func TestInteractiveFlagPrintsPrompt(t *testing.T) {
	out, err := execute(t, "EXIT\n", "--data-dir", t.TempDir(), "--interactive", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "neemo> Exiting neemo...\n", out)
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := execute(t, "", "--data-dir", t.TempDir(), "--format", "xml", "--log-level", "error")
	assert.Error(t, err)

	_, err = execute(t, "", "--data-dir", t.TempDir(), "--engine", "rocks")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "neemo v"+Version+"\n", out)
}
