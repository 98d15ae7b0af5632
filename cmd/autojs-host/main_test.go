package main

import (
	"errors"
	"os"
	"os/exec"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMainHelp(t *testing.T) {
	output, err := runMain(t, "--help")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "Usage:")
	require.Contains(t, string(output), "attach [--addr A]")
}

func TestMainVersion(t *testing.T) {
	output, err := runMain(t, "--version")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "autojs-host ")
}

func TestMainUsageErrorExitsTwo(t *testing.T) {
	output, err := runMain(t, "connect")
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.ExitCode())
	require.Contains(t, string(output), "connect requires exactly one address")
}

// TestMainHelperProcess re-enters main with the arguments after "--".
func TestMainHelperProcess(t *testing.T) {
	if os.Getenv("AUTOJS_HOST_HELPER_PROCESS") != "1" {
		return
	}

	args := []string{"autojs-host"}
	if i := slices.Index(os.Args, "--"); i >= 0 {
		args = append(args, os.Args[i+1:]...)
	}
	os.Args = args
	main()
}

func runMain(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()

	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestMainHelperProcess", "--"}, args...)...)
	cmd.Env = append(os.Environ(), "AUTOJS_HOST_HELPER_PROCESS=1", "XDG_STATE_HOME="+t.TempDir())
	return cmd.CombinedOutput()
}
