package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/fixtures"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"pattern", "image", "strlen"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestPatternCmd_DefaultRepeat(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "pattern", "--out", dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "pattern-9982.txt")
	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, len(fixtures.Alphanumeric)*fixtures.LegacyRepeat)
	assert.True(t, strings.HasPrefix(string(data), strings.Repeat("0", fixtures.LegacyRepeat)+"1"))
}

func TestPatternCmd_ExactTotal(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "pattern", "--total", "10000", "--out", dir, "--name", "exact.txt")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "exact.txt"))
	require.NoError(t, err)
	assert.Len(t, data, 10000)
}

func TestPatternCmd_RepeatAndTotalExclusive(t *testing.T) {
	_, err := run(t, "pattern", "--repeat", "2", "--total", "10", "--out", t.TempDir())
	require.Error(t, err)
}

func TestPatternCmd_EmptyAlphabet(t *testing.T) {
	_, err := run(t, "pattern", "--alphabet", "", "--out", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestPatternCmd_RepeatTooLarge(t *testing.T) {
	_, err := run(t, "pattern", "--repeat", "9223372036854775807", "--out", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestImageCmd_ExactSize(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "image", "--size", "4096", "--width", "16", "--height", "16", "--out", dir, "--name", "small.bmp")
	require.NoError(t, err)
	assert.Contains(t, out, "4096 bytes")

	data, err := os.ReadFile(filepath.Join(dir, "small.bmp"))
	require.NoError(t, err)
	assert.Len(t, data, 4096)
	assert.Equal(t, "BM", string(data[:2]))
}

func TestImageCmd_RejectsNonPositiveSize(t *testing.T) {
	_, err := run(t, "image", "--size", "0", "--out", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
	assert.Equal(t, 2, errs.ExitCode(errs.CodeOf(err)))
}

func TestStrlenCmd_Report(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.txt")
	require.NoError(t, os.WriteFile(path, []byte("000111"), 0o644))

	out, err := run(t, "strlen", "--strict", path)
	require.NoError(t, err)
	assert.Contains(t, out, "direct:       6")
	assert.Contains(t, out, "zeros:        3")
	assert.Contains(t, out, "consistent:   true")
}

func TestStrlenCmd_MissingFile(t *testing.T) {
	_, err := run(t, "strlen", filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestStrlenCmd_RequiresFile(t *testing.T) {
	_, err := run(t, "strlen")
	require.Error(t, err)
}

func TestFlagError_IsInvalidArgument(t *testing.T) {
	_, err := run(t, "pattern", "--repeat", "many")
	require.Error(t, err)
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}
