package fixtures

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/credits-e2e/internal/errs"
)

func TestLengths_BinaryRuns(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("0", 1<<16) + strings.Repeat("1", 1<<16)
	r := Lengths(s)

	assert.Equal(t, 1<<17, r.Direct)
	assert.Equal(t, 1<<17, r.Runs)
	assert.Equal(t, 1<<17, r.Counted)
	assert.Equal(t, 1<<17, r.GroupTotal())
	assert.Equal(t, 16.0, r.ZerosPower)
	assert.Equal(t, 16.0, r.OnesPower)
	assert.True(t, r.Consistent())
}

func TestLengths_InterleavedIsInconsistent(t *testing.T) {
	t.Parallel()

	r := Lengths("0101")
	assert.Equal(t, 4, r.Direct)
	assert.Equal(t, 2, r.Runs)
	assert.False(t, r.Consistent())
}

func TestLengths_Empty(t *testing.T) {
	t.Parallel()

	r := Lengths("")
	assert.Equal(t, 0, r.Direct)
	assert.True(t, math.IsInf(r.ZerosPower, -1))
	assert.True(t, r.Consistent())
}

func TestLengths_MultibyteRunes(t *testing.T) {
	t.Parallel()

	r := Lengths("é0")
	assert.Equal(t, 3, r.Bytes)
	assert.Equal(t, 2, r.Direct)
	assert.Equal(t, 2, r.Counted)
}

func testLengthsRunsAgree(t *rapid.T) {
	zeros := rapid.IntRange(0, 2000).Draw(t, "zeros")
	ones := rapid.IntRange(0, 2000).Draw(t, "ones")
	s := strings.Repeat("0", zeros) + strings.Repeat("1", ones)

	r := Lengths(s)
	if !r.Consistent() {
		t.Fatalf("inconsistent report for %d zeros, %d ones: %+v", zeros, ones, r)
	}
	if r.Zeros != zeros || r.Ones != ones {
		t.Fatalf("counts = %d/%d, want %d/%d", r.Zeros, r.Ones, zeros, ones)
	}
}

func TestLengths_RunsAgree(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testLengthsRunsAgree)
}

func TestFileLengths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteFile(dir, "bits.txt", []byte("000111"))
	require.NoError(t, err)

	r, err := FileLengths(path)
	require.NoError(t, err)
	assert.Equal(t, 6, r.Direct)
	assert.True(t, r.Consistent())

	_, err = FileLengths(filepath.Join(dir, "missing.txt"))
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}
