package fst

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokyoEntries is the canonical fixture: counts for 大阪, 東京, 東京都,
// already in byte-lexicographic key order.
var tokyoEntries = []struct {
	key string
	val uint64
}{
	{"大阪", 80},
	{"東京", 120},
	{"東京都", 45},
}

func writeTokyoArtifact(t *testing.T, path string) {
	t.Helper()
	b := NewBuilder()
	for _, e := range tokyoEntries {
		require.NoError(t, b.Insert([]byte(e.key), e.val))
	}
	data, root, err := b.Finish()
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, data, root, b.NumKeys(), 3, SchemeCount))
}

func checkTokyoLookups(t *testing.T, m *Map) {
	t.Helper()
	for _, e := range tokyoEntries {
		got, ok := m.Get([]byte(e.key))
		require.True(t, ok, "key %q", e.key)
		assert.Equal(t, e.val, got, "key %q", e.key)
	}

	// 京都 is a substring of 東京都 but never a key; exact lookup must
	// not match partial paths.
	for _, absent := range []string{"京都", "東", "東京都庁", "名古屋"} {
		_, ok := m.Get([]byte(absent))
		assert.False(t, ok, "key %q must be absent", absent)
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	writeTokyoArtifact(t, path)

	m, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), m.Len())
	assert.Equal(t, 3, m.MaxOrder())
	checkTokyoLookups(t, m)
}

func TestReloadedMatchesInMemoryBuild(t *testing.T) {
	b := NewBuilder()
	for _, e := range tokyoEntries {
		require.NoError(t, b.Insert([]byte(e.key), e.val))
	}
	data, root, err := b.Finish()
	require.NoError(t, err)
	fresh := NewMap(data, root, b.NumKeys(), 3, CountCodec{})

	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	writeTokyoArtifact(t, path)
	reloaded, err := Open(path)
	require.NoError(t, err)

	checkTokyoLookups(t, fresh)
	checkTokyoLookups(t, reloaded)
}

func TestBuildIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.wgfs")
	pathB := filepath.Join(dir, "b.wgfs")
	writeTokyoArtifact(t, pathA)
	writeTokyoArtifact(t, pathB)

	bytesA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	bytesB, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, bytesA, bytesB, "identical input must produce a byte-identical artifact")
}

func TestPrefixIter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	writeTokyoArtifact(t, path)
	m, err := Open(path)
	require.NoError(t, err)

	got := make(map[string]uint64)
	it := m.Prefix([]byte("東京"))
	for {
		pair, ok := it.Next()
		if !ok {
			break
		}
		got[string(pair.Suffix)] = pair.Value
	}
	assert.Equal(t, map[string]uint64{"": 120, "都": 45}, got)
}

func TestPrefixIterFullStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	writeTokyoArtifact(t, path)
	m, err := Open(path)
	require.NoError(t, err)

	var keys []string
	it := m.Prefix(nil)
	for {
		pair, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, string(pair.Suffix))
	}
	assert.Equal(t, []string{"大阪", "東京", "東京都"}, keys, "full stream is in key order")
}

func TestPrefixIterNoMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	writeTokyoArtifact(t, path)
	m, err := Open(path)
	require.NoError(t, err)

	it := m.Prefix([]byte("京都"))
	_, ok := it.Next()
	assert.False(t, ok)
}

func TestPrefixIterRestartable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	writeTokyoArtifact(t, path)
	m, err := Open(path)
	require.NoError(t, err)

	count := func() int {
		n := 0
		it := m.Prefix([]byte("東京"))
		for {
			if _, ok := it.Next(); !ok {
				return n
			}
			n++
		}
	}
	assert.Equal(t, 2, count())
	assert.Equal(t, 2, count())
}

func TestOpenRejectsVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	writeTokyoArtifact(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[4] = 99 // format version field
	require.NoError(t, os.WriteFile(path, raw, 0644))

	_, err = Open(path)
	require.Error(t, err)

	var vErr *VersionMismatchError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, uint32(99), vErr.Got)
	assert.Equal(t, FormatVersion, vErr.Want)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	writeTokyoArtifact(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0644))

	_, err = Open(path)
	assert.ErrorContains(t, err, "magic")
}

func TestOpenRejectsCorruptStates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	writeTokyoArtifact(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[HeaderSize] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0644))

	_, err = Open(path)
	assert.ErrorContains(t, err, "checksum")
}

func TestOpenRejectsTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokyo.wgfs")
	require.NoError(t, os.WriteFile(path, []byte("WGFS"), 0644))

	_, err := Open(path)
	assert.ErrorContains(t, err, "truncated")
}

func TestFailedWriteLeavesArtifactUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokyo.wgfs")
	writeTokyoArtifact(t, path)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A build that errors before WriteFile never stages anything; and a
	// staged temp file is only promoted by rename. Simulate an aborted
	// build by staging a temp file and dropping it.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0644))
	require.NoError(t, os.Remove(tmp))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
