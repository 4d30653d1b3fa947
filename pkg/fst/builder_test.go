package fst

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMap(t *testing.T, entries []struct {
	key string
	val uint64
}) *Map {
	t.Helper()
	b := NewBuilder()
	for _, e := range entries {
		require.NoError(t, b.Insert([]byte(e.key), e.val))
	}
	data, root, err := b.Finish()
	require.NoError(t, err)
	return NewMap(data, root, b.NumKeys(), 3, CountCodec{})
}

func TestOutOfOrderInsertionFails(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Insert([]byte("なつ"), 1))

	err := b.Insert([]byte("あき"), 2)
	require.Error(t, err)

	var oooErr *OutOfOrderError
	require.True(t, errors.As(err, &oooErr))
	assert.Equal(t, []byte("なつ"), oooErr.Last)
	assert.Equal(t, []byte("あき"), oooErr.Key)
}

func TestDuplicateKeyIsOutOfOrder(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Insert([]byte("ふゆ"), 1))

	err := b.Insert([]byte("ふゆ"), 2)
	var oooErr *OutOfOrderError
	require.True(t, errors.As(err, &oooErr))
}

func TestEmptyKeyRejected(t *testing.T) {
	b := NewBuilder()
	assert.Error(t, b.Insert(nil, 1))
}

func TestInsertAfterFinishRejected(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Insert([]byte("はる"), 1))
	_, _, err := b.Finish()
	require.NoError(t, err)

	assert.Error(t, b.Insert([]byte("ふゆ"), 2))
	_, _, err = b.Finish()
	assert.Error(t, err)
}

func TestEmptyBuilder(t *testing.T) {
	b := NewBuilder()
	data, root, err := b.Finish()
	require.NoError(t, err)

	m := NewMap(data, root, 0, 3, CountCodec{})
	_, ok := m.Get([]byte("なにか"))
	assert.False(t, ok)
}

func TestSharedSuffixesAreMinimized(t *testing.T) {
	// Keys ending in the same suffix with equal values must share
	// compiled states, so doubling the key count with a shared suffix
	// should grow the automaton sublinearly.
	shared := NewBuilder()
	for _, k := range []string{"aX", "bX", "cX", "dX"} {
		require.NoError(t, shared.Insert([]byte(k), 1))
	}
	sharedData, _, err := shared.Finish()
	require.NoError(t, err)

	distinct := NewBuilder()
	for i, k := range []string{"aP", "bQ", "cR", "dS"} {
		require.NoError(t, distinct.Insert([]byte(k), uint64(i+10)))
	}
	distinctData, _, err := distinct.Finish()
	require.NoError(t, err)

	assert.Less(t, len(sharedData), len(distinctData))
}

func TestOutputsAccumulateAlongPath(t *testing.T) {
	// Keys with a common prefix but different values exercise the
	// output-pushing logic.
	m := buildMap(t, []struct {
		key string
		val uint64
	}{
		{"東京", 120},
		{"東京 スカイツリー", 7},
		{"東京 タワー", 31},
		{"東京 駅", 2048},
	})

	for _, tc := range []struct {
		key string
		val uint64
	}{
		{"東京", 120},
		{"東京 スカイツリー", 7},
		{"東京 タワー", 31},
		{"東京 駅", 2048},
	} {
		got, ok := m.Get([]byte(tc.key))
		require.True(t, ok, "key %q", tc.key)
		assert.Equal(t, tc.val, got, "key %q", tc.key)
	}
}

func TestLargeSortedKeySet(t *testing.T) {
	b := NewBuilder()
	var keys []string
	for c1 := byte('a'); c1 <= 'z'; c1++ {
		for c2 := byte('a'); c2 <= 'z'; c2++ {
			keys = append(keys, string([]byte{c1, c2, 'x'}))
		}
	}
	for i, k := range keys {
		require.NoError(t, b.Insert([]byte(k), uint64(i*i)))
	}
	data, root, err := b.Finish()
	require.NoError(t, err)
	m := NewMap(data, root, uint64(len(keys)), 1, CountCodec{})

	for i, k := range keys {
		got, ok := m.Get([]byte(k))
		require.True(t, ok, "key %q", k)
		require.Equal(t, uint64(i*i), got, "key %q", k)
	}

	for _, absent := range []string{"", "a", "aa", "aaxx", "zz", "zzy"} {
		_, ok := m.Get([]byte(absent))
		assert.False(t, ok, "key %q must be absent", absent)
	}
}
