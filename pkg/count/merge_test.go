package count

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, parts []Partition, minCount uint64) (keys []string, counts []uint64) {
	t.Helper()
	err := Merge(parts, minCount, func(key []byte, count uint64) error {
		keys = append(keys, string(key))
		counts = append(counts, count)
		return nil
	})
	require.NoError(t, err)
	return keys, counts
}

func TestMergeSumsEqualKeys(t *testing.T) {
	parts := []Partition{
		NewMemPartition(map[string]uint64{"あめ": 2, "ゆき": 1}),
		NewMemPartition(map[string]uint64{"あめ": 5, "かぜ": 3}),
		NewMemPartition(map[string]uint64{"あめ": 1}),
	}

	keys, counts := collect(t, parts, 0)
	assert.Equal(t, []string{"あめ", "かぜ", "ゆき"}, keys)
	assert.Equal(t, []uint64{8, 3, 1}, counts)
}

func TestMergeOrderIndependence(t *testing.T) {
	build := func() []Partition {
		return []Partition{
			NewMemPartition(map[string]uint64{"いぬ": 1, "ねこ": 4}),
			NewMemPartition(map[string]uint64{"ねこ": 2, "とり": 7}),
			NewMemPartition(map[string]uint64{"いぬ": 3}),
		}
	}

	keys1, counts1 := collect(t, build(), 0)

	parts := build()
	reversed := []Partition{parts[2], parts[0], parts[1]}
	keys2, counts2 := collect(t, reversed, 0)

	assert.Equal(t, keys1, keys2)
	assert.Equal(t, counts1, counts2)
}

func TestMergeSinglePartition(t *testing.T) {
	parts := []Partition{
		NewMemPartition(map[string]uint64{"ほし": 2, "つき": 9}),
	}
	keys, counts := collect(t, parts, 0)
	assert.Equal(t, []string{"つき", "ほし"}, keys)
	assert.Equal(t, []uint64{9, 2}, counts)
}

func TestMergeCutoff(t *testing.T) {
	parts := []Partition{
		NewMemPartition(map[string]uint64{"のこる": 60, "きえる": 20}),
		NewMemPartition(map[string]uint64{"きえる": 25, "ぎりぎり": 50}),
	}

	// 20+25=45 falls below the cutoff; exactly 50 survives.
	keys, counts := collect(t, parts, 50)
	assert.Equal(t, []string{"ぎりぎり", "のこる"}, keys)
	assert.Equal(t, []uint64{50, 60}, counts)
}

func TestMergeEmitErrorAborts(t *testing.T) {
	parts := []Partition{
		NewMemPartition(map[string]uint64{"ひとつ": 1, "ふたつ": 1}),
	}

	boom := errors.New("boom")
	calls := 0
	err := Merge(parts, 0, func([]byte, uint64) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestMergeNoPartitions(t *testing.T) {
	keys, _ := collect(t, nil, 0)
	assert.Empty(t, keys)
}
