package ngram

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKey(t *testing.T) {
	cases := [][]string{
		{"東京"},
		{"東京", "都"},
		{"今日", "は", "晴れ"},
	}
	for _, tokens := range cases {
		key := EncodeKey(tokens)
		assert.Equal(t, tokens, DecodeKey(key))
		assert.Equal(t, len(tokens), Order(key))
	}

	assert.Nil(t, EncodeKey(nil))
	assert.Nil(t, DecodeKey(nil))
	assert.Equal(t, 0, Order(nil))
}

func TestKeyOrderIsTotal(t *testing.T) {
	// A shorter key sorts before any key it is a prefix of, and the
	// delimiter keeps token boundaries out of the comparison.
	a := EncodeKey([]string{"東京"})
	b := EncodeKey([]string{"東京", "都"})
	c := EncodeKey([]string{"東京都"})

	assert.Negative(t, bytes.Compare(a, b))
	assert.Negative(t, bytes.Compare(a, c))
	// 0x20 sorts below every UTF-8 continuation byte.
	assert.Negative(t, bytes.Compare(b, c))
}

func TestExtractEmitsAllWindows(t *testing.T) {
	tokens := []string{"今日", "は", "いい", "天気"}

	var keys [][]byte
	err := Extract(tokens, 3, func(key []byte) error {
		keys = append(keys, append([]byte(nil), key...))
		return nil
	})
	require.NoError(t, err)

	require.Len(t, keys, WindowCount(len(tokens), 3))

	want := [][]string{
		{"今日"}, {"は"}, {"いい"}, {"天気"},
		{"今日", "は"}, {"は", "いい"}, {"いい", "天気"},
		{"今日", "は", "いい"}, {"は", "いい", "天気"},
	}
	for i, tokens := range want {
		assert.Equal(t, EncodeKey(tokens), keys[i])
	}
}

func TestExtractShortSequence(t *testing.T) {
	var n int
	err := Extract([]string{"短い"}, 3, func([]byte) error {
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = Extract(nil, 3, func([]byte) error {
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWindowCount(t *testing.T) {
	assert.Equal(t, 0, WindowCount(0, 3))
	assert.Equal(t, 1, WindowCount(1, 3))
	assert.Equal(t, 3, WindowCount(2, 3))
	assert.Equal(t, 9, WindowCount(4, 3))
	assert.Equal(t, 4, WindowCount(4, 1))
}
