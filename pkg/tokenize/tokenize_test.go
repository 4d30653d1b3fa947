package tokenize

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "japanese terminators",
			text: "今日は晴れ。明日は雨だ！本当？",
			want: []string{"今日は晴れ", "明日は雨だ", "本当"},
		},
		{
			name: "newlines",
			text: "一行目の文章\n二行目の文章",
			want: []string{"一行目の文章", "二行目の文章"},
		},
		{
			name: "short fragments dropped",
			text: "あ。これは残る。",
			want: []string{"これは残る"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitSentences(tc.text))
		})
	}
}

func TestKagomeTokens(t *testing.T) {
	seg, err := NewKagome()
	require.NoError(t, err)

	tokens, err := seg.Tokens("東京都に住んでいる")
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	for _, tok := range tokens {
		assert.NotEmpty(t, tok)
		assert.False(t, strings.ContainsAny(tok, " \t\n"), "surface %q contains whitespace", tok)
	}
}

func TestKagomeTokensRestartable(t *testing.T) {
	seg, err := NewKagome()
	require.NoError(t, err)

	first, err := seg.Tokens("日本語の文章")
	require.NoError(t, err)
	second, err := seg.Tokens("日本語の文章")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestInvalidUTF8IsSegmentationError(t *testing.T) {
	seg, err := NewKagome()
	require.NoError(t, err)

	_, err = seg.Tokens(string([]byte{0xff, 0xfe, 0xfd}))
	require.Error(t, err)

	var segErr *SegmentationError
	require.True(t, errors.As(err, &segErr))
	assert.Contains(t, segErr.Error(), "UTF-8")
}
