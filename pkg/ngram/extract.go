/*
Package ngram turns token sequences into canonical n-gram keys.

A key is the byte encoding of 1..N consecutive surface forms joined by a
single 0x20 delimiter. The segmenter guarantees that surfaces never contain
whitespace, so the encoding is reversible and byte-lexicographic order over
keys is a total, stable order. All downstream stages (aggregation, merge,
FST construction) compare keys only by these bytes.
*/
package ngram

import (
	"bytes"
	"strings"
)

// Delim separates tokens inside an encoded key.
const Delim = ' '

// EncodeKey serializes tokens into the canonical key byte encoding.
func EncodeKey(tokens []string) []byte {
	if len(tokens) == 0 {
		return nil
	}
	size := len(tokens) - 1
	for _, t := range tokens {
		size += len(t)
	}
	key := make([]byte, 0, size)
	for i, t := range tokens {
		if i > 0 {
			key = append(key, Delim)
		}
		key = append(key, t...)
	}
	return key
}

// DecodeKey splits an encoded key back into its tokens.
func DecodeKey(key []byte) []string {
	if len(key) == 0 {
		return nil
	}
	return strings.Split(string(key), string(rune(Delim)))
}

// Order returns the number of tokens in an encoded key.
func Order(key []byte) int {
	if len(key) == 0 {
		return 0
	}
	return bytes.Count(key, []byte{Delim}) + 1
}

// Extract emits every contiguous window of 1..maxOrder tokens as an encoded
// key, in left-to-right order per order. Windows never cross the given token
// sequence, so sentence and document boundaries are respected by feeding one
// sentence at a time. The function is pure and performs no aggregation.
func Extract(tokens []string, maxOrder int, fn func(key []byte) error) error {
	for n := 1; n <= maxOrder; n++ {
		if len(tokens) < n {
			break
		}
		for i := 0; i+n <= len(tokens); i++ {
			if err := fn(EncodeKey(tokens[i : i+n])); err != nil {
				return err
			}
		}
	}
	return nil
}

// WindowCount returns the number of windows Extract emits for a sequence of
// the given length, across all orders 1..maxOrder.
func WindowCount(numTokens, maxOrder int) int {
	total := 0
	for n := 1; n <= maxOrder && n <= numTokens; n++ {
		total += numTokens - n + 1
	}
	return total
}
