package fst

import (
	"fmt"
	"math"
)

// Score scheme identifiers recorded in the artifact header. A reader always
// decodes with the scheme the artifact was built with.
const (
	SchemeCount uint32 = 1
	SchemeLog   uint32 = 2
)

// ScoreCodec converts a raw occurrence count to the integer payload stored
// in the automaton and back. Encode must be monotonic: a higher count never
// yields a lower stored value, and Decode must preserve that ordering.
type ScoreCodec interface {
	Scheme() uint32
	Encode(count uint64) uint64
	Decode(value uint64) uint64
}

// CountCodec stores the raw count unchanged. Round-trips exactly.
type CountCodec struct{}

func (CountCodec) Scheme() uint32             { return SchemeCount }
func (CountCodec) Encode(count uint64) uint64 { return count }
func (CountCodec) Decode(value uint64) uint64 { return value }

// LogCodec stores floor(ln(count) * 1000), compressing the heavy-tailed
// count distribution into a compact score range. Decode returns the
// rounded inverse, which preserves the frequency ordering.
type LogCodec struct{}

func (LogCodec) Scheme() uint32 { return SchemeLog }

func (LogCodec) Encode(count uint64) uint64 {
	if count == 0 {
		return 0
	}
	return uint64(math.Log(float64(count)) * 1000)
}

func (LogCodec) Decode(value uint64) uint64 {
	return uint64(math.Round(math.Exp(float64(value) / 1000)))
}

// CodecForScheme resolves a header scheme id to its codec.
func CodecForScheme(scheme uint32) (ScoreCodec, error) {
	switch scheme {
	case SchemeCount:
		return CountCodec{}, nil
	case SchemeLog:
		return LogCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown score scheme %d", scheme)
	}
}
