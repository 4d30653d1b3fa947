package fst

import "encoding/binary"

// Map is a loaded, immutable automaton. It holds the raw state region and
// walks it in place; no per-query allocation happens on the lookup path.
// A Map is owned read-only by its query session and is safe for concurrent
// readers. A rebuild produces a new file and never mutates an open Map.
type Map struct {
	data   []byte
	header Header
	codec  ScoreCodec
}

// NewMap wraps a state region produced by Builder.Finish without touching
// disk. Used by tests and by in-process build verification.
func NewMap(data []byte, root uint64, keyCount uint64, maxOrder int, codec ScoreCodec) *Map {
	return &Map{
		data: data,
		header: Header{
			Magic:    MagicBytes,
			Version:  FormatVersion,
			MaxOrder: uint32(maxOrder),
			Scheme:   codec.Scheme(),
			KeyCount: keyCount,
			Root:     root,
			StateLen: uint64(len(data)),
		},
		codec: codec,
	}
}

// Len returns the number of distinct keys in the automaton.
func (m *Map) Len() uint64 { return m.header.KeyCount }

// MaxOrder returns the n-gram order ceiling the artifact was built with.
func (m *Map) MaxOrder() int { return int(m.header.MaxOrder) }

// Codec returns the score codec recorded in the artifact header.
func (m *Map) Codec() ScoreCodec { return m.codec }

// Header returns a copy of the artifact header.
func (m *Map) Header() Header { return m.header }

// Get performs an exact lookup: the walk must consume every key byte and
// end on a final state. Prefix reachability alone is not a match.
func (m *Map) Get(key []byte) (uint64, bool) {
	addr := m.header.Root
	var acc uint64
	for _, label := range key {
		next, out, ok := m.step(addr, label)
		if !ok {
			return 0, false
		}
		acc += out
		addr = next
	}
	st := m.stateAt(addr)
	if !st.final {
		return 0, false
	}
	return acc + st.finalOut, true
}

// GetString is Get over a string key.
func (m *Map) GetString(key string) (uint64, bool) { return m.Get([]byte(key)) }

// stateRef is a decoded state record header; tpos is the byte offset of
// the first transition.
type stateRef struct {
	final    bool
	finalOut uint64
	ntrans   int
	tpos     int
}

func (m *Map) stateAt(addr uint64) stateRef {
	pos := int(addr)
	flags := m.data[pos]
	pos++
	var st stateRef
	if flags&stateFinal != 0 {
		st.final = true
		st.finalOut, pos = m.uvarint(pos)
	}
	var n uint64
	n, pos = m.uvarint(pos)
	st.ntrans = int(n)
	st.tpos = pos
	return st
}

func (m *Map) uvarint(pos int) (uint64, int) {
	v, n := binary.Uvarint(m.data[pos:])
	return v, pos + n
}

// transAt decodes the transition record starting at pos.
func (m *Map) transAt(pos int) (label byte, out uint64, dest uint64, next int) {
	label = m.data[pos]
	pos++
	out, pos = m.uvarint(pos)
	dest, pos = m.uvarint(pos)
	return label, out, dest, pos
}

// step follows the transition for label out of the state at addr.
// Transitions are stored in ascending label order.
func (m *Map) step(addr uint64, label byte) (dest uint64, out uint64, ok bool) {
	st := m.stateAt(addr)
	pos := st.tpos
	for i := 0; i < st.ntrans; i++ {
		l, o, d, next := m.transAt(pos)
		if l == label {
			return d, o, true
		}
		if l > label {
			return 0, 0, false
		}
		pos = next
	}
	return 0, 0, false
}

// Pair is one prefix-enumeration result: the key bytes remaining after the
// queried prefix, and the stored (still encoded) score value.
type Pair struct {
	Suffix []byte
	Value  uint64
}

type iterFrame struct {
	state   stateRef
	acc     uint64
	depth   int // suffix length when the frame was entered
	pos     int // offset of the next unread transition
	read    int // transitions consumed so far
	emitted bool
}

// Iterator lazily enumerates the automaton below a prefix in byte order.
// Each call to an iterator is independent; obtain a fresh one to restart.
type Iterator struct {
	m     *Map
	stack []iterFrame
	buf   []byte
}

// Prefix positions an iterator after consuming prefix. If no path spells
// the prefix the iterator is empty. Prefix(nil) streams the whole map.
func (m *Map) Prefix(prefix []byte) *Iterator {
	addr := m.header.Root
	var acc uint64
	for _, label := range prefix {
		next, out, ok := m.step(addr, label)
		if !ok {
			return &Iterator{}
		}
		acc += out
		addr = next
	}
	st := m.stateAt(addr)
	return &Iterator{
		m:     m,
		stack: []iterFrame{{state: st, acc: acc, pos: st.tpos}},
	}
}

// Next returns the next (suffix, value) pair. The suffix slice is owned by
// the caller. ok is false when the enumeration is exhausted.
func (it *Iterator) Next() (Pair, bool) {
	for len(it.stack) > 0 {
		f := &it.stack[len(it.stack)-1]
		it.buf = it.buf[:f.depth]

		if !f.emitted {
			f.emitted = true
			if f.state.final {
				return Pair{
					Suffix: append([]byte(nil), it.buf...),
					Value:  f.acc + f.state.finalOut,
				}, true
			}
		}

		if f.read < f.state.ntrans {
			label, out, dest, next := it.m.transAt(f.pos)
			f.pos = next
			f.read++

			it.buf = append(it.buf, label)
			st := it.m.stateAt(dest)
			it.stack = append(it.stack, iterFrame{
				state: st,
				acc:   f.acc + out,
				depth: len(it.buf),
				pos:   st.tpos,
			})
			continue
		}

		it.stack = it.stack[:len(it.stack)-1]
	}
	return Pair{}, false
}
