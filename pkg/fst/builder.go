/*
Package fst builds and queries the minimal acyclic finite-state transducer
that maps n-gram key bytes to integer score values.

Construction is incremental over a strictly increasing key stream: the
builder keeps only the uncompiled path of the most recent key, freezes the
suffix that diverges from each new key, and deduplicates frozen states
through a registry so that equal suffixes share one compiled state. Integer
outputs are pushed toward the root (the shared output prefix of two values
is their minimum), which is what lets common prefixes carry common score
mass. The whole process is sequential by design; the sorted-insertion
precondition is what makes single-pass minimization sound.
*/
package fst

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// OutOfOrderError reports a key inserted out of byte-lexicographic order
// (or a duplicate). It is fatal: minimization has already frozen states the
// offending key would need to revisit, so construction must abort and no
// artifact may be produced.
type OutOfOrderError struct {
	Last []byte
	Key  []byte
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("out-of-order insertion: key %q does not sort after %q", e.Key, e.Last)
}

const stateFinal = 1 << 0

type transition struct {
	label byte
	out   uint64
	node  *bnode // pending child; nil once compiled
	addr  uint64 // compiled address, valid when node is nil
}

type bnode struct {
	final    bool
	finalOut uint64
	trans    []transition
}

// addOut pushes an output delta down into an uncompiled node.
func (n *bnode) addOut(delta uint64) {
	for i := range n.trans {
		n.trans[i].out += delta
	}
	if n.final {
		n.finalOut += delta
	}
}

// Builder constructs the automaton from a strictly increasing key stream.
// The single piece of state carried between calls is the path of the last
// inserted key.
type Builder struct {
	stack    []*bnode // uncompiled path; stack[0] is the root
	lastKey  []byte
	registry map[string]uint64
	data     []byte
	numKeys  uint64
	finished bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		stack:    []*bnode{{}},
		registry: make(map[string]uint64),
	}
}

// NumKeys returns the number of keys inserted so far.
func (b *Builder) NumKeys() uint64 { return b.numKeys }

// Insert adds one (key, value) entry. key must be non-empty and strictly
// greater than every previously inserted key.
func (b *Builder) Insert(key []byte, value uint64) error {
	if b.finished {
		return errors.New("insert after Finish")
	}
	if len(key) == 0 {
		return errors.New("empty key")
	}
	if b.numKeys > 0 && bytes.Compare(key, b.lastKey) <= 0 {
		return &OutOfOrderError{
			Last: append([]byte(nil), b.lastKey...),
			Key:  append([]byte(nil), key...),
		}
	}

	prefix := commonPrefixLen(key, b.lastKey)
	b.freeze(prefix)

	// Distribute the value along the shared prefix. Each prefix transition
	// keeps the shared output portion (min); any excess it previously held
	// is pushed down into its still-uncompiled child.
	rem := value
	for i := 0; i < prefix; i++ {
		t := &b.stack[i].trans[len(b.stack[i].trans)-1]
		shared := min(t.out, rem)
		if excess := t.out - shared; excess > 0 {
			t.out = shared
			b.stack[i+1].addOut(excess)
		}
		rem -= shared
	}

	// Grow the diverging suffix; the remainder rides on its first transition.
	for i := prefix; i < len(key); i++ {
		parent := b.stack[len(b.stack)-1]
		child := &bnode{}
		t := transition{label: key[i], node: child}
		if i == prefix {
			t.out = rem
		}
		parent.trans = append(parent.trans, t)
		b.stack = append(b.stack, child)
	}
	b.stack[len(b.stack)-1].final = true

	b.lastKey = append(b.lastKey[:0], key...)
	b.numKeys++
	return nil
}

// Finish compiles the remaining path and returns the serialized state
// region plus the root state address. The builder cannot be reused.
func (b *Builder) Finish() (data []byte, root uint64, err error) {
	if b.finished {
		return nil, 0, errors.New("Finish called twice")
	}
	b.finished = true
	b.freeze(0)
	root = b.compile(b.stack[0])
	return b.data, root, nil
}

// freeze compiles the uncompiled path below depth, deepest first, wiring
// each compiled address into its parent's newest transition.
func (b *Builder) freeze(depth int) {
	for i := len(b.stack) - 1; i > depth; i-- {
		addr := b.compile(b.stack[i])
		t := &b.stack[i-1].trans[len(b.stack[i-1].trans)-1]
		t.node = nil
		t.addr = addr
	}
	b.stack = b.stack[:depth+1]
}

// compile serializes a node whose children are all compiled, reusing an
// identical previously compiled state when one exists.
func (b *Builder) compile(n *bnode) uint64 {
	rec := appendState(nil, n)
	if addr, ok := b.registry[string(rec)]; ok {
		return addr
	}
	addr := uint64(len(b.data))
	b.data = append(b.data, rec...)
	b.registry[string(rec)] = addr
	return addr
}

// state record: flags byte, [uvarint finalOut if final], uvarint numTrans,
// then per transition in ascending label order: label byte, uvarint out,
// uvarint absolute child address.
func appendState(dst []byte, n *bnode) []byte {
	var flags byte
	if n.final {
		flags |= stateFinal
	}
	dst = append(dst, flags)
	if n.final {
		dst = binary.AppendUvarint(dst, n.finalOut)
	}
	dst = binary.AppendUvarint(dst, uint64(len(n.trans)))
	for _, t := range n.trans {
		dst = append(dst, t.label)
		dst = binary.AppendUvarint(dst, t.out)
		dst = binary.AppendUvarint(dst, t.addr)
	}
	return dst
}

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
