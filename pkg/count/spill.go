package count

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"
)

// Partition streams (key, count) records in strictly ascending key order.
// Next returns io.EOF after the last record.
type Partition interface {
	Next() (key []byte, count uint64, err error)
	Close() error
}

// partition record: uvarint key length, key bytes, uvarint count.

func writePartitionFile(path string, counts map[string]uint64) error {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 1<<16)

	var hdr [binary.MaxVarintLen64]byte
	for _, k := range keys {
		n := binary.PutUvarint(hdr[:], uint64(len(k)))
		if _, err := w.Write(hdr[:n]); err != nil {
			f.Close()
			return err
		}
		if _, err := w.WriteString(k); err != nil {
			f.Close()
			return err
		}
		n = binary.PutUvarint(hdr[:], counts[k])
		if _, err := w.Write(hdr[:n]); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type filePartition struct {
	path string
	f    *os.File
	r    *bufio.Reader
}

// OpenPartition opens a spill partition file for streaming.
func OpenPartition(path string) (Partition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SpillError{Path: path, Err: err}
	}
	return &filePartition{path: path, f: f, r: bufio.NewReaderSize(f, 1<<16)}, nil
}

func (p *filePartition) Next() ([]byte, uint64, error) {
	klen, err := binary.ReadUvarint(p.r)
	if err == io.EOF {
		return nil, 0, io.EOF
	}
	if err != nil {
		return nil, 0, &SpillError{Path: p.path, Err: err}
	}
	key := make([]byte, klen)
	if _, err := io.ReadFull(p.r, key); err != nil {
		return nil, 0, &SpillError{Path: p.path, Err: err}
	}
	count, err := binary.ReadUvarint(p.r)
	if err != nil {
		return nil, 0, &SpillError{Path: p.path, Err: err}
	}
	return key, count, nil
}

func (p *filePartition) Close() error { return p.f.Close() }

// memPartition serves the aggregator's in-memory remainder through the
// same interface as spilled files.
type memPartition struct {
	keys   []string
	counts map[string]uint64
	pos    int
}

func newMemPartition(counts map[string]uint64) Partition {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memPartition{keys: keys, counts: counts}
}

// NewMemPartition wraps a count table as a sorted partition. Intended for
// tests and for single-shard builds that never spill.
func NewMemPartition(counts map[string]uint64) Partition {
	cp := make(map[string]uint64, len(counts))
	for k, v := range counts {
		cp[k] = v
	}
	return newMemPartition(cp)
}

func (p *memPartition) Next() ([]byte, uint64, error) {
	if p.pos >= len(p.keys) {
		return nil, 0, io.EOF
	}
	k := p.keys[p.pos]
	p.pos++
	return []byte(k), p.counts[k], nil
}

func (p *memPartition) Close() error { return nil }
