/*
Package count aggregates n-gram occurrences under a bounded memory budget.

Counting is two-phase: an in-memory table accumulates occurrences until it
exceeds its byte or entry budget, at which point it is flushed to a sorted
spill partition on disk and reset. Finish exposes all partitions (spilled
files plus the in-memory remainder) behind one streaming interface, and
Merge combines them into a single globally sorted, duplicate-free stream
with counts summed across partitions.
*/
package count

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// SpillError reports a disk failure while writing, opening or reading a
// spill partition. It is fatal: with a partition missing or truncated the
// aggregated counts can no longer be trusted, so the build must abort.
type SpillError struct {
	Path string
	Err  error
}

func (e *SpillError) Error() string {
	return fmt.Sprintf("spill partition %s: %v", e.Path, e.Err)
}

func (e *SpillError) Unwrap() error { return e.Err }

// rough per-entry map overhead on top of the key bytes, used for the
// budget accounting. Deliberately pessimistic.
const entryOverhead = 48

// Aggregator accumulates per-key occurrence counts, spilling to dir
// whenever the in-memory table exceeds byteBudget bytes or maxEntries
// entries. A zero budget disables that limit.
type Aggregator struct {
	dir        string
	byteBudget int64
	maxEntries int

	counts  map[string]uint64
	inUse   int64
	spills  []string
	seq     int
	spilled int
}

// NewAggregator creates an aggregator spilling into dir.
func NewAggregator(dir string, byteBudget int64, maxEntries int) *Aggregator {
	return &Aggregator{
		dir:        dir,
		byteBudget: byteBudget,
		maxEntries: maxEntries,
		counts:     make(map[string]uint64),
	}
}

// Add records n occurrences of key.
func (a *Aggregator) Add(key []byte, n uint64) error {
	k := string(key)
	if _, ok := a.counts[k]; !ok {
		a.inUse += int64(len(k)) + entryOverhead
	}
	a.counts[k] += n

	if (a.byteBudget > 0 && a.inUse >= a.byteBudget) ||
		(a.maxEntries > 0 && len(a.counts) >= a.maxEntries) {
		return a.spill()
	}
	return nil
}

// spill flushes the current table to a new sorted partition file and
// resets the table.
func (a *Aggregator) spill() error {
	if len(a.counts) == 0 {
		return nil
	}
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return &SpillError{Path: a.dir, Err: err}
	}
	path := filepath.Join(a.dir, fmt.Sprintf("spill_%04d.part", a.seq))
	a.seq++

	if err := writePartitionFile(path, a.counts); err != nil {
		return &SpillError{Path: path, Err: err}
	}
	log.Debugf("Spilled %d entries (~%d bytes) to %s", len(a.counts), a.inUse, path)

	a.spills = append(a.spills, path)
	a.spilled += len(a.counts)
	a.counts = make(map[string]uint64)
	a.inUse = 0
	return nil
}

// Finish returns all partitions in spill order: the on-disk partitions
// followed by the in-memory remainder. The aggregator must not be used
// afterwards; the caller owns closing the partitions.
func (a *Aggregator) Finish() ([]Partition, error) {
	parts := make([]Partition, 0, len(a.spills)+1)
	for _, path := range a.spills {
		p, err := OpenPartition(path)
		if err != nil {
			closeAll(parts)
			return nil, err
		}
		parts = append(parts, p)
	}
	if len(a.counts) > 0 {
		parts = append(parts, newMemPartition(a.counts))
		a.counts = make(map[string]uint64)
		a.inUse = 0
	}
	return parts, nil
}

// SpillFiles returns the paths of partitions written so far.
func (a *Aggregator) SpillFiles() []string { return a.spills }

// Pending returns the number of entries currently held in memory.
func (a *Aggregator) Pending() int { return len(a.counts) }

func closeAll(parts []Partition) {
	for _, p := range parts {
		if err := p.Close(); err != nil {
			log.Warnf("Closing partition: %v", err)
		}
	}
}

// CloseAll closes every partition, keeping the first error.
func CloseAll(parts []Partition) error {
	var first error
	for _, p := range parts {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RemoveSpillFiles deletes the given partition files, logging failures.
func RemoveSpillFiles(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warnf("Removing spill file %s: %v", path, err)
		}
	}
}
