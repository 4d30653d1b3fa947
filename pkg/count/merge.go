package count

import (
	"bytes"
	"container/heap"
	"io"
)

type mergeItem struct {
	key   []byte
	count uint64
	src   int
}

type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if c := bytes.Compare(h[i].key, h[j].key); c != 0 {
		return c < 0
	}
	return h[i].src < h[j].src
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(mergeItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Merge performs a k-way merge of sorted partitions, summing counts for
// keys that appear in more than one partition. Summation is commutative,
// so the result is independent of partition order. Keys whose summed count
// is below minCount are dropped. emit observes a strictly increasing,
// duplicate-free key sequence; an emit error aborts the merge.
func Merge(parts []Partition, minCount uint64, emit func(key []byte, count uint64) error) error {
	h := make(mergeHeap, 0, len(parts))
	for i, p := range parts {
		key, count, err := p.Next()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		h = append(h, mergeItem{key: key, count: count, src: i})
	}
	heap.Init(&h)

	var (
		curKey   []byte
		curCount uint64
		have     bool
	)
	flush := func() error {
		if !have || curCount < minCount {
			return nil
		}
		return emit(curKey, curCount)
	}

	for h.Len() > 0 {
		it := heap.Pop(&h).(mergeItem)

		if have && bytes.Equal(it.key, curKey) {
			curCount += it.count
		} else {
			if err := flush(); err != nil {
				return err
			}
			curKey = it.key
			curCount = it.count
			have = true
		}

		key, count, err := parts[it.src].Next()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		heap.Push(&h, mergeItem{key: key, count: count, src: it.src})
	}
	return flush()
}
