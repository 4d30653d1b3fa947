/*
Package predict serves lookups and prefix predictions from a published
artifact.

An Engine owns the loaded automaton for the lifetime of a query session.
On open it warms a patricia-trie hot cache with every entry whose decoded
count clears a threshold, so the common case (predicting from frequent
n-grams) never walks the automaton; rare prefixes fall back to a bounded
automaton scan. The artifact itself is immutable: a rebuild publishes a new
file and has no effect on an engine that is already open.
*/
package predict

import (
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/mkthr/wikigram/pkg/fst"
)

// Prediction is one ranked continuation for a prefix.
type Prediction struct {
	// Ngram is the full matched key, prefix included.
	Ngram string
	// Count is the decoded frequency-derived score.
	Count uint64
}

// Options tune hot cache warming and result limits.
type Options struct {
	// HotMinCount is the minimum decoded count for an entry to enter the
	// hot cache. Zero disables the cache.
	HotMinCount uint64
	// HotMaxEntries caps the hot cache size. Zero means no cap.
	HotMaxEntries int
	// MaxLimit bounds the number of predictions per request.
	MaxLimit int
}

// DefaultOptions mirror the serve config defaults.
func DefaultOptions() Options {
	return Options{HotMinCount: 50, HotMaxEntries: 100000, MaxLimit: 64}
}

// Engine answers exact and prefix queries over one open artifact.
type Engine struct {
	m    *fst.Map
	hot  *patricia.Trie
	opts Options
}

// Open loads the artifact at path and warms the hot cache.
func Open(path string, opts Options) (*Engine, error) {
	m, err := fst.Open(path)
	if err != nil {
		return nil, err
	}
	return NewEngine(m, opts), nil
}

// NewEngine wraps an already loaded map.
func NewEngine(m *fst.Map, opts Options) *Engine {
	e := &Engine{m: m, opts: opts}
	if opts.HotMinCount > 0 {
		e.hot = patricia.NewTrie()
		e.warmHotCache()
	}
	return e
}

// warmHotCache streams the whole automaton once and keeps entries whose
// decoded count clears the threshold.
func (e *Engine) warmHotCache() {
	codec := e.m.Codec()
	kept := 0
	it := e.m.Prefix(nil)
	for {
		pair, ok := it.Next()
		if !ok {
			break
		}
		count := codec.Decode(pair.Value)
		if count < e.opts.HotMinCount {
			continue
		}
		if e.opts.HotMaxEntries > 0 && kept >= e.opts.HotMaxEntries {
			log.Debugf("Hot cache full at %d entries", kept)
			break
		}
		e.hot.Insert(patricia.Prefix(pair.Suffix), count)
		kept++
	}
	log.Debugf("Hot cache warmed: %d of %d entries", kept, e.m.Len())
}

// Map exposes the underlying automaton.
func (e *Engine) Map() *fst.Map { return e.m }

// Lookup returns the decoded count for an exact key.
func (e *Engine) Lookup(key string) (uint64, bool) {
	value, ok := e.m.GetString(key)
	if !ok {
		return 0, false
	}
	return e.m.Codec().Decode(value), true
}

// Predict returns up to limit continuations of prefix, most frequent
// first. Ties break by key order so results are deterministic.
func (e *Engine) Predict(prefix string, limit int) []Prediction {
	if limit <= 0 || (e.opts.MaxLimit > 0 && limit > e.opts.MaxLimit) {
		limit = e.opts.MaxLimit
	}

	preds := e.predictHot(prefix)
	if preds == nil {
		preds = e.predictScan(prefix)
	}

	sort.Slice(preds, func(i, j int) bool {
		if preds[i].Count != preds[j].Count {
			return preds[i].Count > preds[j].Count
		}
		return preds[i].Ngram < preds[j].Ngram
	})
	if limit > 0 && len(preds) > limit {
		preds = preds[:limit]
	}
	return preds
}

// predictHot answers from the hot cache. nil means the cache is disabled
// or has nothing below the prefix and the caller should scan the automaton.
func (e *Engine) predictHot(prefix string) []Prediction {
	if e.hot == nil {
		return nil
	}
	var preds []Prediction
	err := e.hot.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		preds = append(preds, Prediction{Ngram: string(p), Count: item.(uint64)})
		return nil
	})
	if err != nil {
		log.Errorf("Hot cache visit: %v", err)
		return nil
	}
	if len(preds) == 0 {
		return nil
	}
	return preds
}

// predictScan walks the automaton below the prefix.
func (e *Engine) predictScan(prefix string) []Prediction {
	codec := e.m.Codec()
	var preds []Prediction
	it := e.m.Prefix([]byte(prefix))
	for {
		pair, ok := it.Next()
		if !ok {
			break
		}
		preds = append(preds, Prediction{
			Ngram: prefix + string(pair.Suffix),
			Count: codec.Decode(pair.Value),
		})
	}
	return preds
}
