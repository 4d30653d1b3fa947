/*
Package pipeline orchestrates one full corpus-to-artifact build.

The pipeline is staged fork-join: a producer streams documents to a bounded
channel, N workers each own a segmenter and an aggregator and count n-gram
windows over independent document shards, and the resulting sorted
partitions are merged single-threaded into the FST builder. The merge and
construction stages are the pipeline's serialization points. A failed or
cancelled build never publishes an artifact; the output file is staged and
atomically promoted only on full success.
*/
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/mkthr/wikigram/pkg/config"
	"github.com/mkthr/wikigram/pkg/count"
	"github.com/mkthr/wikigram/pkg/fst"
	"github.com/mkthr/wikigram/pkg/ngram"
	"github.com/mkthr/wikigram/pkg/tokenize"
)

// Stats summarizes one completed build.
type Stats struct {
	Documents     uint64
	SkippedDocs   uint64
	Sentences     uint64
	Windows       uint64
	SpillFiles    int
	KeptKeys      uint64
	ArtifactBytes int64
}

// SegmenterFactory produces one segmenter per worker. Workers never share
// a segmenter instance; only the underlying model data is shared.
type SegmenterFactory func() (tokenize.Segmenter, error)

const (
	docChanBuffer  = 256
	scanBufferSize = 1 << 20
	maxLineSize    = 16 << 20
)

// Build runs the full pipeline: documents from inputs are tokenized,
// n-gram windows of order 1..MaxNgramOrder are counted under the memory
// budget, partitions are merged with the frequency cutoff applied, and the
// FST artifact is written to cfg.OutputPath.
func Build(ctx context.Context, cfg config.BuildConfig, inputs []string, newSegmenter SegmenterFactory) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid build config: %w", err)
	}
	codec, err := codecFor(cfg.ScoreScheme)
	if err != nil {
		return nil, err
	}

	spillDir := cfg.SpillDir
	ownSpillDir := false
	if spillDir == "" {
		spillDir, err = os.MkdirTemp("", "wikigram-spill-")
		if err != nil {
			return nil, fmt.Errorf("creating spill directory: %w", err)
		}
		ownSpillDir = true
	}
	defer func() {
		if ownSpillDir {
			if rmErr := os.RemoveAll(spillDir); rmErr != nil {
				log.Warnf("Removing spill directory %s: %v", spillDir, rmErr)
			}
		}
	}()

	workers := cfg.EffectiveWorkers()
	budgetPerWorker := cfg.MemoryBudget / int64(workers)
	log.Debugf("Starting build: order=%d cutoff=%d workers=%d budget=%d",
		cfg.MaxNgramOrder, cfg.MinFrequencyCutoff, workers, cfg.MemoryBudget)

	var stats Stats
	docs := make(chan string, docChanBuffer)
	workerParts := make([][]count.Partition, workers)
	aggs := make([]*count.Aggregator, workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(docs)
		return streamDocuments(gctx, inputs, docs)
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			seg, err := newSegmenter()
			if err != nil {
				return fmt.Errorf("worker %d segmenter: %w", i, err)
			}
			agg := count.NewAggregator(filepath.Join(spillDir, fmt.Sprintf("w%02d", i)), budgetPerWorker, 0)
			aggs[i] = agg

			for doc := range docs {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				if err := processDocument(doc, seg, cfg.MaxNgramOrder, agg, &stats); err != nil {
					return err
				}
			}

			parts, err := agg.Finish()
			if err != nil {
				return err
			}
			workerParts[i] = parts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, parts := range workerParts {
			count.CloseAll(parts)
		}
		return nil, err
	}

	var allParts []count.Partition
	for i, parts := range workerParts {
		allParts = append(allParts, parts...)
		stats.SpillFiles += len(aggs[i].SpillFiles())
	}
	defer func() {
		if err := count.CloseAll(allParts); err != nil {
			log.Warnf("Closing partitions: %v", err)
		}
		if !ownSpillDir {
			for _, agg := range aggs {
				if agg != nil {
					count.RemoveSpillFiles(agg.SpillFiles())
				}
			}
		}
	}()

	log.Debugf("Merging %d partitions (%d spilled to disk)", len(allParts), stats.SpillFiles)

	// Serialization point: the merge feeds the builder one strictly
	// increasing key at a time.
	builder := fst.NewBuilder()
	mergeErr := count.Merge(allParts, cfg.MinFrequencyCutoff, func(key []byte, c uint64) error {
		return builder.Insert(key, codec.Encode(c))
	})
	if mergeErr != nil {
		return nil, mergeErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, root, err := builder.Finish()
	if err != nil {
		return nil, err
	}
	stats.KeptKeys = builder.NumKeys()

	if err := fst.WriteFile(cfg.OutputPath, data, root, builder.NumKeys(), cfg.MaxNgramOrder, codec.Scheme()); err != nil {
		return nil, err
	}
	if info, err := os.Stat(cfg.OutputPath); err == nil {
		stats.ArtifactBytes = info.Size()
	}

	log.Infof("Build complete: %d documents, %d windows, %d keys kept, %d byte artifact",
		stats.Documents, stats.Windows, stats.KeptKeys, stats.ArtifactBytes)
	return &stats, nil
}

// processDocument counts all windows of one document. A segmentation
// failure skips the document and keeps the build going; any other error
// (notably spill I/O) is fatal.
func processDocument(doc string, seg tokenize.Segmenter, maxOrder int, agg *count.Aggregator, stats *Stats) error {
	atomic.AddUint64(&stats.Documents, 1)

	for _, sentence := range tokenize.SplitSentences(doc) {
		tokens, err := seg.Tokens(sentence)
		if err != nil {
			var segErr *tokenize.SegmentationError
			if errors.As(err, &segErr) {
				log.Warnf("Skipping document: %v", segErr)
				atomic.AddUint64(&stats.SkippedDocs, 1)
				return nil
			}
			return err
		}
		if len(tokens) == 0 {
			continue
		}
		atomic.AddUint64(&stats.Sentences, 1)

		if err := ngram.Extract(tokens, maxOrder, func(key []byte) error {
			atomic.AddUint64(&stats.Windows, 1)
			return agg.Add(key, 1)
		}); err != nil {
			return err
		}
	}
	return nil
}

// streamDocuments feeds every newline-delimited record of the input files
// (or of every regular file under input directories) to the docs channel.
func streamDocuments(ctx context.Context, inputs []string, docs chan<- string) error {
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("stat input %s: %w", input, err)
		}
		if info.IsDir() {
			err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.Type().IsRegular() {
					return nil
				}
				return streamFile(ctx, path, docs)
			})
			if err != nil {
				return err
			}
			continue
		}
		if err := streamFile(ctx, input, docs); err != nil {
			return err
		}
	}
	return nil
}

func streamFile(ctx context.Context, path string, docs chan<- string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening corpus file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, scanBufferSize), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		select {
		case docs <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	return nil
}

func codecFor(scheme string) (fst.ScoreCodec, error) {
	switch scheme {
	case "count":
		return fst.CountCodec{}, nil
	case "log":
		return fst.LogCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown score scheme %q", scheme)
	}
}
