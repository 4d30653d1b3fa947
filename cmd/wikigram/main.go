// Copyright 2025 The Wikigram Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the wikigram build pipeline CLI.

Wikigram turns a plain-text Japanese corpus into a compact FST artifact
mapping word n-grams to frequency-derived scores, for use by a keyboard's
predictive-text engine. Documents are segmented with the kagome
morphological analyzer, n-gram windows of order 1..N are counted under a
bounded memory budget with sorted spill partitions, and the merged stream
is compiled into a minimal finite-state transducer.

# Usage

Build an artifact from one or more corpus files or directories:

	wikigram -o output/wiki-ngrams.wgfs corpus/extracted.txt

Inspect a built artifact:

	wikigram -stats output/wiki-ngrams.wgfs

# Command Line Flags

	-config string
	    Custom config.toml path
	-o string
	    Output artifact path
	-order int
	    Maximum n-gram order (1=unigram .. N)
	-min-freq int
	    Minimum frequency cutoff; keys with a lower count are dropped
	-mem int
	    Memory budget in MiB for in-memory aggregation before spilling
	-workers int
	    Tokenization workers (0 = NumCPU)
	-spill string
	    Spill directory (default: a temp dir, removed after the build)
	-scheme string
	    Score scheme: "count" or "log"
	-stats string
	    Print header and sample entries of an artifact, then exit
	-d  Enable debug logging

Each input is either a file of newline-delimited documents or a directory
whose regular files are read the same way. The corpus must already be
extracted to plain text; downloading and dump extraction happen upstream.

The artifact is staged next to the output path and atomically renamed into
place, so a failed or interrupted build never clobbers a published
artifact. The build exits non-zero with the first fatal error.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/mkthr/wikigram/internal/utils"
	"github.com/mkthr/wikigram/pkg/config"
	"github.com/mkthr/wikigram/pkg/fst"
	"github.com/mkthr/wikigram/pkg/ngram"
	"github.com/mkthr/wikigram/pkg/pipeline"
	"github.com/mkthr/wikigram/pkg/tokenize"
)

const (
	Version = "0.3.0"
	AppName = "wikigram"
)

func main() {
	defaults := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Custom config.toml path")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	output := flag.String("o", defaults.Build.OutputPath, "Output artifact path")
	order := flag.Int("order", defaults.Build.MaxNgramOrder, "Maximum n-gram order")
	minFreq := flag.Uint64("min-freq", defaults.Build.MinFrequencyCutoff, "Minimum frequency cutoff")
	memMiB := flag.Int64("mem", defaults.Build.MemoryBudget>>20, "Memory budget in MiB")
	workers := flag.Int("workers", defaults.Build.Workers, "Tokenization workers (0 = NumCPU)")
	spillDir := flag.String("spill", defaults.Build.SpillDir, "Spill directory")
	scheme := flag.String("scheme", defaults.Build.ScoreScheme, "Score scheme: count or log")
	statsPath := flag.String("stats", "", "Show artifact stats and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", AppName, Version)
		return
	}
	if *debugMode {
		log.SetLevel(log.DebugLevel)
	}

	if *statsPath != "" {
		if err := showStats(*statsPath); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	cfg, cfgPath, _ := config.LoadConfigWithPriority(*configPath)
	if cfgPath != "" {
		log.Debugf("Using config: %s", cfgPath)
	}
	build := cfg.Build
	applyFlag := func(name string, fn func()) {
		if flagWasSet(name) {
			fn()
		}
	}
	applyFlag("o", func() { build.OutputPath = *output })
	applyFlag("order", func() { build.MaxNgramOrder = *order })
	applyFlag("min-freq", func() { build.MinFrequencyCutoff = *minFreq })
	applyFlag("mem", func() { build.MemoryBudget = *memMiB << 20 })
	applyFlag("workers", func() { build.Workers = *workers })
	applyFlag("spill", func() { build.SpillDir = *spillDir })
	applyFlag("scheme", func() { build.ScoreScheme = *scheme })

	inputs := flag.Args()
	if len(inputs) == 0 {
		log.Fatal("No corpus inputs given. Usage: wikigram [flags] <file-or-dir>...")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := pipeline.Build(ctx, build, inputs, func() (tokenize.Segmenter, error) {
		return tokenize.NewKagome()
	})
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}

	fmt.Printf("Documents:  %d (%d skipped)\n", stats.Documents, stats.SkippedDocs)
	fmt.Printf("Sentences:  %d\n", stats.Sentences)
	fmt.Printf("Windows:    %d\n", stats.Windows)
	fmt.Printf("Spills:     %d\n", stats.SpillFiles)
	fmt.Printf("Keys kept:  %d\n", stats.KeptKeys)
	fmt.Printf("Artifact:   %s (%d bytes)\n", utils.GetAbsolutePath(build.OutputPath), stats.ArtifactBytes)
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// showStats prints the artifact header plus the first few entries.
func showStats(path string) error {
	m, err := fst.Open(path)
	if err != nil {
		return err
	}
	h := m.Header()
	fmt.Printf("Artifact:     %s\n", path)
	fmt.Printf("Version:      %d\n", h.Version)
	fmt.Printf("Max order:    %d\n", h.MaxOrder)
	fmt.Printf("Score scheme: %d\n", h.Scheme)
	fmt.Printf("Keys:         %d\n", h.KeyCount)
	fmt.Printf("State bytes:  %d\n", h.StateLen)

	fmt.Println("\nSample entries:")
	it := m.Prefix(nil)
	for i := 0; i < 10; i++ {
		pair, ok := it.Next()
		if !ok {
			break
		}
		tokens := ngram.DecodeKey(pair.Suffix)
		fmt.Printf("  %v => %d (count ~%d)\n", tokens, pair.Value, m.Codec().Decode(pair.Value))
	}
	return nil
}
