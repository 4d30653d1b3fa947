/*
Package main implements the gramserve query tool.

gramserve loads a published wikigram FST artifact and serves exact-lookup
and prefix-prediction requests over a msgpack stdin/stdout IPC protocol,
for embedding in a keyboard host process. The artifact is opened read-only
and shared by all requests; a concurrent rebuild replaces the file on disk
without affecting a running server.

Start the server:

	gramserve -index output/wiki-ngrams.wgfs

One-shot queries for debugging:

	gramserve -index output/wiki-ngrams.wgfs -q "東京 都"
	gramserve -index output/wiki-ngrams.wgfs -p "東京" -limit 8
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/mkthr/wikigram/pkg/config"
	"github.com/mkthr/wikigram/pkg/predict"
	"github.com/mkthr/wikigram/pkg/server"
)

const (
	Version = "0.3.0"
	AppName = "gramserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

func main() {
	sigHandler()
	defaults := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Custom config.toml path")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	indexPath := flag.String("index", defaults.Build.OutputPath, "Path to the FST artifact")
	query := flag.String("q", "", "One-shot exact lookup for a key, then exit")
	prefix := flag.String("p", "", "One-shot prefix prediction, then exit")
	limit := flag.Int("limit", 0, "Prediction limit for -p")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", AppName, Version)
		return
	}
	if *debugMode {
		log.SetLevel(log.DebugLevel)
	}

	cfg, _, _ := config.LoadConfigWithPriority(*configPath)

	engine, err := predict.Open(*indexPath, predict.Options{
		HotMinCount:   cfg.Serve.HotMinCount,
		HotMaxEntries: cfg.Serve.HotMaxEntries,
		MaxLimit:      cfg.Serve.MaxLimit,
	})
	if err != nil {
		log.Fatalf("Opening index: %v", err)
	}
	log.Debugf("Loaded %d keys from %s", engine.Map().Len(), *indexPath)

	switch {
	case *query != "":
		count, found := engine.Lookup(*query)
		if !found {
			fmt.Printf("%q: not found\n", *query)
			os.Exit(1)
		}
		fmt.Printf("%q: %d\n", *query, count)
	case *prefix != "":
		for _, p := range engine.Predict(*prefix, *limit) {
			fmt.Printf("%s\t%d\n", p.Ngram, p.Count)
		}
	default:
		if err := server.NewServer(engine).Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}
