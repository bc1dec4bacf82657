// Package main provides the wikiladder CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/orneryd/wikiladder/pkg/config"
	"github.com/orneryd/wikiladder/pkg/graph"
	"github.com/orneryd/wikiladder/pkg/logging"
	"github.com/orneryd/wikiladder/pkg/mediawiki"
	"github.com/orneryd/wikiladder/pkg/racer"
	"github.com/orneryd/wikiladder/pkg/storage"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wikiladder",
		Short: "wikiladder - find chains of links between encyclopedia pages",
		Long: `wikiladder finds a chain of clickable links connecting one
encyclopedia page to another, the way a human would play the wiki
racing game.

Features:
  • Bidirectional heuristic search (anchor + completion phases)
  • Budget-bounded API usage with automatic backoff
  • Optional on-disk link cache for repeated races
  • Multi-stop races through a whole list of pages`,
	}

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wikiladder v%s (%s) built %s\n", version, commit, buildTime)
		},
	})

	// Race command
	raceCmd := &cobra.Command{
		Use:   "race <start> <end> [more pages...]",
		Short: "Find a link chain through the given pages, in order",
		Long: `Find a chain of links from the first page to the second, then on
through any further pages in order. Page titles with spaces must be
quoted.

Examples:
  wikiladder race "Emu" "Stanford University"
  wikiladder race "Milk" "Cheese" "France" --cache`,
		Args: cobra.MinimumNArgs(2),
		RunE: runRace,
	}
	raceCmd.Flags().String("config", "", "Config file path (default: auto-discover)")
	raceCmd.Flags().Int("query-limit", 0, "Max results per backlink page fetch (1-500)")
	raceCmd.Flags().Int("anchor-threshold", 0, "Min inbound links for a page to anchor the search")
	raceCmd.Flags().Int("fetch-limit", 0, "Max paginated fetches per backlink query")
	raceCmd.Flags().String("domain", "", "Wiki domain (e.g. en.wikipedia.org)")
	raceCmd.Flags().Bool("cache", false, "Persist fetched link sets on disk")
	raceCmd.Flags().String("cache-dir", "", "Link cache directory")
	raceCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	raceCmd.Flags().String("log-format", "", "Log format: text, json")
	raceCmd.Flags().Duration("timeout", 0, "Overall search deadline (0 = none)")
	rootCmd.AddCommand(raceCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRace(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}

	// Flags beat the config file and environment.
	if v, _ := cmd.Flags().GetInt("query-limit"); v > 0 {
		cfg.Search.QueryLimit = v
	}
	if v, _ := cmd.Flags().GetInt("anchor-threshold"); v > 0 {
		cfg.Search.AnchorThreshold = v
	}
	if v, _ := cmd.Flags().GetInt("fetch-limit"); v > 0 {
		cfg.Search.FetchLimit = v
	}
	if v, _ := cmd.Flags().GetString("domain"); v != "" {
		cfg.Wiki.Domain = v
	}
	if v, _ := cmd.Flags().GetBool("cache"); v {
		cfg.Cache.Enabled = true
	}
	if v, _ := cmd.Flags().GetString("cache-dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Logging.Format = v
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(cfg.Logging.Format, cfg.Logging.Level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client := mediawiki.NewClient(mediawiki.Options{
		Domain:     cfg.Wiki.Domain,
		UserAgent:  cfg.Wiki.UserAgent,
		Timeout:    cfg.Wiki.Timeout,
		MaxLag:     cfg.Wiki.MaxLag,
		MaxRetries: cfg.Wiki.MaxRetries,
		Logger:     log,
	})

	var store graph.LinkStore
	if cfg.Cache.Enabled {
		badger, err := storage.Open(storage.Options{Dir: cfg.Cache.Dir})
		if err != nil {
			return fmt.Errorf("opening link cache: %w", err)
		}
		defer badger.Close()
		store = badger
		log.Info("link cache enabled", "dir", cfg.Cache.Dir)
	}

	oracle, err := graph.NewOracle(client, graph.Options{
		QueryLimit: cfg.Search.QueryLimit,
		FetchLimit: cfg.Search.FetchLimit,
		Store:      store,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	r, err := racer.New(oracle, cfg.Search.AnchorThreshold, racer.WithLogger(log))
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log.Info("race starting", "run_id", runID, "pages", args, "config", cfg.String())

	started := time.Now()
	path, err := r.FindPathChain(ctx, args...)
	elapsed := time.Since(started).Round(time.Millisecond)
	if err != nil {
		log.Error("race failed", "run_id", runID, "elapsed", elapsed, "error", err)
		return err
	}

	log.Info("race finished", "run_id", runID, "elapsed", elapsed, "hops", len(path)-1)
	fmt.Println(strings.Join(path, " -> "))
	return nil
}
