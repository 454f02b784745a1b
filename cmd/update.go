package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/enrich"
	"github.com/tofu-daddy/longevity-hub/internal/pipeline"
	"github.com/tofu-daddy/longevity-hub/internal/runlog"
	"github.com/tofu-daddy/longevity-hub/internal/source"
)

var (
	flagCorpus  string
	flagLimit   int
	flagDryRun  bool
	flagVerbose bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run one ingestion pass over the enabled sources",
	Long: `Fetch new items from every enabled source, skip anything already in the
corpus, enrich the survivors with lay-language summaries, classify them,
and merge the result back into the corpus file.

Source failures are tolerated (that source just contributes nothing);
an enrichment or corpus-write failure aborts the run and leaves the
corpus untouched. Runs must not overlap: the corpus file has a single
owner for the duration of a run.`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&flagCorpus, "corpus", "", "path to the corpus file (default: xdg data dir)")
	updateCmd.Flags().IntVar(&flagLimit, "limit", 0, "max items enriched this run (default: config batch_size)")
	updateCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "fetch and enrich but do not write the corpus")
	updateCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "debug logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runUpdate(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var adapters []source.Adapter
	for _, src := range cfg.EnabledSources() {
		adapter, err := source.New(src, cfg.Keywords)
		if err != nil {
			return fmt.Errorf("building adapters: %w", err)
		}
		adapters = append(adapters, adapter)
	}
	if len(adapters) == 0 {
		return fmt.Errorf("no sources enabled; edit %s", config.DefaultConfigPath())
	}

	enricher, err := enrich.New(cfg.AI, cfg.AIKey())
	if err != nil {
		return fmt.Errorf("configuring enrichment: %w", err)
	}
	if !cfg.AIEnabled() {
		log.Debug("no AI credential configured, using offline summaries")
	}

	opts := pipeline.Options{
		CorpusPath: flagCorpus,
		BatchSize:  cfg.GetBatchSize(),
		MaxCorpus:  cfg.GetMaxCorpus(),
		DryRun:     flagDryRun,
	}
	if opts.CorpusPath == "" {
		opts.CorpusPath = config.CorpusPath()
	}
	if flagLimit > 0 {
		opts.BatchSize = flagLimit
	}

	start := time.Now()
	outcome, err := pipeline.Run(cmd.Context(), opts, adapters, enricher, log)
	if err != nil {
		return err
	}

	recordRun(log, outcome, time.Since(start))

	fmt.Printf("Updated corpus with %d new item(s) (%d total).\n", outcome.Added, outcome.CorpusSize)
	return nil
}

// recordRun appends the run to the history db. Best-effort: stats are
// not worth failing a successful ingestion over.
func recordRun(log *slog.Logger, outcome pipeline.Outcome, elapsed time.Duration) {
	rl, err := runlog.Open(config.RunLogPath())
	if err != nil {
		log.Warn("opening run log", "error", err)
		return
	}
	defer rl.Close()

	entry := runlog.Entry{
		RanAt:      time.Now(),
		NewRecords: outcome.Added,
		Duration:   elapsed,
		DryRun:     flagDryRun,
	}
	for _, s := range outcome.Sources {
		sr := runlog.SourceResult{Key: s.Key, Candidates: s.Candidates}
		if s.Err != nil {
			sr.Err = s.Err.Error()
		}
		entry.Sources = append(entry.Sources, sr)
	}

	if err := rl.Record(entry); err != nil {
		log.Warn("recording run", "error", err)
	}
}
