// Package pipeline orchestrates one ingestion run: fetch candidates from
// every enabled source, dedup against the corpus, enrich and classify the
// survivors, and persist the merged corpus.
//
// Failure policy is deliberately two-tier. Source fetches are fail-soft:
// a broken source contributes nothing and the run continues. Enrichment
// and corpus I/O are fatal: the run aborts before anything is written, so
// a failed run leaves the corpus byte-for-byte untouched.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tofu-daddy/longevity-hub/internal/corpus"
	"github.com/tofu-daddy/longevity-hub/internal/enrich"
	"github.com/tofu-daddy/longevity-hub/internal/normalize"
	"github.com/tofu-daddy/longevity-hub/internal/source"
	"github.com/tofu-daddy/longevity-hub/internal/taxonomy"
)

const (
	excerptMax   = 220
	takeawaysMax = 5
)

// Options configure a single run.
type Options struct {
	CorpusPath string
	BatchSize  int // max candidates enriched per run
	MaxCorpus  int // corpus size cap
	DryRun     bool
}

// SourceOutcome records how one source fared during the run.
type SourceOutcome struct {
	Key        string
	Candidates int
	Err        error
}

// Outcome summarizes a completed run.
type Outcome struct {
	Added      int
	CorpusSize int
	Sources    []SourceOutcome
}

// Run executes one ingestion pass. The corpus file is treated as
// exclusively owned for the duration: the operational contract is that
// runs never overlap.
func Run(ctx context.Context, opts Options, adapters []source.Adapter, enricher enrich.Enricher, log *slog.Logger) (Outcome, error) {
	existing, err := corpus.Load(opts.CorpusPath)
	if err != nil {
		return Outcome{}, err
	}

	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.ExternalID] = true
	}

	results := source.FetchAll(ctx, adapters)

	outcome := Outcome{Sources: make([]SourceOutcome, 0, len(results))}
	var incoming []source.Candidate
	for _, res := range results {
		outcome.Sources = append(outcome.Sources, SourceOutcome{Key: res.Key, Candidates: len(res.Candidates), Err: res.Err})
		if res.Err != nil {
			// Fail-soft: a dead source never aborts the run.
			log.Warn("source fetch failed", "source", res.Key, "error", res.Err)
			continue
		}
		log.Debug("source fetched", "source", res.Key, "candidates", len(res.Candidates))
		incoming = append(incoming, res.Candidates...)
	}

	// Dedup before enrichment so previously seen items never consume a
	// generation call. Within the batch, first occurrence wins.
	var survivors []source.Candidate
	for _, c := range incoming {
		if !c.Valid() || seen[c.ExternalID] {
			continue
		}
		seen[c.ExternalID] = true
		survivors = append(survivors, c)
	}
	if opts.BatchSize > 0 && len(survivors) > opts.BatchSize {
		survivors = survivors[:opts.BatchSize]
	}

	// Enrichment is strictly sequential to bound the outbound request
	// rate, and fatal on the first error.
	fresh := make([]corpus.ArticleRecord, 0, len(survivors))
	for _, c := range survivors {
		res, err := enricher.Enrich(ctx, c.Title, c.Abstract)
		if err != nil {
			return Outcome{}, fmt.Errorf("enriching %s: %w", c.ExternalID, err)
		}
		fresh = append(fresh, buildRecord(c, res))
	}

	merged := corpus.Merge(fresh, existing, opts.MaxCorpus)
	outcome.Added = len(fresh)
	outcome.CorpusSize = len(merged)

	if opts.DryRun {
		log.Info("dry run, corpus not written", "would_add", len(fresh))
		return outcome, nil
	}

	if err := corpus.Save(opts.CorpusPath, merged); err != nil {
		return Outcome{}, err
	}
	log.Info("corpus updated", "added", len(fresh), "total", len(merged))
	return outcome, nil
}

func buildRecord(c source.Candidate, res enrich.Result) corpus.ArticleRecord {
	takeaways := res.KeyTakeaways
	if len(takeaways) > takeawaysMax {
		takeaways = takeaways[:takeawaysMax]
	}
	if takeaways == nil {
		takeaways = []string{}
	}

	return corpus.ArticleRecord{
		ExternalID:         c.ExternalID,
		Slug:               normalize.Slug(c.Title),
		Title:              c.Title,
		Excerpt:            normalize.Truncate(res.TechnicalSummary, excerptMax),
		TechnicalSummary:   res.TechnicalSummary,
		LaymansExplanation: res.LaymansExplanation,
		KeyTakeaways:       takeaways,
		HasExplanation:     res.LaymansExplanation != "",
		SourceName:         c.SourceName,
		SourceURL:          c.SourceURL,
		SourceType:         c.SourceType,
		EvidenceQuality:    c.EvidenceQuality,
		PublishedDate:      c.PublishedDate,
		Categories:         taxonomy.Classify(c.Title + " " + c.Abstract),
	}
}
