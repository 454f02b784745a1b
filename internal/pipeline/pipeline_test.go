package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/tofu-daddy/longevity-hub/internal/corpus"
	"github.com/tofu-daddy/longevity-hub/internal/enrich"
	"github.com/tofu-daddy/longevity-hub/internal/source"
)

type stubAdapter struct {
	key        string
	candidates []source.Candidate
	err        error
}

func (s stubAdapter) Key() string { return s.key }

func (s stubAdapter) Fetch(ctx context.Context) ([]source.Candidate, error) {
	return s.candidates, s.err
}

type failingEnricher struct{}

func (failingEnricher) Enrich(_ context.Context, _, _ string) (enrich.Result, error) {
	return enrich.Result{}, errors.New("generation service down")
}

func candidate(id, title, date string) source.Candidate {
	return source.Candidate{
		ExternalID:      id,
		Title:           title,
		Abstract:        "Abstract for " + title,
		SourceName:      "Test Source",
		SourceURL:       "https://example.com/" + id,
		SourceType:      corpus.News,
		EvidenceQuality: corpus.Editorial,
		PublishedDate:   date,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(dir string) Options {
	return Options{
		CorpusPath: filepath.Join(dir, "articles.json"),
		BatchSize:  10,
		MaxCorpus:  200,
	}
}

func TestRunAddsAndPersists(t *testing.T) {
	opts := testOptions(t.TempDir())
	adapters := []source.Adapter{
		stubAdapter{key: "whonews", candidates: []source.Candidate{
			candidate("whonews:xyz", "Study links afternoon sun exposure to better sleep quality", "2024-02-05"),
		}},
	}

	outcome, err := Run(context.Background(), opts, adapters, enrich.Fallback{}, quietLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Added != 1 || outcome.CorpusSize != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	records, err := corpus.Load(opts.CorpusPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r := records[0]
	if r.ExternalID != "whonews:xyz" {
		t.Errorf("unexpected externalId: %q", r.ExternalID)
	}
	if r.Slug != "study-links-afternoon-sun-exposure-to-better-sleep-quality" {
		t.Errorf("unexpected slug: %q", r.Slug)
	}
	if !r.HasExplanation {
		t.Error("fallback enrichment should set hasExplanation")
	}
	if len(r.KeyTakeaways) != 3 {
		t.Errorf("expected 3 takeaways, got %d", len(r.KeyTakeaways))
	}
	if r.Excerpt == "" || len([]rune(r.Excerpt)) > 220 {
		t.Errorf("excerpt must be a non-empty <=220-char prefix, got %d chars", len([]rune(r.Excerpt)))
	}
	hasSleep := false
	for _, c := range r.Categories {
		if c.Slug == "sleep" {
			hasSleep = true
		}
	}
	if !hasSleep {
		t.Errorf("expected sleep category, got %v", r.Categories)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	opts := testOptions(t.TempDir())
	adapters := []source.Adapter{
		stubAdapter{key: "whonews", candidates: []source.Candidate{
			candidate("whonews:xyz", "Sleep findings", "2024-02-05"),
			candidate("whonews:abc", "Exercise findings", "2024-02-04"),
		}},
	}

	if _, err := Run(context.Background(), opts, adapters, enrich.Fallback{}, quietLogger()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := os.ReadFile(opts.CorpusPath)
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := Run(context.Background(), opts, adapters, enrich.Fallback{}, quietLogger())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if outcome.Added != 0 {
		t.Errorf("second run over unchanged feed must add nothing, added %d", outcome.Added)
	}

	second, err := os.ReadFile(opts.CorpusPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("corpus must be byte-for-byte unchanged after an idempotent run")
	}
}

func TestRunDedupsAgainstExistingCorpus(t *testing.T) {
	opts := testOptions(t.TempDir())
	existing := []corpus.ArticleRecord{{
		ExternalID:    "whonews:xyz",
		Slug:          "old-item",
		Title:         "Old item",
		PublishedDate: "2024-01-01",
		KeyTakeaways:  []string{},
		Categories:    []corpus.Category{{Slug: "healthspan", Name: "Healthspan"}},
	}}
	if err := corpus.Save(opts.CorpusPath, existing); err != nil {
		t.Fatal(err)
	}

	adapters := []source.Adapter{
		stubAdapter{key: "whonews", candidates: []source.Candidate{
			candidate("whonews:xyz", "Old item", "2024-01-01"),
		}},
	}
	outcome, err := Run(context.Background(), opts, adapters, enrich.Fallback{}, quietLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Added != 0 {
		t.Errorf("already-seen item must not survive dedup, added %d", outcome.Added)
	}
	if outcome.CorpusSize != 1 {
		t.Errorf("corpus length must be unchanged, got %d", outcome.CorpusSize)
	}
}

func TestRunFailSoftSources(t *testing.T) {
	opts := testOptions(t.TempDir())
	adapters := []source.Adapter{
		stubAdapter{key: "nihnews", err: errors.New("503 service unavailable")},
		stubAdapter{key: "whonews", candidates: []source.Candidate{
			candidate("whonews:ok", "Healthy item", "2024-02-01"),
		}},
	}

	outcome, err := Run(context.Background(), opts, adapters, enrich.Fallback{}, quietLogger())
	if err != nil {
		t.Fatalf("a failing source must not abort the run: %v", err)
	}
	if outcome.Added != 1 {
		t.Errorf("expected 1 record from the healthy source, got %d", outcome.Added)
	}
	if outcome.Sources[0].Err == nil {
		t.Error("expected the source failure to be reported in the outcome")
	}
}

func TestRunEnrichmentFailureIsFatalAndWriteless(t *testing.T) {
	opts := testOptions(t.TempDir())
	existing := []corpus.ArticleRecord{{
		ExternalID:    "whonews:old",
		Slug:          "old",
		Title:         "Old",
		PublishedDate: "2024-01-01",
		KeyTakeaways:  []string{},
		Categories:    []corpus.Category{{Slug: "healthspan", Name: "Healthspan"}},
	}}
	if err := corpus.Save(opts.CorpusPath, existing); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(opts.CorpusPath)

	adapters := []source.Adapter{
		stubAdapter{key: "whonews", candidates: []source.Candidate{
			candidate("whonews:new", "New item", "2024-02-01"),
		}},
	}
	if _, err := Run(context.Background(), opts, adapters, failingEnricher{}, quietLogger()); err == nil {
		t.Fatal("enrichment failure must fail the run")
	}

	after, _ := os.ReadFile(opts.CorpusPath)
	if !bytes.Equal(before, after) {
		t.Error("a failed run must leave the corpus untouched")
	}
}

func TestRunBatchSizeCapsEnrichment(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.BatchSize = 3

	var candidates []source.Candidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, candidate(
			fmt.Sprintf("whonews:%d", i), fmt.Sprintf("Item %d", i), "2024-02-01"))
	}
	adapters := []source.Adapter{stubAdapter{key: "whonews", candidates: candidates}}

	outcome, err := Run(context.Background(), opts, adapters, enrich.Fallback{}, quietLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Added != 3 {
		t.Errorf("expected batch capped at 3, got %d", outcome.Added)
	}
}

func TestRunDropsMalformedCandidates(t *testing.T) {
	opts := testOptions(t.TempDir())
	adapters := []source.Adapter{
		stubAdapter{key: "whonews", candidates: []source.Candidate{
			{ExternalID: "whonews:no-title", Abstract: "a", PublishedDate: "2024-02-01"},
			{Title: "No id", Abstract: "a", PublishedDate: "2024-02-01"},
			candidate("whonews:good", "Good item", "2024-02-01"),
		}},
	}

	outcome, err := Run(context.Background(), opts, adapters, enrich.Fallback{}, quietLogger())
	if err != nil {
		t.Fatalf("malformed candidates must be dropped, not errors: %v", err)
	}
	if outcome.Added != 1 {
		t.Errorf("expected only the complete candidate, got %d", outcome.Added)
	}
}

func TestRunMergeCapTo200(t *testing.T) {
	opts := testOptions(t.TempDir())

	var existing []corpus.ArticleRecord
	for i := 0; i < 200; i++ {
		existing = append(existing, corpus.ArticleRecord{
			ExternalID:    fmt.Sprintf("old:%d", i),
			Slug:          fmt.Sprintf("old-%d", i),
			Title:         fmt.Sprintf("Old %d", i),
			PublishedDate: fmt.Sprintf("2023-01-%02d", i%28+1),
			KeyTakeaways:  []string{},
			Categories:    []corpus.Category{{Slug: "healthspan", Name: "Healthspan"}},
		})
	}
	if err := corpus.Save(opts.CorpusPath, corpus.Merge(nil, existing, 200)); err != nil {
		t.Fatal(err)
	}

	var fresh []source.Candidate
	for i := 0; i < 5; i++ {
		fresh = append(fresh, candidate(fmt.Sprintf("new:%d", i), fmt.Sprintf("New %d", i), fmt.Sprintf("2024-06-%02d", i+1)))
	}
	adapters := []source.Adapter{stubAdapter{key: "whonews", candidates: fresh}}

	outcome, err := Run(context.Background(), opts, adapters, enrich.Fallback{}, quietLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.CorpusSize != 200 {
		t.Fatalf("expected corpus capped at 200, got %d", outcome.CorpusSize)
	}

	records, err := corpus.Load(opts.CorpusPath)
	if err != nil {
		t.Fatal(err)
	}
	fresh5 := 0
	ids := make(map[string]bool)
	for i, r := range records {
		if ids[r.ExternalID] {
			t.Fatalf("duplicate externalId %q", r.ExternalID)
		}
		ids[r.ExternalID] = true
		if r.PublishedDate >= "2024-06-01" {
			fresh5++
		}
		if i > 0 && records[i-1].PublishedDate < r.PublishedDate {
			t.Fatalf("publishedDate not non-increasing at %d", i)
		}
	}
	if fresh5 != 5 {
		t.Errorf("the 5 newest records must survive the cap, found %d", fresh5)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.DryRun = true

	adapters := []source.Adapter{
		stubAdapter{key: "whonews", candidates: []source.Candidate{
			candidate("whonews:xyz", "Item", "2024-02-01"),
		}},
	}
	outcome, err := Run(context.Background(), opts, adapters, enrich.Fallback{}, quietLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Added != 1 {
		t.Errorf("dry run still reports what would be added, got %d", outcome.Added)
	}
	if _, err := os.Stat(opts.CorpusPath); !os.IsNotExist(err) {
		t.Error("dry run must not create the corpus file")
	}
}
