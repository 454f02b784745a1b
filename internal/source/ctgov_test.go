package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/corpus"
)

const ctgovPayload = `{
  "studies": [
    {
      "protocolSection": {
        "identificationModule": {"nctId": "NCT01234567", "briefTitle": "Exercise and Metabolic Health in Older Adults"},
        "descriptionModule": {"briefSummary": "A randomized study of aerobic training."},
        "designModule": {"designInfo": {"allocation": "RANDOMIZED"}},
        "statusModule": {"studyFirstPostDateStruct": {"date": "2024-02"}}
      }
    },
    {
      "protocolSection": {
        "identificationModule": {"nctId": "NCT07654321", "briefTitle": "Observation of Fasting Patterns"},
        "descriptionModule": {"briefSummary": "An observational cohort."},
        "statusModule": {"startDateStruct": {"date": "2023"}}
      }
    },
    {
      "protocolSection": {
        "identificationModule": {"nctId": "NCT00000001", "briefTitle": "Study missing its summary"}
      }
    }
  ]
}`

func ctgovSource(url string) config.Source {
	return config.Source{Key: "ctgov", Name: "ClinicalTrials.gov", Kind: "json", URL: url, MaxItems: 8}
}

func TestCTGovAdapterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("missing format param: %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("query.term") == "" {
			t.Error("missing query.term param")
		}
		w.Write([]byte(ctgovPayload))
	}))
	defer srv.Close()

	a := newCTGovAdapter(ctgovSource(srv.URL), []string{"longevity", "aging"}, srv.Client())
	candidates, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates (summary-less study dropped), got %d", len(candidates))
	}

	c := candidates[0]
	if c.ExternalID != "ctgov:nct01234567" {
		t.Errorf("unexpected externalId: %q", c.ExternalID)
	}
	if c.EvidenceQuality != corpus.RCT {
		t.Errorf("randomized allocation should map to rct, got %s", c.EvidenceQuality)
	}
	if c.SourceType != corpus.ClinicalTrial {
		t.Errorf("expected clinical_trial, got %s", c.SourceType)
	}
	if c.PublishedDate != "2024-02-01" {
		t.Errorf("year-month date should pad to first of month, got %q", c.PublishedDate)
	}
	if c.SourceURL != "https://clinicaltrials.gov/study/NCT01234567" {
		t.Errorf("unexpected sourceUrl: %q", c.SourceURL)
	}

	if candidates[1].EvidenceQuality != corpus.Observational {
		t.Errorf("missing allocation should map to observational, got %s", candidates[1].EvidenceQuality)
	}
	if candidates[1].PublishedDate != "2023-01-01" {
		t.Errorf("year-only date should pad to Jan 1, got %q", candidates[1].PublishedDate)
	}
}

func TestCTGovAdapterBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance page</html>"))
	}))
	defer srv.Close()

	a := newCTGovAdapter(ctgovSource(srv.URL), []string{"longevity"}, srv.Client())
	if _, err := a.Fetch(context.Background()); err == nil {
		t.Error("expected error for non-JSON payload")
	}
}
