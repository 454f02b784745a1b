package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/corpus"
	"github.com/tofu-daddy/longevity-hub/internal/normalize"
)

// ctgovAdapter queries the ClinicalTrials.gov v2 studies API.
type ctgovAdapter struct {
	key      string
	name     string
	url      string
	keywords []string
	limit    int
	client   *http.Client
}

func newCTGovAdapter(src config.Source, keywords []string, client *http.Client) *ctgovAdapter {
	return &ctgovAdapter{
		key:      src.Key,
		name:     src.Name,
		url:      src.URL,
		keywords: keywords,
		limit:    capItems(src.MaxItems, 8),
		client:   client,
	}
}

func (a *ctgovAdapter) Key() string { return a.key }

type ctgovDate struct {
	Date string `json:"date"`
}

type ctgovStudy struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID      string `json:"nctId"`
			BriefTitle string `json:"briefTitle"`
		} `json:"identificationModule"`
		DescriptionModule struct {
			BriefSummary string `json:"briefSummary"`
		} `json:"descriptionModule"`
		DesignModule struct {
			DesignInfo struct {
				Allocation string `json:"allocation"`
			} `json:"designInfo"`
		} `json:"designModule"`
		StatusModule struct {
			StudyFirstPostDateStruct ctgovDate `json:"studyFirstPostDateStruct"`
			StartDateStruct          ctgovDate `json:"startDateStruct"`
		} `json:"statusModule"`
	} `json:"protocolSection"`
}

func (a *ctgovAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("pageSize", fmt.Sprintf("%d", a.limit))
	q.Set("query.term", strings.Join(a.keywords, " OR "))

	resp, err := get(ctx, a.client, a.url+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Studies []ctgovStudy `json:"studies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding studies: %w", err)
	}

	var candidates []Candidate
	for _, study := range payload.Studies {
		p := study.ProtocolSection
		nctID := p.IdentificationModule.NCTID
		title := p.IdentificationModule.BriefTitle
		abstract := p.DescriptionModule.BriefSummary
		if nctID == "" || title == "" || abstract == "" {
			continue
		}

		quality := corpus.Observational
		if strings.Contains(strings.ToLower(p.DesignModule.DesignInfo.Allocation), "randomized") {
			quality = corpus.RCT
		}

		date := p.StatusModule.StudyFirstPostDateStruct.Date
		if date == "" {
			date = p.StatusModule.StartDateStruct.Date
		}

		candidates = append(candidates, Candidate{
			ExternalID:      normalize.ExternalID(a.key, nctID),
			Title:           title,
			Abstract:        abstract,
			SourceName:      a.name,
			SourceURL:       "https://clinicaltrials.gov/study/" + nctID,
			SourceType:      corpus.ClinicalTrial,
			EvidenceQuality: quality,
			PublishedDate:   normalize.Date(date),
		})
	}
	return candidates, nil
}
