package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/corpus"
	"github.com/tofu-daddy/longevity-hub/internal/normalize"
)

// medrxivWindow is how far back the preprint index is queried.
const medrxivWindow = 30 * 24 * time.Hour

// medrxivAdapter pulls recent preprints from the medRxiv details API.
type medrxivAdapter struct {
	key    string
	name   string
	url    string
	limit  int
	client *http.Client
}

func newMedrxivAdapter(src config.Source, client *http.Client) *medrxivAdapter {
	return &medrxivAdapter{
		key:    src.Key,
		name:   src.Name,
		url:    src.URL,
		limit:  capItems(src.MaxItems, 8),
		client: client,
	}
}

func (a *medrxivAdapter) Key() string { return a.key }

func (a *medrxivAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	now := normalize.Now().UTC()
	from := now.Add(-medrxivWindow).Format(normalize.ISODate)
	to := now.Format(normalize.ISODate)

	resp, err := get(ctx, a.client, fmt.Sprintf("%s/%s/%s/0", a.url, from, to))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Collection []struct {
			DOI      string `json:"doi"`
			Title    string `json:"title"`
			Abstract string `json:"abstract"`
			Date     string `json:"date"`
		} `json:"collection"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding collection: %w", err)
	}

	var candidates []Candidate
	for _, item := range payload.Collection {
		if len(candidates) >= a.limit {
			break
		}
		if item.DOI == "" || item.Title == "" || item.Abstract == "" {
			continue
		}

		candidates = append(candidates, Candidate{
			ExternalID:      normalize.ExternalID(a.key, item.DOI),
			Title:           item.Title,
			Abstract:        item.Abstract,
			SourceName:      a.name,
			SourceURL:       "https://doi.org/" + item.DOI,
			SourceType:      corpus.ResearchPaper,
			EvidenceQuality: corpus.Observational,
			PublishedDate:   normalize.Date(item.Date),
		})
	}
	return candidates, nil
}
