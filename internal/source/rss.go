package source

import (
	"context"
	"net/http"

	"github.com/mmcdole/gofeed"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/corpus"
	"github.com/tofu-daddy/longevity-hub/internal/normalize"
)

// rssAdapter handles feed-shaped sources (WHO news and any other
// configured RSS/Atom feed). Feed items are news-grade editorial content.
type rssAdapter struct {
	key    string
	name   string
	url    string
	limit  int
	parser *gofeed.Parser
	client *http.Client
}

func newRSSAdapter(src config.Source, client *http.Client) *rssAdapter {
	return &rssAdapter{
		key:    src.Key,
		name:   src.Name,
		url:    src.URL,
		limit:  capItems(src.MaxItems, 10),
		parser: gofeed.NewParser(),
		client: client,
	}
}

func (a *rssAdapter) Key() string { return a.key }

func (a *rssAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	resp, err := get(ctx, a.client, a.url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := a.parser.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(candidates) >= a.limit {
			break
		}

		title := normalize.StripHTML(item.Title)
		link := normalize.StripHTML(item.Link)
		if title == "" || link == "" {
			continue
		}

		localID := item.GUID
		if localID == "" {
			localID = link
		}

		abstract := normalize.StripHTML(item.Description)
		if abstract == "" {
			abstract = title
		}

		published := item.Published
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.Format(normalize.ISODate)
		}

		candidates = append(candidates, Candidate{
			ExternalID:      normalize.ExternalID(a.key, localID),
			Title:           title,
			Abstract:        abstract,
			SourceName:      a.name,
			SourceURL:       link,
			SourceType:      corpus.News,
			EvidenceQuality: corpus.Editorial,
			PublishedDate:   normalize.Date(published),
		})
	}
	return candidates, nil
}
