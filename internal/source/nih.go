package source

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/corpus"
	"github.com/tofu-daddy/longevity-hub/internal/normalize"
)

const (
	nihLinkPrefix = "/news-events/news-releases/"
	nihScanLimit  = 12
	// Link texts shorter than this are navigation chrome, not headlines.
	nihMinTextLen = 20
)

// Listing dates look like "February 5, 2024" embedded in the link text.
var nihDatePattern = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b`)

// nihAdapter scrapes the NIH news-release listing page. There is no feed
// or API for it, so candidates come from anchors matching the release
// URL pattern.
type nihAdapter struct {
	key    string
	name   string
	url    string
	limit  int
	client *http.Client
}

func newNIHAdapter(src config.Source, client *http.Client) *nihAdapter {
	return &nihAdapter{
		key:    src.Key,
		name:   src.Name,
		url:    src.URL,
		limit:  capItems(src.MaxItems, nihScanLimit),
		client: client,
	}
}

func (a *nihAdapter) Key() string { return a.key }

func (a *nihAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	resp, err := get(ctx, a.client, a.url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	base := a.url
	if u, err := url.Parse(a.url); err == nil {
		base = u.Scheme + "://" + u.Host
	}
	seen := make(map[string]bool)
	var candidates []Candidate

	doc.Find(`a[href^="` + nihLinkPrefix + `"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if href == "" || len(text) < nihMinTextLen {
			return true
		}
		// The same release is linked several times per page.
		if seen[href] {
			return true
		}
		seen[href] = true

		published := normalize.Date("")
		title := text
		if loc := nihDatePattern.FindStringIndex(text); loc != nil {
			published = normalize.Date(text[loc[0]:loc[1]])
			title = strings.TrimSpace(text[:loc[0]])
		}
		if title == "" {
			title = text
		}

		candidates = append(candidates, Candidate{
			ExternalID:      normalize.ExternalID(a.key, href),
			Title:           title,
			Abstract:        text,
			SourceName:      a.name,
			SourceURL:       base + href,
			SourceType:      corpus.News,
			EvidenceQuality: corpus.Editorial,
			PublishedDate:   published,
		})
		return len(candidates) < a.limit
	})

	return candidates, nil
}
