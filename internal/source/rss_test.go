package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/corpus"
)

const whoFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>WHO News</title>
  <item>
    <title><![CDATA[Study links afternoon sun exposure to better sleep quality]]></title>
    <link>https://www.who.int/news/item/sun-sleep</link>
    <guid>https://www.who.int/news/item/sun-sleep</guid>
    <pubDate>Mon, 05 Feb 2024 10:00:00 GMT</pubDate>
    <description><![CDATA[<p>New findings on light exposure &amp; circadian health.</p>]]></description>
  </item>
  <item>
    <title>Item without a link</title>
    <pubDate>Tue, 06 Feb 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Global health briefing</title>
    <link>https://www.who.int/news/item/briefing</link>
    <pubDate>Wed, 07 Feb 2024 10:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func whoSource(url string) config.Source {
	return config.Source{Key: "whonews", Name: "WHO News", Kind: "rss", URL: url, MaxItems: 10}
}

func TestRSSAdapterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(whoFeed))
	}))
	defer srv.Close()

	a := newRSSAdapter(whoSource(srv.URL), srv.Client())
	candidates, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates (link-less item dropped), got %d", len(candidates))
	}

	c := candidates[0]
	if c.Title != "Study links afternoon sun exposure to better sleep quality" {
		t.Errorf("unexpected title: %q", c.Title)
	}
	if c.PublishedDate != "2024-02-05" {
		t.Errorf("expected publishedDate 2024-02-05, got %q", c.PublishedDate)
	}
	if c.ExternalID != "whonews:https-www-who-int-news-item-sun-sleep" {
		t.Errorf("unexpected externalId: %q", c.ExternalID)
	}
	if c.Abstract != "New findings on light exposure & circadian health." {
		t.Errorf("expected stripped abstract, got %q", c.Abstract)
	}
	if c.SourceType != corpus.News || c.EvidenceQuality != corpus.Editorial {
		t.Errorf("unexpected provenance enums: %s/%s", c.SourceType, c.EvidenceQuality)
	}

	// Description-less item falls back to its title.
	if candidates[1].Abstract != "Global health briefing" {
		t.Errorf("expected title fallback abstract, got %q", candidates[1].Abstract)
	}
}

func TestRSSAdapterHonorsMaxItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(whoFeed))
	}))
	defer srv.Close()

	src := whoSource(srv.URL)
	src.MaxItems = 1
	a := newRSSAdapter(src, srv.Client())
	candidates, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("expected 1 candidate with max_items=1, got %d", len(candidates))
	}
}

func TestRSSAdapterNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := newRSSAdapter(whoSource(srv.URL), srv.Client())
	if _, err := a.Fetch(context.Background()); err == nil {
		t.Error("expected error for non-success status")
	}
}

func TestRSSAdapterUnparsablePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml"))
	}))
	defer srv.Close()

	a := newRSSAdapter(whoSource(srv.URL), srv.Client())
	if _, err := a.Fetch(context.Background()); err == nil {
		t.Error("expected error for unparsable feed")
	}
}
