package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/normalize"
)

// pubmedAdapter searches PubMed via the E-utilities: a JSON esearch for
// matching ids, then one XML efetch per id. An id whose detail fetch
// fails is skipped rather than failing the whole source.
type pubmedAdapter struct {
	key      string
	name     string
	url      string
	keywords []string
	limit    int
	client   *http.Client
}

func newPubMedAdapter(src config.Source, keywords []string, client *http.Client) *pubmedAdapter {
	return &pubmedAdapter{
		key:      src.Key,
		name:     src.Name,
		url:      src.URL,
		keywords: keywords,
		limit:    capItems(src.MaxItems, 8),
		client:   client,
	}
}

func (a *pubmedAdapter) Key() string { return a.key }

func (a *pubmedAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	ids, err := a.search(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, pmid := range ids {
		c, err := a.fetchDetails(ctx, pmid)
		if err != nil || !c.Valid() {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (a *pubmedAdapter) search(ctx context.Context) ([]string, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", strings.Join(a.keywords, " OR "))
	q.Set("retmode", "json")
	q.Set("retmax", fmt.Sprintf("%d", a.limit))
	q.Set("sort", "pub date")

	resp, err := get(ctx, a.client, a.url+"/esearch.fcgi?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding esearch result: %w", err)
	}
	return payload.ESearchResult.IDList, nil
}

type pubmedArticleSet struct {
	Articles []struct {
		MedlineCitation struct {
			Article struct {
				Title    string `xml:"ArticleTitle"`
				Abstract struct {
					Texts []string `xml:"AbstractText"`
				} `xml:"Abstract"`
				Journal struct {
					Title        string `xml:"Title"`
					JournalIssue struct {
						PubDate struct {
							Year  string `xml:"Year"`
							Month string `xml:"Month"`
							Day   string `xml:"Day"`
						} `xml:"PubDate"`
					} `xml:"JournalIssue"`
				} `xml:"Journal"`
			} `xml:"Article"`
			MedlineJournalInfo struct {
				MedlineTA string `xml:"MedlineTA"`
			} `xml:"MedlineJournalInfo"`
		} `xml:"MedlineCitation"`
	} `xml:"PubmedArticle"`
}

func (a *pubmedAdapter) fetchDetails(ctx context.Context, pmid string) (Candidate, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("id", pmid)
	q.Set("retmode", "xml")

	resp, err := get(ctx, a.client, a.url+"/efetch.fcgi?"+q.Encode())
	if err != nil {
		return Candidate{}, err
	}
	defer resp.Body.Close()

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return Candidate{}, fmt.Errorf("decoding efetch result for %s: %w", pmid, err)
	}
	if len(set.Articles) == 0 {
		return Candidate{}, fmt.Errorf("no article in efetch result for %s", pmid)
	}

	cit := set.Articles[0].MedlineCitation
	title := strings.TrimSpace(normalize.StripHTML(cit.Article.Title))

	var parts []string
	for _, t := range cit.Article.Abstract.Texts {
		if trimmed := strings.TrimSpace(normalize.StripHTML(t)); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	abstract := strings.Join(parts, "\n\n")

	journal := strings.TrimSpace(cit.MedlineJournalInfo.MedlineTA)
	if journal == "" {
		journal = strings.TrimSpace(cit.Article.Journal.Title)
	}
	if journal == "" {
		journal = a.name
	}

	pub := cit.Article.Journal.JournalIssue.PubDate
	return Candidate{
		ExternalID:      normalize.ExternalID(a.key, pmid),
		Title:           title,
		Abstract:        abstract,
		SourceName:      journal,
		SourceURL:       "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		SourceType:      normalize.InferSourceType(title),
		EvidenceQuality: normalize.InferEvidenceQuality(title),
		PublishedDate:   pubmedDate(pub.Year, pub.Month, pub.Day),
	}, nil
}

var monthNumbers = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"may": "05", "jun": "06", "jul": "07", "aug": "08",
	"sep": "09", "oct": "10", "nov": "11", "dec": "12",
}

// pubmedDate assembles YYYY-MM-DD from PubDate parts. PubMed months can
// be names ("Feb") or numbers; missing parts default to 01.
func pubmedDate(year, month, day string) string {
	if year == "" {
		return normalize.Date("")
	}
	m := "01"
	if month != "" {
		key := strings.ToLower(month)
		if len(key) > 3 {
			key = key[:3]
		}
		if num, ok := monthNumbers[key]; ok {
			m = num
		} else if len(month) == 1 {
			m = "0" + month
		} else {
			m = month
		}
	}
	d := day
	if d == "" {
		d = "01"
	} else if len(d) == 1 {
		d = "0" + d
	}
	return normalize.Date(fmt.Sprintf("%s-%s-%s", year, m, d))
}
