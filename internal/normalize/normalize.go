// Package normalize holds the pure functions that coerce source-specific
// dates, identifiers, and markup into the corpus's canonical forms. Every
// function here is deterministic for a fixed clock.
package normalize

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/tofu-daddy/longevity-hub/internal/corpus"
)

const (
	// ISODate is the canonical published-date layout.
	ISODate = "2006-01-02"

	slugMaxLen = 90
)

// Now is the clock used for unparsable-date fallback. Tests override it.
var Now = time.Now

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
	ISODate,
	"January 2, 2006",
	"2 January 2006",
}

var (
	yearOnly  = regexp.MustCompile(`^\d{4}$`)
	yearMonth = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// Date coerces feed timestamps (RFC-822 family), ISO dates, and partial
// dates (year, year-month) to YYYY-MM-DD. Unparsable input maps to the
// current date: a bad date never fails a candidate.
func Date(raw string) string {
	raw = strings.TrimSpace(raw)

	switch {
	case raw == "":
		return Now().UTC().Format(ISODate)
	case yearOnly.MatchString(raw):
		return raw + "-01-01"
	case yearMonth.MatchString(raw):
		return raw + "-01"
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(ISODate)
		}
	}
	return Now().UTC().Format(ISODate)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases, collapses every run of non-alphanumerics to a single
// hyphen, strips edge hyphens, and caps the result at 90 characters.
func Slug(value string) string {
	s := strings.ToLower(value)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > slugMaxLen {
		s = strings.TrimRight(s[:slugMaxLen], "-")
	}
	return s
}

// ExternalID builds the corpus dedup key {sourceKey}:{normalizedLocalId}.
// The local id is slug-normalized so that ids lifted from URLs or titles
// stay stable across runs.
func ExternalID(sourceKey, localID string) string {
	return sourceKey + ":" + Slug(localID)
}

var cdata = regexp.MustCompile(`<!\[CDATA\[([\s\S]*?)\]\]>`)

// StripHTML unwraps CDATA sections, removes tags, decodes entities, and
// collapses whitespace.
func StripHTML(value string) string {
	s := cdata.ReplaceAllString(value, "$1")

	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

// Truncate returns at most n runes of s, with no ellipsis: downstream
// fields (excerpt, technical summary) are exact prefixes by contract.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// InferSourceType guesses the publication kind from title wording.
func InferSourceType(title string) corpus.SourceType {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "trial"):
		return corpus.ClinicalTrial
	case strings.Contains(t, "review"), strings.Contains(t, "meta"):
		return corpus.Review
	default:
		return corpus.ResearchPaper
	}
}

// InferEvidenceQuality guesses evidence strength from title wording.
func InferEvidenceQuality(title string) corpus.EvidenceQuality {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "randomized"):
		return corpus.RCT
	case strings.Contains(t, "meta-analysis"), strings.Contains(t, "meta analysis"):
		return corpus.MetaAnalysis
	case strings.Contains(t, "review"):
		return corpus.ReviewQuality
	default:
		return corpus.Observational
	}
}
