// Package corpus owns the persisted article corpus: a single JSON
// document holding every published record, newest first. The file is
// the sole contract with the site renderers, so reads and writes here
// preserve its exact shape (pretty-printed array, trailing newline).
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Load reads the corpus file. A missing file is an empty corpus, not an
// error; anything else (unreadable file, malformed JSON) is fatal to the
// caller.
func Load(path string) ([]ArticleRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading corpus: %w", err)
	}

	var records []ArticleRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	return records, nil
}

// Save replaces the corpus file atomically: the document is written to a
// temp file in the same directory and renamed over the target, so a
// failed run never leaves a half-written corpus behind.
func Save(path string, records []ArticleRecord) error {
	if records == nil {
		records = []ArticleRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating corpus dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".articles-*.json")
	if err != nil {
		return fmt.Errorf("creating temp corpus: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing corpus: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp corpus: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing corpus: %w", err)
	}
	return nil
}

// Merge prepends fresh records to the existing corpus, sorts the result
// by publishedDate descending, and truncates to max entries. Fresh slugs
// are disambiguated against the whole corpus before sorting; existing
// records are never rewritten, so repeated merges with no fresh input
// leave the corpus untouched.
func Merge(fresh, existing []ArticleRecord, max int) []ArticleRecord {
	disambiguateSlugs(fresh, existing)

	combined := make([]ArticleRecord, 0, len(fresh)+len(existing))
	combined = append(combined, fresh...)
	combined = append(combined, existing...)

	// Canonical dates are YYYY-MM-DD, so lexicographic order is
	// chronological order.
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].PublishedDate > combined[j].PublishedDate
	})

	if max > 0 && len(combined) > max {
		combined = combined[:max]
	}
	return combined
}

// disambiguateSlugs appends a numeric suffix to any fresh slug that
// collides with an existing record or an earlier fresh one. Only fresh
// records are renamed: persisted slugs are load-bearing URLs.
func disambiguateSlugs(fresh, existing []ArticleRecord) {
	used := make(map[string]bool, len(existing)+len(fresh))
	for _, r := range existing {
		used[r.Slug] = true
	}

	for i := range fresh {
		slug := fresh[i].Slug
		if slug == "" || !used[slug] {
			used[slug] = true
			continue
		}
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s-%d", slug, n)
			if !used[candidate] {
				fresh[i].Slug = candidate
				used[candidate] = true
				break
			}
		}
	}
}
