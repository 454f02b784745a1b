// Package taxonomy classifies candidates into the site's fixed set of
// topic categories by keyword matching.
package taxonomy

import (
	"strings"

	"github.com/tofu-daddy/longevity-hub/internal/corpus"
)

// maxCategories caps how many categories a record carries.
const maxCategories = 2

type entry struct {
	category corpus.Category
	keywords []string
}

// The table order is load-bearing: classification picks the first two
// matching categories in this order, not the two with the most hits.
var table = []entry{
	{
		category: corpus.Category{Slug: "exercise", Name: "Exercise", Description: "Movement, training, and performance-related longevity insights."},
		keywords: []string{"exercise", "training", "vo2", "aerobic", "muscle", "strength"},
	},
	{
		category: corpus.Category{Slug: "sleep", Name: "Sleep", Description: "Sleep quality, rhythms, and recovery-focused findings."},
		keywords: []string{"sleep", "circadian"},
	},
	{
		category: corpus.Category{Slug: "nutrition", Name: "Nutrition", Description: "Dietary patterns and nutrition interventions for longevity."},
		keywords: []string{"diet", "nutrition", "protein", "fasting"},
	},
	{
		category: corpus.Category{Slug: "metabolic-health", Name: "Metabolic Health", Description: "Insulin, glucose, lipid, and body-composition driven research."},
		keywords: []string{"metabolic", "insulin", "glucose", "prediabetes"},
	},
	{
		category: corpus.Category{Slug: "cellular-health", Name: "Cellular Health", Description: "Cell-level mechanisms influencing aging and resilience."},
		keywords: []string{"cell", "mitochond", "inflammation", "nad"},
	},
	{
		category: corpus.Category{Slug: "healthspan", Name: "Healthspan", Description: "Strategies that improve quality years, not only lifespan."},
		keywords: []string{"healthspan", "frailty", "aging", "longevity", "preventive", "prevention"},
	},
}

// Default is the category assigned when nothing in the table matches.
var Default = table[len(table)-1].category

// All returns every category in canonical table order.
func All() []corpus.Category {
	out := make([]corpus.Category, len(table))
	for i, e := range table {
		out[i] = e.category
	}
	return out
}

// Classify scans text (typically title + abstract) case-insensitively and
// returns the first two categories whose keyword set has any substring
// match. A match is existence, not frequency. No match yields the
// default Healthspan category.
func Classify(text string) []corpus.Category {
	t := strings.ToLower(text)

	var matched []corpus.Category
	for _, e := range table {
		for _, kw := range e.keywords {
			if strings.Contains(t, kw) {
				matched = append(matched, e.category)
				break
			}
		}
		if len(matched) == maxCategories {
			break
		}
	}

	if len(matched) == 0 {
		return []corpus.Category{Default}
	}
	return matched
}
