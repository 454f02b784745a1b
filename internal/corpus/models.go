package corpus

// SourceType identifies the kind of publication a record came from.
type SourceType string

const (
	ResearchPaper SourceType = "research_paper"
	ClinicalTrial SourceType = "clinical_trial"
	Review        SourceType = "review"
	News          SourceType = "news"
	Guideline     SourceType = "guideline"
)

// EvidenceQuality grades the strength of evidence behind a record.
type EvidenceQuality string

const (
	RCT           EvidenceQuality = "rct"
	MetaAnalysis  EvidenceQuality = "meta_analysis"
	ReviewQuality EvidenceQuality = "review"
	Observational EvidenceQuality = "observational"
	Editorial     EvidenceQuality = "editorial"
)

// Category is a topic assignment on a record.
type Category struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ArticleRecord is the corpus's unit of storage. Field order matters:
// the corpus file is consumed byte-for-byte by the site renderers, so
// the JSON layout must stay stable across runs.
type ArticleRecord struct {
	ExternalID         string          `json:"externalId"`
	Slug               string          `json:"slug"`
	Title              string          `json:"title"`
	Excerpt            string          `json:"excerpt"`
	TechnicalSummary   string          `json:"technicalSummary"`
	LaymansExplanation string          `json:"laymansExplanation"`
	KeyTakeaways       []string        `json:"keyTakeaways"`
	HasExplanation     bool            `json:"hasExplanation"`
	SourceName         string          `json:"sourceName"`
	SourceURL          string          `json:"sourceUrl"`
	SourceType         SourceType      `json:"sourceType"`
	EvidenceQuality    EvidenceQuality `json:"evidenceQuality"`
	PublishedDate      string          `json:"publishedDate"`
	Categories         []Category      `json:"categories"`
}
