package models

import "time"

// Search type constants
const (
	SearchTypeFullText = "full_text"
	SearchTypeSemantic = "semantic"
	SearchTypeHybrid   = "hybrid"
)

// ValidSearchType reports whether t is a known search type.
func ValidSearchType(t string) bool {
	switch t {
	case SearchTypeFullText, SearchTypeSemantic, SearchTypeHybrid:
		return true
	}
	return false
}

// SearchFilters narrows a search to matching content. All set fields are
// applied conjunctively.
type SearchFilters struct {
	Categories []string   `json:"categories,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Sources    []string   `json:"sources,omitempty"`
	Priorities []string   `json:"priorities,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
}

// IsZero reports whether no filter field is set.
func (f SearchFilters) IsZero() bool {
	return len(f.Categories) == 0 && len(f.Tags) == 0 && len(f.Sources) == 0 &&
		len(f.Priorities) == 0 && f.DateFrom == nil && f.DateTo == nil
}

// SearchQuery is a validated search request.
type SearchQuery struct {
	Text       string
	SearchType string
	Filters    SearchFilters
	Limit      int
}

// ScoredContent pairs a content item with a relevance score for one request.
// Scores are only comparable within the request that produced them; full-text
// backend scores are unbounded while semantic scores stay in [0,1].
type ScoredContent struct {
	Item           ContentItem
	RelevanceScore float64
	SourceStrategy string // "full_text", "semantic", "hybrid"
}

// SearchRequest is the POST /api/search body.
type SearchRequest struct {
	Query      string        `json:"query"`
	Filters    SearchFilters `json:"filters"`
	SearchType string        `json:"search_type"`
	Limit      int           `json:"limit"`
}

// Search limit bounds (requests outside the range are clamped)
const (
	SearchLimitDefault = 20
	SearchLimitMax     = 100
)
