package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"later/internal/models"
)

// ErrInvalidQuery is returned for queries shorter than 2 characters after
// trimming. Handlers map it to 400 INVALID_QUERY.
var ErrInvalidQuery = errors.New("query must be at least 2 characters")

// fullTextBoost rewards externally-indexed matches during hybrid merging.
const fullTextBoost = 1.2

// semanticScoreFloor: semantic results at or below this score are discarded.
const semanticScoreFloor = 0.1

// stopWords is the fixed English stop-word list used by keyword extraction.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "him": true, "his": true, "how": true, "its": true,
	"may": true, "new": true, "now": true, "old": true, "see": true,
	"two": true, "way": true, "who": true, "did": true, "get": true,
	"that": true, "this": true, "with": true, "from": true, "they": true,
	"been": true, "have": true, "what": true, "were": true, "when": true,
	"your": true, "said": true, "each": true, "will": true, "about": true,
	"would": true, "there": true, "their": true, "which": true, "into": true,
	"more": true, "some": true, "them": true, "then": true, "than": true,
	"also": true, "just": true, "over": true, "only": true, "very": true,
}

// NormalizeQuery trims the raw query and rejects queries shorter than
// 2 characters. Case is preserved; the scoring strategies fold case
// themselves.
func NormalizeQuery(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if utf8.RuneCountInString(trimmed) < 2 {
		return "", ErrInvalidQuery
	}
	return trimmed, nil
}

// ExtractKeywords lower-cases the text, strips punctuation, and returns
// tokens longer than 2 characters that are not stop words.
func ExtractKeywords(text string) []string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	var keywords []string
	for _, token := range strings.Fields(b.String()) {
		if len(token) > 2 && !stopWords[token] {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// SemanticScore computes the heuristic relevance of an item against a query.
// The result is always in [0, 1].
func SemanticScore(item *models.ContentItem, query string, keywords []string) float64 {
	queryLower := strings.ToLower(query)
	title := strings.ToLower(item.Title)
	summary := strings.ToLower(item.Summary)
	content := strings.ToLower(item.OriginalContent)
	tagText := strings.ToLower(strings.Join(item.Tags, " "))
	categoryText := strings.ToLower(strings.Join(item.Categories, " "))

	score := 0.0

	if title != "" && strings.Contains(title, queryLower) {
		score += 0.5
	} else {
		for _, kw := range keywords {
			if strings.Contains(title, kw) {
				score += 0.2
			}
		}
	}

	if summary != "" && strings.Contains(summary, queryLower) {
		score += 0.3
	} else {
		for _, kw := range keywords {
			if strings.Contains(summary, kw) {
				score += 0.1
			}
		}
	}

	for _, kw := range keywords {
		if strings.Contains(tagText, kw) {
			score += 0.15
		}
	}

	for _, kw := range keywords {
		if strings.Contains(categoryText, kw) {
			score += 0.1
		}
	}

	if content != "" && strings.Contains(content, queryLower) {
		score += 0.2
	} else {
		contentHits := 0
		for _, kw := range keywords {
			if contentHits >= 4 {
				break
			}
			if strings.Contains(content, kw) {
				score += 0.05
				contentHits++
			}
		}
	}

	if item.IsFavorite {
		score *= 1.1
	}
	if time.Since(item.CapturedAt) <= 7*24*time.Hour {
		score *= 1.05
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

// SearchService runs full-text, semantic, and hybrid searches over a user's
// content.
type SearchService struct {
	repo  ContentRepository
	index FullTextIndex
}

// NewSearchService creates a search service.
func NewSearchService(repo ContentRepository, index FullTextIndex) *SearchService {
	return &SearchService{repo: repo, index: index}
}

// Search executes a validated query and returns scored results, best first.
func (s *SearchService) Search(ctx context.Context, userID string, q models.SearchQuery) ([]models.ScoredContent, error) {
	text, err := NormalizeQuery(q.Text)
	if err != nil {
		return nil, err
	}
	q.Text = text

	if q.Limit <= 0 {
		q.Limit = models.SearchLimitDefault
	}
	if q.Limit > models.SearchLimitMax {
		q.Limit = models.SearchLimitMax
	}

	switch q.SearchType {
	case models.SearchTypeFullText:
		return s.fullTextSearch(ctx, userID, q), nil
	case models.SearchTypeSemantic:
		return s.semanticSearch(ctx, userID, q)
	case models.SearchTypeHybrid, "":
		return s.hybridSearch(ctx, userID, q), nil
	default:
		return nil, fmt.Errorf("unknown search type %q", q.SearchType)
	}
}

// fullTextSearch queries the external index. Backend failures fail open to an
// empty result set so the caller still gets a well-formed response.
func (s *SearchService) fullTextSearch(ctx context.Context, userID string, q models.SearchQuery) []models.ScoredContent {
	results, err := s.index.Search(ctx, userID, q)
	if err != nil {
		slog.Warn("full-text backend unavailable, failing open",
			"user_id", userID, "error", err)
		RecordFullTextBackendError()
		return nil
	}
	return results
}

// semanticSearch scores the candidate window in process. The window is twice
// the requested limit to absorb post-filter discards.
func (s *SearchService) semanticSearch(ctx context.Context, userID string, q models.SearchQuery) ([]models.ScoredContent, error) {
	candidates, err := s.repo.CandidateWindow(ctx, userID, q.Limit*2)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch semantic candidates: %w", err)
	}

	keywords := ExtractKeywords(q.Text)

	results := make([]models.ScoredContent, 0, len(candidates))
	for i := range candidates {
		item := &candidates[i]
		if !MatchesFilters(item, q.Filters) {
			continue
		}
		score := SemanticScore(item, q.Text, keywords)
		if score <= semanticScoreFloor {
			continue
		}
		results = append(results, models.ScoredContent{
			Item:           *item,
			RelevanceScore: score,
			SourceStrategy: models.SearchTypeSemantic,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// hybridSearch fans out both strategies concurrently and merges their results.
// A failing or panicking strategy contributes an empty slice; partial results
// beat a failed request.
func (s *SearchService) hybridSearch(ctx context.Context, userID string, q models.SearchQuery) []models.ScoredContent {
	half := q.Limit / 2
	if half < 1 {
		half = 1
	}

	var (
		wg              sync.WaitGroup
		fullTextResults []models.ScoredContent
		semanticResults []models.ScoredContent
	)

	runStrategy := func(strategy string, out *[]models.ScoredContent, run func() ([]models.ScoredContent, error)) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("search strategy panicked",
					"strategy", strategy, "user_id", userID, "panic", r)
				RecordStrategyFailure(strategy)
			}
		}()

		results, err := run()
		if err != nil {
			slog.Warn("search strategy failed",
				"strategy", strategy, "user_id", userID, "error", err)
			RecordStrategyFailure(strategy)
			return
		}
		*out = results
	}

	subQuery := q
	subQuery.Limit = half

	wg.Add(2)
	go runStrategy(models.SearchTypeFullText, &fullTextResults, func() ([]models.ScoredContent, error) {
		return s.index.Search(ctx, userID, subQuery)
	})
	go runStrategy(models.SearchTypeSemantic, &semanticResults, func() ([]models.ScoredContent, error) {
		return s.semanticSearch(ctx, userID, subQuery)
	})
	wg.Wait()

	return MergeHybridResults(fullTextResults, semanticResults, q.Limit)
}

// MergeHybridResults combines full-text and semantic result sets. Full-text
// scores get a fixed boost; items found by both strategies keep the higher
// score and are retagged hybrid, so an overlap never ranks below either
// strategy alone.
func MergeHybridResults(fullText, semantic []models.ScoredContent, limit int) []models.ScoredContent {
	merged := make(map[string]models.ScoredContent, len(fullText)+len(semantic))

	for _, r := range fullText {
		r.RelevanceScore *= fullTextBoost
		r.SourceStrategy = models.SearchTypeFullText
		merged[r.Item.ID.Hex()] = r
	}

	for _, r := range semantic {
		key := r.Item.ID.Hex()
		if existing, ok := merged[key]; ok {
			if r.RelevanceScore > existing.RelevanceScore {
				existing.RelevanceScore = r.RelevanceScore
			}
			existing.SourceStrategy = models.SearchTypeHybrid
			merged[key] = existing
		} else {
			r.SourceStrategy = models.SearchTypeSemantic
			merged[key] = r
		}
	}

	results := make([]models.ScoredContent, 0, len(merged))
	for _, r := range merged {
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return results[i].Item.ID.Hex() < results[j].Item.ID.Hex()
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
