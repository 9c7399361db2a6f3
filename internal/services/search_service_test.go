package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"later/internal/models"
)

// fakeContentRepo is an in-memory ContentRepository for tests.
type fakeContentRepo struct {
	items []models.ContentItem
	err   error
}

func (f *fakeContentRepo) Create(ctx context.Context, item *models.ContentItem) error {
	f.items = append(f.items, *item)
	return f.err
}

func (f *fakeContentRepo) GetByID(ctx context.Context, userID, id string) (*models.ContentItem, error) {
	for i := range f.items {
		if f.items[i].ID.Hex() == id {
			return &f.items[i], nil
		}
	}
	return nil, ErrContentNotFound
}

func (f *fakeContentRepo) List(ctx context.Context, userID string, q models.ContentQuery) ([]models.ContentItem, error) {
	return f.items, f.err
}

func (f *fakeContentRepo) Update(ctx context.Context, userID, id string, req *models.UpdateContentRequest) (*models.ContentItem, error) {
	return nil, ErrContentNotFound
}

func (f *fakeContentRepo) SoftDelete(ctx context.Context, userID, id string) error { return f.err }
func (f *fakeContentRepo) MarkViewed(ctx context.Context, userID, id string) error { return f.err }

func (f *fakeContentRepo) CandidateWindow(ctx context.Context, userID string, limit int) ([]models.ContentItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeContentRepo) CaptureTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, item := range f.items {
		if item.CapturedAt.After(since) {
			out = append(out, item.CapturedAt)
		}
	}
	return out, f.err
}

// fakeFullTextIndex is an in-memory FullTextIndex for tests.
type fakeFullTextIndex struct {
	results []models.ScoredContent
	err     error
	panics  bool
}

func (f *fakeFullTextIndex) Search(ctx context.Context, userID string, q models.SearchQuery) ([]models.ScoredContent, error) {
	if f.panics {
		panic("index exploded")
	}
	return f.results, f.err
}

func newItem(title, summary string) models.ContentItem {
	return models.ContentItem{
		ID:         primitive.NewObjectID(),
		UserID:     "user-1",
		Title:      title,
		Summary:    summary,
		Source:     models.ContentSourceWeb,
		Status:     models.ContentStatusProcessed,
		Priority:   models.ContentPriorityMedium,
		CapturedAt: time.Now().AddDate(0, -1, 0),
		UpdatedAt:  time.Now(),
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"two chars accepted", "te", "te", false},
		{"one char rejected", "t", "", true},
		{"empty rejected", "", "", true},
		{"whitespace only rejected", "   ", "", true},
		{"padded query trimmed", "  golang  ", "golang", false},
		{"single char after trim rejected", " x ", "", true},
		{"single multi-byte rune rejected", "é", "", true},
		{"single CJK rune rejected", "中", "", true},
		{"two multi-byte runes accepted", "中文", "中文", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeQuery(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Errorf("Expected ErrInvalidQuery, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"stop words removed", "the technology and trends", []string{"technology", "trends"}},
		{"short tokens removed", "go is a language", []string{"language"}},
		{"punctuation stripped", "machine-learning, models!", []string{"machine", "learning", "models"}},
		{"case folded", "GoLang GOLANG", []string{"golang", "golang"}},
		{"empty input", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestSemanticScoreFullTitleMatch(t *testing.T) {
	item := newItem("Technology Trends 2024", "")
	query := "technology trends"

	score := SemanticScore(&item, query, ExtractKeywords(query))
	if score < 0.5 {
		t.Errorf("Expected score >= 0.5 for full title substring match, got %.3f", score)
	}
}

func TestSemanticScoreClampInvariant(t *testing.T) {
	now := time.Now()
	items := []models.ContentItem{
		{
			Title:           "golang golang golang golang",
			Summary:         "golang tips for golang developers using golang",
			OriginalContent: strings.Repeat("golang concurrency channels goroutines ", 50),
			Tags:            []string{"golang", "concurrency", "channels", "goroutines"},
			Categories:      []string{"golang", "programming"},
			IsFavorite:      true,
			CapturedAt:      now,
		},
		{},
		{Title: "unrelated", CapturedAt: now.AddDate(-1, 0, 0)},
	}

	query := "golang concurrency channels goroutines"
	keywords := ExtractKeywords(query)

	for i, item := range items {
		score := SemanticScore(&item, query, keywords)
		if score < 0 || score > 1 {
			t.Errorf("Item %d: score %.4f outside [0, 1]", i, score)
		}
	}
}

func TestSemanticScoreFavoriteAndRecencyMultipliers(t *testing.T) {
	base := newItem("Weekly meal planning", "")
	base.Summary = "Ideas for meal planning"

	boosted := base
	boosted.IsFavorite = true
	boosted.CapturedAt = time.Now()

	query := "meal planning"
	keywords := ExtractKeywords(query)

	baseScore := SemanticScore(&base, query, keywords)
	boostedScore := SemanticScore(&boosted, query, keywords)

	if boostedScore <= baseScore {
		t.Errorf("Expected favorite+recent item to outscore base item: %.3f vs %.3f", boostedScore, baseScore)
	}
}

func TestMergeHybridResultsOverlapKeepsMax(t *testing.T) {
	shared := newItem("Shared item", "")

	fullText := []models.ScoredContent{
		{Item: shared, RelevanceScore: 0.5, SourceStrategy: models.SearchTypeFullText},
	}
	semantic := []models.ScoredContent{
		{Item: shared, RelevanceScore: 0.9, SourceStrategy: models.SearchTypeSemantic},
	}

	merged := MergeHybridResults(fullText, semantic, 10)
	if len(merged) != 1 {
		t.Fatalf("Expected 1 merged result, got %d", len(merged))
	}

	want := math.Max(0.5*1.2, 0.9)
	if math.Abs(merged[0].RelevanceScore-want) > 1e-9 {
		t.Errorf("Expected merged score %.3f, got %.3f", want, merged[0].RelevanceScore)
	}
	if merged[0].SourceStrategy != models.SearchTypeHybrid {
		t.Errorf("Expected hybrid tag, got %q", merged[0].SourceStrategy)
	}
}

func TestMergeHybridResultsBoostScenario(t *testing.T) {
	// A found only by full-text (0.6 -> 0.72 after boost); B found only by
	// semantic (0.6). A must rank first.
	itemA := newItem("Item A", "")
	itemB := newItem("Item B", "")

	fullText := []models.ScoredContent{
		{Item: itemA, RelevanceScore: 0.6, SourceStrategy: models.SearchTypeFullText},
	}
	semantic := []models.ScoredContent{
		{Item: itemB, RelevanceScore: 0.6, SourceStrategy: models.SearchTypeSemantic},
	}

	merged := MergeHybridResults(fullText, semantic, 10)
	if len(merged) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(merged))
	}
	if merged[0].Item.ID != itemA.ID {
		t.Errorf("Expected boosted full-text item first")
	}
	if math.Abs(merged[0].RelevanceScore-0.72) > 1e-9 {
		t.Errorf("Expected 0.72, got %.3f", merged[0].RelevanceScore)
	}
	if math.Abs(merged[1].RelevanceScore-0.6) > 1e-9 {
		t.Errorf("Expected 0.6, got %.3f", merged[1].RelevanceScore)
	}
}

func TestMergeHybridResultsOrderIndependent(t *testing.T) {
	itemA := newItem("Item A", "")
	itemB := newItem("Item B", "")
	itemC := newItem("Item C", "")

	fullText := []models.ScoredContent{
		{Item: itemA, RelevanceScore: 0.4},
		{Item: itemB, RelevanceScore: 0.7},
	}
	semantic := []models.ScoredContent{
		{Item: itemB, RelevanceScore: 0.95},
		{Item: itemC, RelevanceScore: 0.3},
	}

	forward := MergeHybridResults(fullText, semantic, 10)

	fullTextReversed := []models.ScoredContent{fullText[1], fullText[0]}
	semanticReversed := []models.ScoredContent{semantic[1], semantic[0]}
	backward := MergeHybridResults(fullTextReversed, semanticReversed, 10)

	if len(forward) != len(backward) {
		t.Fatalf("Result counts differ: %d vs %d", len(forward), len(backward))
	}
	for i := range forward {
		if forward[i].Item.ID != backward[i].Item.ID ||
			math.Abs(forward[i].RelevanceScore-backward[i].RelevanceScore) > 1e-9 {
			t.Errorf("Position %d differs after reordering inputs", i)
		}
	}
}

func TestMergeHybridResultsTruncates(t *testing.T) {
	var semantic []models.ScoredContent
	for i := 0; i < 10; i++ {
		semantic = append(semantic, models.ScoredContent{
			Item:           newItem("Item", ""),
			RelevanceScore: float64(i) / 10,
		})
	}

	merged := MergeHybridResults(nil, semantic, 3)
	if len(merged) != 3 {
		t.Errorf("Expected 3 results after truncation, got %d", len(merged))
	}
}

func TestSearchRejectsShortQuery(t *testing.T) {
	svc := NewSearchService(&fakeContentRepo{}, &fakeFullTextIndex{})

	_, err := svc.Search(context.Background(), "user-1", models.SearchQuery{
		Text:       "t",
		SearchType: models.SearchTypeHybrid,
	})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery, got %v", err)
	}
}

func TestSemanticSearchFiltersAndSorts(t *testing.T) {
	strong := newItem("Technology trends overview", "All about technology trends")
	weak := newItem("Technology", "")
	unrelated := newItem("Grocery list", "")

	repo := &fakeContentRepo{items: []models.ContentItem{unrelated, weak, strong}}
	svc := NewSearchService(repo, &fakeFullTextIndex{})

	results, err := svc.Search(context.Background(), "user-1", models.SearchQuery{
		Text:       "technology trends",
		SearchType: models.SearchTypeSemantic,
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(results) == 0 {
		t.Fatal("Expected at least one result")
	}
	if results[0].Item.ID != strong.ID {
		t.Errorf("Expected strongest match first, got %q", results[0].Item.Title)
	}
	for i := 1; i < len(results); i++ {
		if results[i].RelevanceScore > results[i-1].RelevanceScore {
			t.Errorf("Results not sorted descending at position %d", i)
		}
	}
	for _, r := range results {
		if r.Item.ID == unrelated.ID {
			t.Error("Unrelated item should have been discarded")
		}
	}
}

func TestHybridSearchSurvivesFullTextFailure(t *testing.T) {
	match := newItem("Technology trends overview", "technology trends")

	repo := &fakeContentRepo{items: []models.ContentItem{match}}
	index := &fakeFullTextIndex{err: errors.New("backend down")}
	svc := NewSearchService(repo, index)

	results, err := svc.Search(context.Background(), "user-1", models.SearchQuery{
		Text:       "technology trends",
		SearchType: models.SearchTypeHybrid,
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("Hybrid search should not fail when one strategy fails: %v", err)
	}
	if len(results) == 0 {
		t.Error("Expected semantic results despite full-text failure")
	}
}

func TestHybridSearchSurvivesStrategyPanic(t *testing.T) {
	match := newItem("Technology trends overview", "technology trends")

	repo := &fakeContentRepo{items: []models.ContentItem{match}}
	index := &fakeFullTextIndex{panics: true}
	svc := NewSearchService(repo, index)

	results, err := svc.Search(context.Background(), "user-1", models.SearchQuery{
		Text:       "technology trends",
		SearchType: models.SearchTypeHybrid,
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("Hybrid search should absorb a panicking strategy: %v", err)
	}
	if len(results) == 0 {
		t.Error("Expected semantic results despite full-text panic")
	}
}

func TestFullTextSearchFailsOpen(t *testing.T) {
	index := &fakeFullTextIndex{err: errors.New("timeout")}
	svc := NewSearchService(&fakeContentRepo{}, index)

	results, err := svc.Search(context.Background(), "user-1", models.SearchQuery{
		Text:       "anything",
		SearchType: models.SearchTypeFullText,
	})
	if err != nil {
		t.Fatalf("Full-text search should fail open, got error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty results, got %d", len(results))
	}
}

func TestMatchesFilters(t *testing.T) {
	captured := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	item := models.ContentItem{
		Tags:       []string{"cooking", "dinner"},
		Categories: []string{"food"},
		Source:     models.ContentSourceWeb,
		Priority:   models.ContentPriorityHigh,
		CapturedAt: captured,
	}

	before := captured.AddDate(0, 0, -1)
	after := captured.AddDate(0, 0, 1)

	tests := []struct {
		name    string
		filters models.SearchFilters
		want    bool
	}{
		{"no filters", models.SearchFilters{}, true},
		{"tag match", models.SearchFilters{Tags: []string{"cooking"}}, true},
		{"tag miss", models.SearchFilters{Tags: []string{"sports"}}, false},
		{"category match case-insensitive", models.SearchFilters{Categories: []string{"Food"}}, true},
		{"source miss", models.SearchFilters{Sources: []string{"note"}}, false},
		{"priority match", models.SearchFilters{Priorities: []string{"high"}}, true},
		{"date range includes", models.SearchFilters{DateFrom: &before, DateTo: &after}, true},
		{"date range excludes", models.SearchFilters{DateTo: &before}, false},
		{"conjunction fails on one miss", models.SearchFilters{Tags: []string{"cooking"}, Sources: []string{"note"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesFilters(&item, tt.filters); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
