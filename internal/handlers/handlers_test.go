package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"later/internal/models"
	"later/internal/services"
)

// stubContentRepo is an in-memory ContentRepository for handler tests.
type stubContentRepo struct {
	items []models.ContentItem
}

func (s *stubContentRepo) Create(ctx context.Context, item *models.ContentItem) error {
	s.items = append(s.items, *item)
	return nil
}

func (s *stubContentRepo) GetByID(ctx context.Context, userID, id string) (*models.ContentItem, error) {
	for i := range s.items {
		if s.items[i].ID.Hex() == id {
			return &s.items[i], nil
		}
	}
	return nil, services.ErrContentNotFound
}

func (s *stubContentRepo) List(ctx context.Context, userID string, q models.ContentQuery) ([]models.ContentItem, error) {
	return s.items, nil
}

func (s *stubContentRepo) Update(ctx context.Context, userID, id string, req *models.UpdateContentRequest) (*models.ContentItem, error) {
	return nil, services.ErrContentNotFound
}

func (s *stubContentRepo) SoftDelete(ctx context.Context, userID, id string) error { return nil }
func (s *stubContentRepo) MarkViewed(ctx context.Context, userID, id string) error { return nil }

func (s *stubContentRepo) CandidateWindow(ctx context.Context, userID string, limit int) ([]models.ContentItem, error) {
	return s.items, nil
}

func (s *stubContentRepo) CaptureTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	return nil, nil
}

// stubIndex is an empty FullTextIndex.
type stubIndex struct{}

func (stubIndex) Search(ctx context.Context, userID string, q models.SearchQuery) ([]models.ScoredContent, error) {
	return nil, nil
}

// stubPatternRepo is an empty PatternRepository.
type stubPatternRepo struct{}

func (stubPatternRepo) ListActive(ctx context.Context, userID, contextType string, limit int) ([]models.ContextPattern, error) {
	return nil, nil
}

func (stubPatternRepo) Upsert(ctx context.Context, userID string, obs services.PatternObservation) (bool, error) {
	return false, nil
}

func (stubPatternRepo) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// newTestApp builds an app with a stand-in auth layer that injects the user.
func newTestApp(register func(api fiber.Router)) *fiber.App {
	app := fiber.New()
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Locals("user_id", "test-user")
		return c.Next()
	})
	register(api)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func newSearchApp(repo *stubContentRepo) *fiber.App {
	search := services.NewSearchService(repo, stubIndex{})
	handler := NewSearchHandler(search, nil)
	return newTestApp(func(api fiber.Router) {
		api.Post("/search", handler.Search)
	})
}

func TestSearchRejectsShortQuery(t *testing.T) {
	app := newSearchApp(&stubContentRepo{})

	resp := postJSON(t, app, "/api/search", map[string]interface{}{
		"query": "t",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["code"] != "INVALID_QUERY" {
		t.Errorf("Expected code INVALID_QUERY, got %v", body["code"])
	}
}

func TestSearchAcceptsTwoCharQuery(t *testing.T) {
	app := newSearchApp(&stubContentRepo{})

	resp := postJSON(t, app, "/api/search", map[string]interface{}{
		"query":       "te",
		"search_type": "semantic",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestSearchRejectsUnknownSearchType(t *testing.T) {
	app := newSearchApp(&stubContentRepo{})

	resp := postJSON(t, app, "/api/search", map[string]interface{}{
		"query":       "golang",
		"search_type": "fuzzy",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["code"] != "INVALID_SEARCH_TYPE" {
		t.Errorf("Expected code INVALID_SEARCH_TYPE, got %v", body["code"])
	}
}

func TestSearchResponseShape(t *testing.T) {
	repo := &stubContentRepo{items: []models.ContentItem{
		{
			ID:         primitive.NewObjectID(),
			UserID:     "test-user",
			Title:      "Technology trends overview",
			Summary:    "technology trends",
			Status:     models.ContentStatusProcessed,
			Source:     models.ContentSourceWeb,
			Priority:   models.ContentPriorityMedium,
			CapturedAt: time.Now().AddDate(0, -1, 0),
		},
	}}
	app := newSearchApp(repo)

	resp := postJSON(t, app, "/api/search", map[string]interface{}{
		"query":       "technology trends",
		"search_type": "semantic",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["search_type"] != "semantic" {
		t.Errorf("Expected search_type semantic, got %v", body["search_type"])
	}
	if body["total_results"].(float64) != 1 {
		t.Errorf("Expected 1 result, got %v", body["total_results"])
	}

	metadata, ok := body["search_metadata"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected search_metadata object")
	}
	if _, ok := metadata["query_time_ms"]; !ok {
		t.Error("Expected query_time_ms in search_metadata")
	}
	if metadata["filters_applied"] != false {
		t.Errorf("Expected filters_applied false, got %v", metadata["filters_applied"])
	}

	results := body["results"].([]interface{})
	first := results[0].(map[string]interface{})
	if _, ok := first["relevance_score"]; !ok {
		t.Error("Expected relevance_score on result rows")
	}
	if first["search_source"] != "semantic" {
		t.Errorf("Expected search_source semantic, got %v", first["search_source"])
	}
}

func newSuggestionApp(repo *stubContentRepo) *fiber.App {
	patterns := services.NewPatternService(stubPatternRepo{})
	suggestions := services.NewSuggestionService(repo, patterns, nil)
	users := services.NewUserService(nil)
	handler := NewSuggestionHandler(suggestions, users, nil)
	return newTestApp(func(api fiber.Router) {
		api.Post("/context-suggestions", handler.Suggest)
	})
}

func TestSuggestionsRejectUnknownContextType(t *testing.T) {
	app := newSuggestionApp(&stubContentRepo{})

	resp := postJSON(t, app, "/api/context-suggestions", map[string]interface{}{
		"context_type": "weather",
		"context_data": map[string]interface{}{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["code"] != "INVALID_CONTEXT_TYPE" {
		t.Errorf("Expected code INVALID_CONTEXT_TYPE, got %v", body["code"])
	}
}

func TestSuggestionsPatternCheckEmptyIsNotAnError(t *testing.T) {
	app := newSuggestionApp(&stubContentRepo{})

	resp := postJSON(t, app, "/api/context-suggestions", map[string]interface{}{
		"context_type": "pattern_check",
		"context_data": map[string]interface{}{},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	suggestions := body["suggestions"].([]interface{})
	if len(suggestions) != 0 {
		t.Errorf("Expected empty suggestions, got %d", len(suggestions))
	}
	if _, ok := body["context_patterns"]; !ok {
		t.Error("Expected context_patterns in response")
	}
}

func TestSuggestionsLocationResponse(t *testing.T) {
	repo := &stubContentRepo{items: []models.ContentItem{
		{
			ID:       primitive.NewObjectID(),
			UserID:   "test-user",
			Title:    "Nearby cafe notes",
			Status:   models.ContentStatusProcessed,
			Source:   models.ContentSourceNote,
			Priority: models.ContentPriorityMedium,
			CaptureLocation: &models.GeoPoint{
				Lat: 37.7749,
				Lng: -122.4194,
			},
			CapturedAt: time.Now().AddDate(0, 0, -1),
		},
	}}
	app := newSuggestionApp(repo)

	resp := postJSON(t, app, "/api/context-suggestions", map[string]interface{}{
		"context_type": "location",
		"context_data": map[string]interface{}{
			"lat": 37.7749,
			"lng": -122.4194,
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	suggestions := body["suggestions"].([]interface{})
	if len(suggestions) != 1 {
		t.Fatalf("Expected 1 suggestion, got %d", len(suggestions))
	}

	first := suggestions[0].(map[string]interface{})
	if first["context_match"] != "location" {
		t.Errorf("Expected context_match location, got %v", first["context_match"])
	}
	if first["relevance_score"].(float64) < 0.9 {
		t.Errorf("Expected near-1.0 score for same coordinates, got %v", first["relevance_score"])
	}
}

// stubActivityStore serves canned analytics reads.
type stubActivityStore struct {
	counts map[string]int64
	events []models.AnalyticsEvent
	err    error
}

func (s *stubActivityStore) CountSince(ctx context.Context, userID, eventType string, since time.Time) (int64, error) {
	return s.counts[eventType], s.err
}

func (s *stubActivityStore) RecentEvents(ctx context.Context, userID string, limit int) ([]models.AnalyticsEvent, error) {
	return s.events, s.err
}

func newAnalyticsApp(store *stubActivityStore) *fiber.App {
	handler := NewAnalyticsHandler(store)
	return newTestApp(func(api fiber.Router) {
		api.Get("/analytics/activity", handler.Activity)
	})
}

func TestAnalyticsActivityResponse(t *testing.T) {
	store := &stubActivityStore{
		counts: map[string]int64{
			models.EventSearchPerformed: 4,
			models.EventContentCaptured: 2,
		},
		events: []models.AnalyticsEvent{
			{ID: "evt-1", UserID: "test-user", EventType: models.EventSearchPerformed, CreatedAt: time.Now()},
		},
	}
	app := newAnalyticsApp(store)

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/activity", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["window_days"].(float64) != 7 {
		t.Errorf("Expected window_days 7, got %v", body["window_days"])
	}

	counts, ok := body["counts"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected counts object")
	}
	if counts[models.EventSearchPerformed].(float64) != 4 {
		t.Errorf("Expected 4 searches, got %v", counts[models.EventSearchPerformed])
	}
	if counts[models.EventSuggestionsGenerated].(float64) != 0 {
		t.Errorf("Expected 0 suggestion rounds, got %v", counts[models.EventSuggestionsGenerated])
	}

	events := body["recent_events"].([]interface{})
	if len(events) != 1 {
		t.Fatalf("Expected 1 recent event, got %d", len(events))
	}
}

func TestAnalyticsActivityEmptyEventsIsArray(t *testing.T) {
	app := newAnalyticsApp(&stubActivityStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/activity", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	body := decodeBody(t, resp)
	if _, ok := body["recent_events"].([]interface{}); !ok {
		t.Errorf("Expected recent_events array, got %T", body["recent_events"])
	}
}

func TestAnalyticsActivityStoreError(t *testing.T) {
	app := newAnalyticsApp(&stubActivityStore{err: context.DeadlineExceeded})

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/activity", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
}

func TestSuggestionsRejectOutOfRangeCoordinates(t *testing.T) {
	app := newSuggestionApp(&stubContentRepo{})

	resp := postJSON(t, app, "/api/context-suggestions", map[string]interface{}{
		"context_type": "location",
		"context_data": map[string]interface{}{
			"lat": 123.0,
			"lng": 0.0,
		},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}
