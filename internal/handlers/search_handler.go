package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"later/internal/models"
	"later/internal/services"
)

// SearchHandler serves content search requests.
type SearchHandler struct {
	search    *services.SearchService
	analytics *services.AnalyticsService
}

// NewSearchHandler creates a search handler. analytics may be nil.
func NewSearchHandler(search *services.SearchService, analytics *services.AnalyticsService) *SearchHandler {
	return &SearchHandler{search: search, analytics: analytics}
}

// searchResult is one result row: the content item's fields plus its
// request-scoped score.
type searchResult struct {
	models.ContentItem
	RelevanceScore float64 `json:"relevance_score"`
	SearchSource   string  `json:"search_source,omitempty"`
}

// Search handles POST /api/search.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "INVALID_QUERY",
		})
	}

	searchType := req.SearchType
	if searchType == "" {
		searchType = models.SearchTypeHybrid
	}
	if !models.ValidSearchType(searchType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown search_type: must be full_text, semantic, or hybrid",
			"code":  "INVALID_SEARCH_TYPE",
		})
	}

	query := models.SearchQuery{
		Text:       req.Query,
		SearchType: searchType,
		Filters:    req.Filters,
		Limit:      req.Limit,
	}

	start := time.Now()
	results, err := h.search.Search(c.Context(), userID, query)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, services.ErrInvalidQuery) {
			services.RecordSearch(searchType, "invalid", 0, 0)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Query must be at least 2 characters",
				"code":  "INVALID_QUERY",
			})
		}
		services.RecordSearch(searchType, "error", 0, 0)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	services.RecordSearch(searchType, "success", elapsed.Seconds(), len(results))
	if h.analytics != nil {
		h.analytics.Record(userID, models.EventSearchPerformed, map[string]interface{}{
			"search_type":   searchType,
			"result_count":  len(results),
			"query_time_ms": elapsed.Milliseconds(),
		})
	}

	rows := make([]searchResult, 0, len(results))
	for _, r := range results {
		rows = append(rows, searchResult{
			ContentItem:    r.Item,
			RelevanceScore: r.RelevanceScore,
			SearchSource:   r.SourceStrategy,
		})
	}

	return c.JSON(fiber.Map{
		"query":         query.Text,
		"search_type":   searchType,
		"results":       rows,
		"total_results": len(rows),
		"search_metadata": fiber.Map{
			"query_time_ms":   elapsed.Milliseconds(),
			"filters_applied": !req.Filters.IsZero(),
		},
	})
}
