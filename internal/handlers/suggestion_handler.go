package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"later/internal/models"
	"later/internal/services"
)

// SuggestionHandler serves proactive context-suggestion requests.
type SuggestionHandler struct {
	suggestions *services.SuggestionService
	users       *services.UserService
	analytics   *services.AnalyticsService
}

// NewSuggestionHandler creates a suggestion handler. analytics may be nil.
func NewSuggestionHandler(suggestions *services.SuggestionService, users *services.UserService, analytics *services.AnalyticsService) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions, users: users, analytics: analytics}
}

// Suggest handles POST /api/context-suggestions.
func (h *SuggestionHandler) Suggest(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req models.ContextSuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "INVALID_CONTEXT_TYPE",
		})
	}

	if !models.ValidContextType(req.ContextType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown context_type: must be location, time, calendar, or pattern_check",
			"code":  "INVALID_CONTEXT_TYPE",
		})
	}

	// A disabled preference toggle yields empty suggestions, not an error.
	user, err := h.users.GetByID(c.Context(), userID)
	if err == nil && !user.Preferences.ContextEnabled(req.ContextType) {
		return c.JSON(fiber.Map{
			"suggestions":      []models.Suggestion{},
			"context_patterns": []models.ContextPattern{},
		})
	}

	signal, err := decodeContextSignal(req.ContextType, req.ContextData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "INVALID_CONTEXT_TYPE",
		})
	}

	start := time.Now()
	suggestions, patterns, err := h.suggestions.Suggest(c.Context(), userID, signal, req.Limit)
	elapsed := time.Since(start)

	if err != nil {
		services.RecordSuggestion(req.ContextType, "error", 0)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate suggestions",
		})
	}

	services.RecordSuggestion(req.ContextType, "success", elapsed.Seconds())
	if h.analytics != nil {
		h.analytics.Record(userID, models.EventSuggestionsGenerated, map[string]interface{}{
			"context_type":     req.ContextType,
			"suggestion_count": len(suggestions),
		})
	}

	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}
	if patterns == nil {
		patterns = []models.ContextPattern{}
	}

	response := fiber.Map{
		"suggestions":      suggestions,
		"context_patterns": patterns,
	}

	// Insights are advisory; their failure never fails the request.
	if insights, err := h.suggestions.Insights(c.Context(), userID); err == nil {
		response["insights"] = insights
	} else {
		slog.Debug("failed to compute suggestion insights", "user_id", userID, "error", err)
	}

	return c.JSON(response)
}

// decodeContextSignal turns the loosely-typed context_data payload into the
// variant selected by contextType.
func decodeContextSignal(contextType string, data map[string]interface{}) (models.ContextSignal, error) {
	signal := models.ContextSignal{Type: contextType}

	raw, err := json.Marshal(data)
	if err != nil {
		return signal, fmt.Errorf("invalid context_data")
	}

	switch contextType {
	case models.ContextTypeLocation:
		var loc models.LocationSignal
		if err := json.Unmarshal(raw, &loc); err != nil {
			return signal, fmt.Errorf("invalid location context_data")
		}
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
			return signal, fmt.Errorf("location coordinates out of range")
		}
		signal.Location = &loc

	case models.ContextTypeTime:
		var t models.TimeSignal
		if err := json.Unmarshal(raw, &t); err != nil {
			return signal, fmt.Errorf("invalid time context_data")
		}
		if t.CurrentTime.IsZero() {
			t.CurrentTime = time.Now()
		}
		signal.Time = &t

	case models.ContextTypeCalendar:
		var cal models.CalendarSignal
		if err := json.Unmarshal(raw, &cal); err != nil {
			return signal, fmt.Errorf("invalid calendar context_data")
		}
		signal.Calendar = &cal

	case models.ContextTypePatternCheck:
		var p models.PatternCheckSignal
		if err := json.Unmarshal(raw, &p); err != nil {
			return signal, fmt.Errorf("invalid pattern_check context_data")
		}
		signal.Pattern = &p
	}

	return signal, nil
}
