package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"later/internal/models"
)

// activityStore is the read side of the analytics service.
type activityStore interface {
	CountSince(ctx context.Context, userID, eventType string, since time.Time) (int64, error)
	RecentEvents(ctx context.Context, userID string, limit int) ([]models.AnalyticsEvent, error)
}

// AnalyticsHandler serves per-user usage activity.
type AnalyticsHandler struct {
	store activityStore
}

// NewAnalyticsHandler creates an analytics handler.
func NewAnalyticsHandler(store activityStore) *AnalyticsHandler {
	return &AnalyticsHandler{store: store}
}

// activityWindowDays is the lookback for the per-event-type counts.
const activityWindowDays = 7

// Activity handles GET /api/analytics/activity. It returns per-event-type
// counts for the last week plus the user's most recent events.
func (h *AnalyticsHandler) Activity(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	limit := c.QueryInt("limit", 20)

	since := time.Now().AddDate(0, 0, -activityWindowDays)
	counts := fiber.Map{}
	for _, eventType := range []string{
		models.EventSearchPerformed,
		models.EventSuggestionsGenerated,
		models.EventContentCaptured,
		models.EventContentViewed,
	} {
		count, err := h.store.CountSince(c.Context(), userID, eventType, since)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load activity counts",
			})
		}
		counts[eventType] = count
	}

	events, err := h.store.RecentEvents(c.Context(), userID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load recent events",
		})
	}
	if events == nil {
		events = []models.AnalyticsEvent{}
	}

	return c.JSON(fiber.Map{
		"window_days":   activityWindowDays,
		"counts":        counts,
		"recent_events": events,
	})
}
