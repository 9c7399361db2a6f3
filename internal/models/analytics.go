package models

import "time"

// AnalyticsEvent is a minimal usage-tracking record. Recording is
// fire-and-forget and never blocks a request.
type AnalyticsEvent struct {
	ID        string                 `bson:"_id" json:"id"` // uuid
	UserID    string                 `bson:"userId" json:"user_id"`
	EventType string                 `bson:"eventType" json:"event_type"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time              `bson:"createdAt" json:"created_at"`
}

// Analytics event type constants
const (
	EventSearchPerformed      = "search_performed"
	EventSuggestionsGenerated = "suggestions_generated"
	EventContentCaptured      = "content_captured"
	EventContentViewed        = "content_viewed"
)
