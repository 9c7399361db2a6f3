package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context type constants for suggestion requests
const (
	ContextTypeLocation     = "location"
	ContextTypeTime         = "time"
	ContextTypeCalendar     = "calendar"
	ContextTypePatternCheck = "pattern_check"
)

// ValidContextType reports whether t is a known suggestion context type.
func ValidContextType(t string) bool {
	switch t {
	case ContextTypeLocation, ContextTypeTime, ContextTypeCalendar, ContextTypePatternCheck:
		return true
	}
	return false
}

// ContextSignal is a tagged union of situational inputs. Exactly one variant
// is set, selected by Type.
type ContextSignal struct {
	Type     string
	Location *LocationSignal
	Time     *TimeSignal
	Calendar *CalendarSignal
	Pattern  *PatternCheckSignal
}

// LocationSignal is the user's current position.
type LocationSignal struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// TimeSignal carries the user's local clock.
type TimeSignal struct {
	Timezone    string    `json:"timezone,omitempty"`
	CurrentTime time.Time `json:"current_time"`
	DayOfWeek   string    `json:"day_of_week,omitempty"`
}

// CalendarSignal lists the user's upcoming events.
type CalendarSignal struct {
	UpcomingEvents []CalendarEvent `json:"upcoming_events"`
}

// CalendarEvent is one upcoming calendar entry.
type CalendarEvent struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	Location  string    `json:"location,omitempty"`
}

// PatternCheckSignal carries recent-activity hints for pattern matching.
type PatternCheckSignal struct {
	RecentActivity  []string `json:"recent_activity,omitempty"`
	CurrentAppUsage string   `json:"current_app_usage,omitempty"`
}

// ContextPattern is a persisted, per-user, confidence-weighted rule describing
// a recurring situational preference. Patterns are learned from suggestion
// rounds; confidence and usage count only grow, and patterns are deactivated
// rather than deleted.
type ContextPattern struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID string             `bson:"userId" json:"user_id"`

	PatternName string `bson:"patternName" json:"pattern_name"`
	ContextType string `bson:"contextType" json:"context_type"` // "location", "time", "calendar", "social", "work", "personal", "travel", "shopping"

	// Interpreted per ContextType, e.g. {"preferredHour": 9} for time
	// patterns or {"lat": ..., "lng": ...} for location patterns.
	PatternData map[string]interface{} `bson:"patternData,omitempty" json:"pattern_data,omitempty"`

	TriggerConditions []string `bson:"triggerConditions,omitempty" json:"trigger_conditions,omitempty"`
	SuggestedActions  []string `bson:"suggestedActions,omitempty" json:"suggested_actions,omitempty"`

	ConfidenceScore float64 `bson:"confidenceScore" json:"confidence_score"` // 0.0-1.0
	UsageCount      int64   `bson:"usageCount" json:"usage_count"`
	IsActive        bool    `bson:"isActive" json:"is_active"`

	LastMatchedAt *time.Time `bson:"lastMatchedAt,omitempty" json:"last_matched_at,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updated_at"`
}

// Pattern context type constants (persisted patterns)
const (
	PatternTypeLocation = "location"
	PatternTypeTime     = "time"
	PatternTypeCalendar = "calendar"
	PatternTypeSocial   = "social"
	PatternTypeWork     = "work"
	PatternTypePersonal = "personal"
	PatternTypeTravel   = "travel"
	PatternTypeShopping = "shopping"
)

// Suggestion is one proposed content item, produced per request and never
// persisted.
type Suggestion struct {
	ContentID      string  `json:"content_id"`
	Title          string  `json:"title"`
	Summary        string  `json:"summary,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
	Reason         string  `json:"reason"`
	ContextMatch   string  `json:"context_match"` // "location", "time", "calendar", "pattern"
	Priority       string  `json:"priority"`
}

// SuggestionInsights is advisory output computed from capture history. It is
// not part of ranking.
type SuggestionInsights struct {
	MostActiveHour   int   `json:"most_active_hour"`
	CapturesLastWeek int64 `json:"captures_last_week"`
}

// ContextSuggestionRequest is the POST /api/context-suggestions body.
// ContextData is decoded into the variant selected by ContextType.
type ContextSuggestionRequest struct {
	ContextType string                 `json:"context_type"`
	ContextData map[string]interface{} `json:"context_data"`
	Limit       int                    `json:"limit"`
}

// Suggestion limit default
const SuggestionLimitDefault = 10
