package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentItem represents a single piece of captured content (article, note,
// voice transcript, or image) owned by a user.
type ContentItem struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID string             `bson:"userId" json:"user_id"`

	Title           string `bson:"title,omitempty" json:"title,omitempty"`
	Summary         string `bson:"summary,omitempty" json:"summary,omitempty"`
	OriginalContent string `bson:"originalContent,omitempty" json:"original_content,omitempty"`
	URL             string `bson:"url,omitempty" json:"url,omitempty"`

	Source   string `bson:"source" json:"source"`     // "web", "note", "voice", "image"
	Status   string `bson:"status" json:"status"`     // capture lifecycle, see constants below
	Priority string `bson:"priority" json:"priority"` // "low", "medium", "high", "urgent"

	Tags       []string `bson:"tags,omitempty" json:"tags,omitempty"`
	Categories []string `bson:"categories,omitempty" json:"categories,omitempty"`

	IsFavorite bool `bson:"isFavorite" json:"is_favorite"`

	// Where the item was captured (optional, set by mobile clients)
	CaptureLocation *GeoPoint `bson:"captureLocation,omitempty" json:"capture_location,omitempty"`

	// When the user wants to come back to this item (optional)
	ScheduledFor *time.Time `bson:"scheduledFor,omitempty" json:"scheduled_for,omitempty"`

	ViewCount    int64      `bson:"viewCount" json:"view_count"`
	LastViewedAt *time.Time `bson:"lastViewedAt,omitempty" json:"last_viewed_at,omitempty"`

	CapturedAt time.Time `bson:"capturedAt" json:"captured_at"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updated_at"`
}

// GeoPoint is a latitude/longitude pair with measurement accuracy in meters.
type GeoPoint struct {
	Lat      float64 `bson:"lat" json:"lat"`
	Lng      float64 `bson:"lng" json:"lng"`
	Accuracy float64 `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
}

// Content status constants
const (
	ContentStatusCaptured   = "captured"
	ContentStatusProcessing = "processing"
	ContentStatusProcessed  = "processed"
	ContentStatusArchived   = "archived"
	ContentStatusDeleted    = "deleted"
)

// Content source constants
const (
	ContentSourceWeb   = "web"
	ContentSourceNote  = "note"
	ContentSourceVoice = "voice"
	ContentSourceImage = "image"
)

// Content priority constants
const (
	ContentPriorityLow    = "low"
	ContentPriorityMedium = "medium"
	ContentPriorityHigh   = "high"
	ContentPriorityUrgent = "urgent"
)

// ValidContentStatus reports whether s is a known content status.
func ValidContentStatus(s string) bool {
	switch s {
	case ContentStatusCaptured, ContentStatusProcessing, ContentStatusProcessed,
		ContentStatusArchived, ContentStatusDeleted:
		return true
	}
	return false
}

// ValidContentPriority reports whether p is a known priority.
func ValidContentPriority(p string) bool {
	switch p {
	case ContentPriorityLow, ContentPriorityMedium, ContentPriorityHigh, ContentPriorityUrgent:
		return true
	}
	return false
}

// CreateContentRequest is the POST /api/content body. For "web" captures the
// server fetches and extracts the page; for "note" captures Content carries
// the markdown body.
type CreateContentRequest struct {
	URL             string     `json:"url,omitempty"`
	Title           string     `json:"title,omitempty"`
	Content         string     `json:"content,omitempty"`
	Source          string     `json:"source"`
	Priority        string     `json:"priority,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Categories      []string   `json:"categories,omitempty"`
	CaptureLocation *GeoPoint  `json:"capture_location,omitempty"`
	ScheduledFor    *time.Time `json:"scheduled_for,omitempty"`
}

// UpdateContentRequest is the PUT /api/content/:id body. Nil fields are left
// unchanged.
type UpdateContentRequest struct {
	Title        *string    `json:"title,omitempty"`
	Summary      *string    `json:"summary,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Priority     *string    `json:"priority,omitempty"`
	Tags         *[]string  `json:"tags,omitempty"`
	Categories   *[]string  `json:"categories,omitempty"`
	IsFavorite   *bool      `json:"is_favorite,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// ContentQuery describes a repository lookup over a user's content.
type ContentQuery struct {
	Statuses       []string // empty = any non-deleted status
	Sources        []string
	OrderBy        string // "capturedAt", "lastViewedAt", "updatedAt"
	OrderAscending bool
	Limit          int
}
