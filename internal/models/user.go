package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a user in the local auth system
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	PasswordHash  string             `bson:"passwordHash,omitempty" json:"-"` // Argon2id hash, never exposed in API
	EmailVerified bool               `bson:"emailVerified" json:"email_verified"`
	Role          string             `bson:"role,omitempty" json:"role,omitempty"` // "admin" or "user"

	Preferences UserPreferences `bson:"preferences" json:"preferences"`

	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
	LastLoginAt time.Time `bson:"lastLoginAt" json:"last_login_at"`
}

// UserPreferences holds per-user suggestion toggles. A disabled toggle makes
// the matching suggestion context return empty results, not an error.
type UserPreferences struct {
	SuggestionsEnabled         bool   `bson:"suggestionsEnabled" json:"suggestions_enabled"`
	LocationSuggestionsEnabled bool   `bson:"locationSuggestionsEnabled" json:"location_suggestions_enabled"`
	TimeSuggestionsEnabled     bool   `bson:"timeSuggestionsEnabled" json:"time_suggestions_enabled"`
	CalendarSuggestionsEnabled bool   `bson:"calendarSuggestionsEnabled" json:"calendar_suggestions_enabled"`
	Timezone                   string `bson:"timezone,omitempty" json:"timezone,omitempty"`
}

// DefaultUserPreferences returns the preferences assigned at registration.
func DefaultUserPreferences() UserPreferences {
	return UserPreferences{
		SuggestionsEnabled:         true,
		LocationSuggestionsEnabled: true,
		TimeSuggestionsEnabled:     true,
		CalendarSuggestionsEnabled: true,
	}
}

// ContextEnabled reports whether suggestions for the given context type are
// allowed by the user's preferences.
func (p UserPreferences) ContextEnabled(contextType string) bool {
	if !p.SuggestionsEnabled {
		return false
	}
	switch contextType {
	case ContextTypeLocation:
		return p.LocationSuggestionsEnabled
	case ContextTypeTime:
		return p.TimeSuggestionsEnabled
	case ContextTypeCalendar:
		return p.CalendarSuggestionsEnabled
	}
	return true
}

// UpdateUserPreferencesRequest is the request body for updating preferences
type UpdateUserPreferencesRequest struct {
	SuggestionsEnabled         *bool   `json:"suggestions_enabled,omitempty"`
	LocationSuggestionsEnabled *bool   `json:"location_suggestions_enabled,omitempty"`
	TimeSuggestionsEnabled     *bool   `json:"time_suggestions_enabled,omitempty"`
	CalendarSuggestionsEnabled *bool   `json:"calendar_suggestions_enabled,omitempty"`
	Timezone                   *string `json:"timezone,omitempty"`
}

// UserResponse is the API response for user data
type UserResponse struct {
	ID            string          `json:"id"`
	Email         string          `json:"email"`
	EmailVerified bool            `json:"email_verified"`
	Role          string          `json:"role,omitempty"`
	Preferences   UserPreferences `json:"preferences"`
	CreatedAt     time.Time       `json:"created_at"`
	LastLoginAt   time.Time       `json:"last_login_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:            u.ID.Hex(),
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Role:          u.Role,
		Preferences:   u.Preferences,
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
	}
}
