package models

import "testing"

func TestContextEnabled(t *testing.T) {
	tests := []struct {
		name        string
		prefs       UserPreferences
		contextType string
		want        bool
	}{
		{"defaults allow location", DefaultUserPreferences(), ContextTypeLocation, true},
		{"defaults allow time", DefaultUserPreferences(), ContextTypeTime, true},
		{"defaults allow calendar", DefaultUserPreferences(), ContextTypeCalendar, true},
		{"defaults allow pattern_check", DefaultUserPreferences(), ContextTypePatternCheck, true},
		{
			"master toggle off disables everything",
			UserPreferences{SuggestionsEnabled: false, LocationSuggestionsEnabled: true},
			ContextTypeLocation,
			false,
		},
		{
			"location toggle off",
			UserPreferences{SuggestionsEnabled: true, LocationSuggestionsEnabled: false, TimeSuggestionsEnabled: true},
			ContextTypeLocation,
			false,
		},
		{
			"location toggle off leaves time enabled",
			UserPreferences{SuggestionsEnabled: true, LocationSuggestionsEnabled: false, TimeSuggestionsEnabled: true},
			ContextTypeTime,
			true,
		},
		{
			"pattern_check only gated by master toggle",
			UserPreferences{SuggestionsEnabled: true},
			ContextTypePatternCheck,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prefs.ContextEnabled(tt.contextType); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestValidators(t *testing.T) {
	if !ValidSearchType(SearchTypeHybrid) || ValidSearchType("fuzzy") {
		t.Error("ValidSearchType misclassified input")
	}
	if !ValidContextType(ContextTypePatternCheck) || ValidContextType("weather") {
		t.Error("ValidContextType misclassified input")
	}
	if !ValidContentStatus(ContentStatusArchived) || ValidContentStatus("hidden") {
		t.Error("ValidContentStatus misclassified input")
	}
	if !ValidContentPriority(ContentPriorityUrgent) || ValidContentPriority("critical") {
		t.Error("ValidContentPriority misclassified input")
	}
}
