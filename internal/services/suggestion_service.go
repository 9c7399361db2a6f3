package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"later/internal/models"
)

// Extractor tuning constants.
const (
	earthRadiusMeters = 6371000.0

	locationRadiusMeters   = 1000.0
	locationRecencyBonus   = 0.2
	locationRecencyWindow  = 30 * 24 * time.Hour
	timeScoreScheduled     = 0.9
	timeScoreLastViewed    = 0.6
	timeScoreTagMatch      = 0.5
	timeScoreFloor         = 0.4
	calendarKeywordWeight  = 0.2
	calendarScoreFloor     = 0.3
	patternTimeConfidence  = 0.8
	patternLocConfidence   = 0.9
	patternLocRadiusMeters = 500.0
	patternItemCap         = 5

	candidateWindowDefault  = 50
	candidateWindowCalendar = 100

	insightsCacheTTL = 5 * time.Minute
)

// timeOfDayTags are matched against item tags by the time extractor.
var timeOfDayTags = []string{"morning", "afternoon", "evening", "weekend", "workday"}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lng2 - lng1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// SuggestionService turns context signals into ranked content suggestions.
type SuggestionService struct {
	repo     ContentRepository
	patterns *PatternService
	redis    *RedisService // optional, nil disables insights caching
}

// NewSuggestionService creates a suggestion service. redis may be nil.
func NewSuggestionService(repo ContentRepository, patterns *PatternService, redis *RedisService) *SuggestionService {
	return &SuggestionService{repo: repo, patterns: patterns, redis: redis}
}

// Suggest runs the extractor selected by the signal type, ranks the results,
// and feeds the round back into the pattern learner. The returned patterns
// are the active ones consulted for this round.
func (s *SuggestionService) Suggest(ctx context.Context, userID string, signal models.ContextSignal, limit int) ([]models.Suggestion, []models.ContextPattern, error) {
	if limit <= 0 {
		limit = models.SuggestionLimitDefault
	}

	window := candidateWindowDefault
	if signal.Type == models.ContextTypeCalendar {
		window = candidateWindowCalendar
	}

	candidates, err := s.repo.CandidateWindow(ctx, userID, window)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch suggestion candidates: %w", err)
	}

	var (
		suggestions []models.Suggestion
		patterns    []models.ContextPattern
	)

	switch signal.Type {
	case models.ContextTypeLocation:
		suggestions = s.locationSuggestions(signal.Location, candidates)
	case models.ContextTypeTime:
		suggestions = s.timeSuggestions(signal.Time, candidates)
	case models.ContextTypeCalendar:
		suggestions = s.calendarSuggestions(signal.Calendar, candidates)
	case models.ContextTypePatternCheck:
		patterns, err = s.patterns.ActivePatterns(ctx, userID, "")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load patterns: %w", err)
		}
		suggestions = s.patternSuggestions(patterns, signal.Pattern, candidates)
	default:
		return nil, nil, fmt.Errorf("unknown context type %q", signal.Type)
	}

	suggestions = RankSuggestions(suggestions, limit)

	// Learning runs after every round, even an empty one.
	s.patterns.Learn(ctx, userID, signal)

	if patterns == nil {
		patterns, err = s.patterns.ActivePatterns(ctx, userID, "")
		if err != nil {
			slog.Warn("failed to load patterns for response", "user_id", userID, "error", err)
			patterns = []models.ContextPattern{}
		}
	}

	return suggestions, patterns, nil
}

// locationSuggestions keeps candidates captured within 1 km of the signal.
// Closer and fresher items score higher.
func (s *SuggestionService) locationSuggestions(loc *models.LocationSignal, candidates []models.ContentItem) []models.Suggestion {
	if loc == nil {
		return nil
	}

	var out []models.Suggestion
	now := time.Now()

	for i := range candidates {
		item := &candidates[i]
		if item.CaptureLocation == nil {
			continue
		}

		distance := Haversine(loc.Lat, loc.Lng, item.CaptureLocation.Lat, item.CaptureLocation.Lng)
		if distance > locationRadiusMeters {
			continue
		}

		score := math.Max(0.1, 1-distance/locationRadiusMeters)

		// Recency bonus fades linearly to zero over 30 days.
		age := now.Sub(item.CapturedAt)
		if age < locationRecencyWindow {
			score += locationRecencyBonus * (1 - float64(age)/float64(locationRecencyWindow))
		}
		if score > 1.0 {
			score = 1.0
		}

		out = append(out, models.Suggestion{
			ContentID:      item.ID.Hex(),
			Title:          item.Title,
			Summary:        item.Summary,
			RelevanceScore: score,
			Reason:         fmt.Sprintf("Captured %dm from your current location", int(math.Round(distance))),
			ContextMatch:   "location",
			Priority:       item.Priority,
		})
	}
	return out
}

// timeSuggestions scores candidates against the signal's clock. The three
// checks are alternatives, not additive: each item keeps its best one.
func (s *SuggestionService) timeSuggestions(sig *models.TimeSignal, candidates []models.ContentItem) []models.Suggestion {
	if sig == nil {
		return nil
	}

	now := sig.CurrentTime
	currentHour := now.Hour()

	var out []models.Suggestion
	for i := range candidates {
		item := &candidates[i]
		score := 0.0
		reason := ""

		if item.ScheduledFor != nil {
			diff := item.ScheduledFor.Sub(now)
			if diff < 0 {
				diff = -diff
			}
			if diff <= time.Hour {
				score = timeScoreScheduled
				reason = "Scheduled for around now"
			}
		}

		if score < timeScoreLastViewed && item.LastViewedAt != nil {
			if hourDistance(item.LastViewedAt.Hour(), currentHour) <= 1 {
				score = timeScoreLastViewed
				reason = "You usually look at this around this time"
			}
		}

		if score < timeScoreTagMatch {
			for _, tag := range item.Tags {
				tagLower := strings.ToLower(tag)
				for _, tod := range timeOfDayTags {
					if strings.Contains(tagLower, tod) {
						score = timeScoreTagMatch
						reason = fmt.Sprintf("Tagged for %s", tod)
						break
					}
				}
				if score == timeScoreTagMatch {
					break
				}
			}
		}

		if score <= timeScoreFloor {
			continue
		}

		out = append(out, models.Suggestion{
			ContentID:      item.ID.Hex(),
			Title:          item.Title,
			Summary:        item.Summary,
			RelevanceScore: score,
			Reason:         reason,
			ContextMatch:   "time",
			Priority:       item.Priority,
		})
	}
	return out
}

// hourDistance returns the circular distance between two hours of day.
func hourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

// calendarSuggestions matches candidates against keywords from upcoming
// events. An item matched by several events keeps its best-scoring event.
func (s *SuggestionService) calendarSuggestions(sig *models.CalendarSignal, candidates []models.ContentItem) []models.Suggestion {
	if sig == nil || len(sig.UpcomingEvents) == 0 {
		return nil
	}

	best := make(map[string]models.Suggestion)

	for _, event := range sig.UpcomingEvents {
		keywords := ExtractKeywords(event.Title + " " + event.Location)
		if len(keywords) == 0 {
			continue
		}

		for i := range candidates {
			item := &candidates[i]
			haystack := strings.ToLower(item.Title + " " + item.Summary + " " +
				strings.Join(item.Tags, " ") + " " + strings.Join(item.Categories, " "))

			score := 0.0
			for _, kw := range keywords {
				if strings.Contains(haystack, kw) {
					score += calendarKeywordWeight
				}
			}
			if score <= calendarScoreFloor {
				continue
			}
			if score > 1.0 {
				score = 1.0
			}

			id := item.ID.Hex()
			if existing, ok := best[id]; ok && existing.RelevanceScore >= score {
				continue
			}
			best[id] = models.Suggestion{
				ContentID:      id,
				Title:          item.Title,
				Summary:        item.Summary,
				RelevanceScore: score,
				Reason:         fmt.Sprintf("Related to your upcoming event %q", event.Title),
				ContextMatch:   "calendar",
				Priority:       item.Priority,
			}
		}
	}

	out := make([]models.Suggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	return out
}

// patternSuggestions surfaces items related to the user's matching patterns.
// Time patterns match on the current hour; location patterns need a stored
// location within 500 m, which a pattern-check signal cannot provide, so they
// only match when the pattern itself carries the check's activity hints.
func (s *SuggestionService) patternSuggestions(patterns []models.ContextPattern, sig *models.PatternCheckSignal, candidates []models.ContentItem) []models.Suggestion {
	if len(patterns) == 0 {
		return nil
	}

	currentHour := time.Now().Hour()

	var out []models.Suggestion
	for _, pattern := range patterns {
		matchConfidence := 0.0

		switch pattern.ContextType {
		case models.PatternTypeTime:
			if hour, ok := patternHour(pattern.PatternData); ok && hourDistance(hour, currentHour) <= 1 {
				matchConfidence = patternTimeConfidence
			}
		case models.PatternTypeLocation:
			// Pattern-check signals carry no coordinates; a location pattern
			// can only match via its trigger conditions against recent
			// activity.
			if sig != nil && triggersMatch(pattern.TriggerConditions, sig.RecentActivity) {
				matchConfidence = patternLocConfidence
			}
		}

		if matchConfidence == 0 {
			continue
		}

		related := relatedItems(pattern, candidates, patternItemCap)
		for i := range related {
			item := related[i]
			out = append(out, models.Suggestion{
				ContentID:      item.ID.Hex(),
				Title:          item.Title,
				Summary:        item.Summary,
				RelevanceScore: matchConfidence * pattern.ConfidenceScore,
				Reason:         fmt.Sprintf("Matches your %s pattern", pattern.PatternName),
				ContextMatch:   "pattern",
				Priority:       item.Priority,
			})
		}
	}
	return out
}

// patternHour reads the preferredHour field out of a time pattern's data.
func patternHour(data map[string]interface{}) (int, bool) {
	v, ok := data["preferredHour"]
	if !ok {
		return 0, false
	}
	switch h := v.(type) {
	case int:
		return h, true
	case int32:
		return int(h), true
	case int64:
		return int(h), true
	case float64:
		return int(h), true
	}
	return 0, false
}

// triggersMatch reports whether any trigger condition appears in the recent
// activity hints.
func triggersMatch(triggers, activity []string) bool {
	for _, t := range triggers {
		for _, a := range activity {
			if strings.Contains(strings.ToLower(a), strings.ToLower(t)) {
				return true
			}
		}
	}
	return false
}

// relatedItems picks up to max items for a pattern: items whose tags overlap
// the pattern's trigger conditions first, then the most recent candidates.
func relatedItems(pattern models.ContextPattern, candidates []models.ContentItem, max int) []models.ContentItem {
	var matched, rest []models.ContentItem
	for i := range candidates {
		if len(pattern.TriggerConditions) > 0 && anyOverlap(candidates[i].Tags, pattern.TriggerConditions) {
			matched = append(matched, candidates[i])
		} else {
			rest = append(rest, candidates[i])
		}
	}

	out := matched
	if len(out) < max {
		out = append(out, rest...)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// RankSuggestions sorts suggestions best first (stable on ties) and truncates
// to limit.
func RankSuggestions(suggestions []models.Suggestion, limit int) []models.Suggestion {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].RelevanceScore > suggestions[j].RelevanceScore
	})
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// Insights computes advisory capture-activity stats for the last 7 days. The
// result is cached in Redis for 5 minutes when Redis is configured.
func (s *SuggestionService) Insights(ctx context.Context, userID string) (*models.SuggestionInsights, error) {
	cacheKey := "insights:" + userID

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey); err == nil && cached != "" {
			var insights models.SuggestionInsights
			if err := json.Unmarshal([]byte(cached), &insights); err == nil {
				return &insights, nil
			}
		}
	}

	times, err := s.repo.CaptureTimesSince(ctx, userID, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to compute insights: %w", err)
	}

	insights := ComputeInsights(times)

	if s.redis != nil {
		if data, err := json.Marshal(insights); err == nil {
			if err := s.redis.Set(ctx, cacheKey, string(data), insightsCacheTTL); err != nil {
				slog.Debug("failed to cache insights", "user_id", userID, "error", err)
			}
		}
	}

	return insights, nil
}

// ComputeInsights derives the most-active capture hour and capture count from
// a list of capture timestamps.
func ComputeInsights(times []time.Time) *models.SuggestionInsights {
	var hourCounts [24]int64
	for _, t := range times {
		hourCounts[t.Hour()]++
	}

	mostActive := 0
	for hour := 1; hour < 24; hour++ {
		if hourCounts[hour] > hourCounts[mostActive] {
			mostActive = hour
		}
	}

	return &models.SuggestionInsights{
		MostActiveHour:   mostActive,
		CapturesLastWeek: int64(len(times)),
	}
}
