package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"later/internal/models"
)

// Pattern learner tuning. Confidence only moves up, in fixed steps, so a
// pattern's weight is explainable from its usage count alone.
const (
	patternInitialConfidence = 0.3
	patternReinforceStep     = 0.05
	patternConfidenceCap     = 0.95
	patternStaleAfter        = 90 * 24 * time.Hour
	patternListCap           = 5
	patternCacheTTL          = 60 * time.Second
)

// PatternObservation is one learnable signal bucket derived from a
// suggestion round.
type PatternObservation struct {
	PatternName string
	ContextType string
	PatternData map[string]interface{}
}

// PatternRepository is the persistence boundary for context patterns.
type PatternRepository interface {
	ListActive(ctx context.Context, userID, contextType string, limit int) ([]models.ContextPattern, error)
	Upsert(ctx context.Context, userID string, obs PatternObservation) (created bool, err error)
	DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// MongoPatternStore implements PatternRepository on the context_patterns
// collection.
type MongoPatternStore struct {
	collection *mongo.Collection
}

// NewMongoPatternStore creates a pattern store.
func NewMongoPatternStore(collection *mongo.Collection) *MongoPatternStore {
	return &MongoPatternStore{collection: collection}
}

// ListActive returns the user's active patterns, highest confidence first.
func (s *MongoPatternStore) ListActive(ctx context.Context, userID, contextType string, limit int) ([]models.ContextPattern, error) {
	filter := bson.M{"userId": userID, "isActive": true}
	if contextType != "" {
		filter["contextType"] = contextType
	}

	if limit <= 0 {
		limit = patternListCap
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "confidenceScore", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer cursor.Close(ctx)

	var patterns []models.ContextPattern
	if err := cursor.All(ctx, &patterns); err != nil {
		return nil, fmt.Errorf("failed to decode patterns: %w", err)
	}
	return patterns, nil
}

// Upsert creates or reinforces one pattern. New patterns start at the initial
// confidence; each reinforcement adds a fixed step up to the cap and bumps
// usageCount. A stale-deactivated pattern that matches again is reactivated.
func (s *MongoPatternStore) Upsert(ctx context.Context, userID string, obs PatternObservation) (bool, error) {
	now := time.Now()

	// Pipeline update so confidence can reference its own previous value.
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"userId":      userID,
			"patternName": obs.PatternName,
			"contextType": obs.ContextType,
			"patternData": obs.PatternData,
			"confidenceScore": bson.M{"$min": bson.A{
				bson.M{"$add": bson.A{
					bson.M{"$ifNull": bson.A{"$confidenceScore", patternInitialConfidence - patternReinforceStep}},
					patternReinforceStep,
				}},
				patternConfidenceCap,
			}},
			"usageCount":    bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$usageCount", 0}}, 1}},
			"isActive":      true,
			"lastMatchedAt": now,
			"createdAt":     bson.M{"$ifNull": bson.A{"$createdAt", now}},
			"updatedAt":     now,
		}}},
	}

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"userId": userID, "patternName": obs.PatternName},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert pattern %s: %w", obs.PatternName, err)
	}

	return result.UpsertedCount > 0, nil
}

// DeactivateStale flips isActive off for patterns not matched since the
// cutoff. Patterns are never deleted.
func (s *MongoPatternStore) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.collection.UpdateMany(ctx,
		bson.M{
			"isActive":      true,
			"lastMatchedAt": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate stale patterns: %w", err)
	}
	return result.ModifiedCount, nil
}

// PatternService wraps the pattern store with a short in-process cache on the
// read path and the learning rule on the write path.
type PatternService struct {
	repo  PatternRepository
	cache *gocache.Cache
}

// NewPatternService creates a pattern service.
func NewPatternService(repo PatternRepository) *PatternService {
	return &PatternService{
		repo:  repo,
		cache: gocache.New(patternCacheTTL, 2*patternCacheTTL),
	}
}

// ActivePatterns returns up to 5 of the user's active patterns by confidence,
// served from a 60s cache. A stale read here only delays a new pattern's
// first appearance, never a ranking decision.
func (p *PatternService) ActivePatterns(ctx context.Context, userID, contextType string) ([]models.ContextPattern, error) {
	cacheKey := userID + ":" + contextType
	if cached, found := p.cache.Get(cacheKey); found {
		return cached.([]models.ContextPattern), nil
	}

	patterns, err := p.repo.ListActive(ctx, userID, contextType, patternListCap)
	if err != nil {
		return nil, err
	}

	p.cache.Set(cacheKey, patterns, gocache.DefaultExpiration)
	return patterns, nil
}

// Learn records one observation from a completed suggestion round. Learning
// failures are logged, never surfaced: suggestions must not fail because
// bookkeeping did.
func (p *PatternService) Learn(ctx context.Context, userID string, signal models.ContextSignal) {
	obs, ok := observationFor(signal)
	if !ok {
		return
	}

	created, err := p.repo.Upsert(ctx, userID, obs)
	if err != nil {
		slog.Warn("pattern learning failed",
			"user_id", userID, "pattern", obs.PatternName, "error", err)
		return
	}

	outcome := "reinforced"
	if created {
		outcome = "created"
	}
	RecordPatternLearned(obs.ContextType, outcome)

	// Invalidate cached reads for this user so the next round sees it.
	p.cache.Delete(userID + ":")
	p.cache.Delete(userID + ":" + obs.ContextType)
}

// DeactivateStalePatterns deactivates patterns unused for 90 days. Called by
// the nightly maintenance job.
func (p *PatternService) DeactivateStalePatterns(ctx context.Context) (int64, error) {
	return p.repo.DeactivateStale(ctx, time.Now().Add(-patternStaleAfter))
}

// observationFor maps a context signal to its learnable bucket. Location
// signals bucket by rounded coordinates, time and calendar signals by hour of
// day. pattern_check rounds only read patterns, they do not produce new ones.
func observationFor(signal models.ContextSignal) (PatternObservation, bool) {
	switch signal.Type {
	case models.ContextTypeLocation:
		if signal.Location == nil {
			return PatternObservation{}, false
		}
		name := fmt.Sprintf("location:%.4f,%.4f", signal.Location.Lat, signal.Location.Lng)
		return PatternObservation{
			PatternName: name,
			ContextType: models.PatternTypeLocation,
			PatternData: map[string]interface{}{
				"lat": signal.Location.Lat,
				"lng": signal.Location.Lng,
			},
		}, true

	case models.ContextTypeTime:
		if signal.Time == nil {
			return PatternObservation{}, false
		}
		hour := signal.Time.CurrentTime.Hour()
		return PatternObservation{
			PatternName: fmt.Sprintf("time:hour-%d", hour),
			ContextType: models.PatternTypeTime,
			PatternData: map[string]interface{}{
				"preferredHour": hour,
			},
		}, true

	case models.ContextTypeCalendar:
		if signal.Calendar == nil || len(signal.Calendar.UpcomingEvents) == 0 {
			return PatternObservation{}, false
		}
		hour := signal.Calendar.UpcomingEvents[0].StartTime.Hour()
		return PatternObservation{
			PatternName: fmt.Sprintf("calendar:hour-%d", hour),
			ContextType: models.PatternTypeCalendar,
			PatternData: map[string]interface{}{
				"eventHour": hour,
			},
		}, true
	}

	return PatternObservation{}, false
}
