package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"later/internal/models"
)

// AnalyticsService records usage events. Writes are fire-and-forget: event
// bookkeeping must never slow down or fail a user request. The collection has
// a 90-day TTL index.
type AnalyticsService struct {
	collection *mongo.Collection
}

// NewAnalyticsService creates an analytics service.
func NewAnalyticsService(collection *mongo.Collection) *AnalyticsService {
	return &AnalyticsService{collection: collection}
}

// Record asynchronously stores one event.
func (s *AnalyticsService) Record(userID, eventType string, metadata map[string]interface{}) {
	event := models.AnalyticsEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventType: eventType,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := s.collection.InsertOne(ctx, event); err != nil {
			slog.Debug("failed to record analytics event",
				"event_type", eventType, "user_id", userID, "error", err)
		}
	}()
}

// CountSince returns how many events of a type the user produced after the
// cutoff.
func (s *AnalyticsService) CountSince(ctx context.Context, userID, eventType string, since time.Time) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"eventType": eventType,
		"createdAt": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count analytics events: %w", err)
	}
	return count, nil
}

// RecentEvents returns the user's newest events, newest first.
func (s *AnalyticsService) RecentEvents(ctx context.Context, userID string, limit int) ([]models.AnalyticsEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.AnalyticsEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode analytics events: %w", err)
	}
	return events, nil
}
