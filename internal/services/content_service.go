package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"later/internal/models"
)

// ErrContentNotFound is returned when a content item does not exist or does
// not belong to the requesting user.
var ErrContentNotFound = errors.New("content not found")

// ContentRepository is the persistence boundary for content items. The search
// and suggestion services only see this interface, so the storage backend can
// be swapped without touching ranking code.
type ContentRepository interface {
	Create(ctx context.Context, item *models.ContentItem) error
	GetByID(ctx context.Context, userID, id string) (*models.ContentItem, error)
	List(ctx context.Context, userID string, q models.ContentQuery) ([]models.ContentItem, error)
	Update(ctx context.Context, userID, id string, req *models.UpdateContentRequest) (*models.ContentItem, error)
	SoftDelete(ctx context.Context, userID, id string) error
	MarkViewed(ctx context.Context, userID, id string) error

	// CandidateWindow returns the user's most recent processed or captured
	// items, newest first, for in-process scoring.
	CandidateWindow(ctx context.Context, userID string, limit int) ([]models.ContentItem, error)

	// CaptureTimesSince returns capture timestamps after the cutoff, for
	// activity insights.
	CaptureTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
}

// FullTextIndex is the boundary to the external full-text search capability.
// Scores it returns are backend-relative and unbounded.
type FullTextIndex interface {
	Search(ctx context.Context, userID string, q models.SearchQuery) ([]models.ScoredContent, error)
}

// MongoContentStore implements ContentRepository and FullTextIndex on top of
// the content_items collection.
type MongoContentStore struct {
	collection      *mongo.Collection
	fulltextTimeout time.Duration
}

// NewMongoContentStore creates a content store. fulltextTimeoutMS bounds each
// full-text query; 0 uses the 3000ms default.
func NewMongoContentStore(collection *mongo.Collection, fulltextTimeoutMS int) *MongoContentStore {
	if fulltextTimeoutMS <= 0 {
		fulltextTimeoutMS = 3000
	}
	return &MongoContentStore{
		collection:      collection,
		fulltextTimeout: time.Duration(fulltextTimeoutMS) * time.Millisecond,
	}
}

// Create inserts a new content item.
func (s *MongoContentStore) Create(ctx context.Context, item *models.ContentItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if item.CapturedAt.IsZero() {
		item.CapturedAt = now
	}
	item.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to insert content item: %w", err)
	}
	return nil
}

// GetByID fetches one item owned by userID. Soft-deleted items are invisible.
func (s *MongoContentStore) GetByID(ctx context.Context, userID, id string) (*models.ContentItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrContentNotFound
	}

	var item models.ContentItem
	err = s.collection.FindOne(ctx, bson.M{
		"_id":    oid,
		"userId": userID,
		"status": bson.M{"$ne": models.ContentStatusDeleted},
	}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to fetch content item: %w", err)
	}

	return &item, nil
}

// List returns the user's items matching the query, soft-deleted excluded.
func (s *MongoContentStore) List(ctx context.Context, userID string, q models.ContentQuery) ([]models.ContentItem, error) {
	filter := bson.M{"userId": userID}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	} else {
		filter["status"] = bson.M{"$ne": models.ContentStatusDeleted}
	}
	if len(q.Sources) > 0 {
		filter["source"] = bson.M{"$in": q.Sources}
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "capturedAt"
	}
	direction := -1
	if q.OrderAscending {
		direction = 1
	}

	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: orderBy, Value: direction}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.ContentItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode content items: %w", err)
	}
	return items, nil
}

// Update applies the non-nil fields of req and returns the updated item.
func (s *MongoContentStore) Update(ctx context.Context, userID, id string, req *models.UpdateContentRequest) (*models.ContentItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrContentNotFound
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Summary != nil {
		set["summary"] = *req.Summary
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if req.Priority != nil {
		set["priority"] = *req.Priority
	}
	if req.Tags != nil {
		set["tags"] = *req.Tags
	}
	if req.Categories != nil {
		set["categories"] = *req.Categories
	}
	if req.IsFavorite != nil {
		set["isFavorite"] = *req.IsFavorite
	}
	if req.ScheduledFor != nil {
		set["scheduledFor"] = *req.ScheduledFor
	}

	var item models.ContentItem
	err = s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "userId": userID, "status": bson.M{"$ne": models.ContentStatusDeleted}},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to update content item: %w", err)
	}

	return &item, nil
}

// SoftDelete marks an item deleted. The document stays in place so analytics
// and pattern history remain intact.
func (s *MongoContentStore) SoftDelete(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrContentNotFound
	}

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "userId": userID, "status": bson.M{"$ne": models.ContentStatusDeleted}},
		bson.M{"$set": bson.M{"status": models.ContentStatusDeleted, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to delete content item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrContentNotFound
	}
	return nil
}

// MarkViewed bumps the view counter and lastViewedAt.
func (s *MongoContentStore) MarkViewed(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrContentNotFound
	}

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "userId": userID, "status": bson.M{"$ne": models.ContentStatusDeleted}},
		bson.M{
			"$inc": bson.M{"viewCount": 1},
			"$set": bson.M{"lastViewedAt": time.Now(), "updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to mark content viewed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrContentNotFound
	}
	return nil
}

// CandidateWindow returns the newest processed/captured items for scoring.
func (s *MongoContentStore) CandidateWindow(ctx context.Context, userID string, limit int) ([]models.ContentItem, error) {
	if limit <= 0 {
		limit = 50
	}

	filter := bson.M{
		"userId": userID,
		"status": bson.M{"$in": []string{models.ContentStatusProcessed, models.ContentStatusCaptured}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "capturedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate window: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.ContentItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode candidate window: %w", err)
	}
	return items, nil
}

// CaptureTimesSince returns capture timestamps after the cutoff, newest first.
func (s *MongoContentStore) CaptureTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	filter := bson.M{
		"userId":     userID,
		"status":     bson.M{"$ne": models.ContentStatusDeleted},
		"capturedAt": bson.M{"$gte": since},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "capturedAt", Value: -1}}).
		SetProjection(bson.M{"capturedAt": 1}).
		SetLimit(1000)

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch capture times: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		CapturedAt time.Time `bson:"capturedAt"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode capture times: %w", err)
	}

	times := make([]time.Time, 0, len(docs))
	for _, d := range docs {
		times = append(times, d.CapturedAt)
	}
	return times, nil
}

// fulltextSearchTerm builds the $search string for a $text query. Each token
// is quoted so that all tokens must match (conjunctive semantics); Mongo's
// default would OR them. Single-character tokens are dropped before quoting:
// once quoted they become hard AND requirements, and a token like "c" or "x"
// would zero out results the longer tokens still match.
func fulltextSearchTerm(text string) string {
	var quoted []string
	for _, t := range strings.Fields(text) {
		if utf8.RuneCountInString(t) <= 1 {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " ")
}

// Search runs a $text query against the content_fulltext index. Scores come
// from textScore and are unbounded.
func (s *MongoContentStore) Search(ctx context.Context, userID string, q models.SearchQuery) ([]models.ScoredContent, error) {
	term := fulltextSearchTerm(q.Text)
	if term == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.fulltextTimeout)
	defer cancel()

	filter := bson.M{
		"userId": userID,
		"status": bson.M{"$ne": models.ContentStatusDeleted},
		"$text":  bson.M{"$search": term},
	}
	applySearchFilters(filter, q.Filters)

	limit := q.Limit
	if limit <= 0 {
		limit = models.SearchLimitDefault
	}

	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("full-text query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		models.ContentItem `bson:",inline"`
		Score              float64 `bson:"score"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode full-text results: %w", err)
	}

	results := make([]models.ScoredContent, 0, len(docs))
	for _, d := range docs {
		results = append(results, models.ScoredContent{
			Item:           d.ContentItem,
			RelevanceScore: d.Score,
			SourceStrategy: models.SearchTypeFullText,
		})
	}
	return results, nil
}

// applySearchFilters adds the conjunctive filter clauses to a query document.
func applySearchFilters(filter bson.M, f models.SearchFilters) {
	if len(f.Categories) > 0 {
		filter["categories"] = bson.M{"$in": f.Categories}
	}
	if len(f.Tags) > 0 {
		filter["tags"] = bson.M{"$in": f.Tags}
	}
	if len(f.Sources) > 0 {
		filter["source"] = bson.M{"$in": f.Sources}
	}
	if len(f.Priorities) > 0 {
		filter["priority"] = bson.M{"$in": f.Priorities}
	}
	if f.DateFrom != nil || f.DateTo != nil {
		dateRange := bson.M{}
		if f.DateFrom != nil {
			dateRange["$gte"] = *f.DateFrom
		}
		if f.DateTo != nil {
			dateRange["$lte"] = *f.DateTo
		}
		filter["capturedAt"] = dateRange
	}
}

// MatchesFilters reports whether an item passes the conjunctive filters.
// Used by the semantic strategy, which scores in process.
func MatchesFilters(item *models.ContentItem, f models.SearchFilters) bool {
	if len(f.Categories) > 0 && !anyOverlap(item.Categories, f.Categories) {
		return false
	}
	if len(f.Tags) > 0 && !anyOverlap(item.Tags, f.Tags) {
		return false
	}
	if len(f.Sources) > 0 && !containsString(f.Sources, item.Source) {
		return false
	}
	if len(f.Priorities) > 0 && !containsString(f.Priorities, item.Priority) {
		return false
	}
	if f.DateFrom != nil && item.CapturedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && item.CapturedAt.After(*f.DateTo) {
		return false
	}
	return true
}

func anyOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
