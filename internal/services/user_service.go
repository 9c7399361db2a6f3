package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"later/internal/models"
	"later/pkg/auth"
)

var (
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserService manages accounts and the per-user suggestion preferences.
type UserService struct {
	collection *mongo.Collection
}

// NewUserService creates a user service.
func NewUserService(collection *mongo.Collection) *UserService {
	return &UserService{collection: collection}
}

// Register creates a new account with default preferences.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("invalid email address")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: hash,
		Role:         "user",
		Preferences:  models.DefaultUserPreferences(),
		CreatedAt:    time.Now(),
	}

	if _, err := s.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and records the login time.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	_, _ = s.collection.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"lastLoginAt": now}},
	)
	user.LastLoginAt = now

	return &user, nil
}

// GetByID fetches a user by hex id.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	var user models.User
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// UpdatePreferences applies the non-nil toggle fields and returns the updated
// user.
func (s *UserService) UpdatePreferences(ctx context.Context, id string, req *models.UpdateUserPreferencesRequest) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	set := bson.M{}
	if req.SuggestionsEnabled != nil {
		set["preferences.suggestionsEnabled"] = *req.SuggestionsEnabled
	}
	if req.LocationSuggestionsEnabled != nil {
		set["preferences.locationSuggestionsEnabled"] = *req.LocationSuggestionsEnabled
	}
	if req.TimeSuggestionsEnabled != nil {
		set["preferences.timeSuggestionsEnabled"] = *req.TimeSuggestionsEnabled
	}
	if req.CalendarSuggestionsEnabled != nil {
		set["preferences.calendarSuggestionsEnabled"] = *req.CalendarSuggestionsEnabled
	}
	if req.Timezone != nil {
		set["preferences.timezone"] = *req.Timezone
	}
	if len(set) == 0 {
		return s.GetByID(ctx, id)
	}

	var user models.User
	err = s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return &user, nil
}
