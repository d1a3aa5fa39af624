package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feedpost/backend/internal/models"
)

var (
	// ErrNotFound reports a missing document or a malformed id.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate reports a unique-index violation.
	ErrDuplicate = errors.New("duplicate document")
)

// UserStore handles user CRUD in MongoDB.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection("users")}
}

// EnsureIndexes creates the unique email index. Duplicate signups are
// rejected by the store even when the pre-insert lookup races.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	return nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	res, err := s.col.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var user models.User
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// AddPost appends a post reference to the user's posts list.
func (s *UserStore) AddPost(ctx context.Context, userID string, postID primitive.ObjectID) error {
	return s.updatePosts(ctx, userID, bson.M{"$push": bson.M{"posts": postID}})
}

// RemovePost detaches a post reference from the user's posts list.
func (s *UserStore) RemovePost(ctx context.Context, userID string, postID primitive.ObjectID) error {
	return s.updatePosts(ctx, userID, bson.M{"$pull": bson.M{"posts": postID}})
}

func (s *UserStore) updatePosts(ctx context.Context, userID string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("update user posts: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus sets the user's status line.
func (s *UserStore) UpdateStatus(ctx context.Context, userID, status string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
