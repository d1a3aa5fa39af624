package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feedpost/backend/internal/models"
)

// PostStore handles post CRUD in MongoDB. It also reads the users
// collection to populate creator references, password excluded.
type PostStore struct {
	posts *mongo.Collection
	users *mongo.Collection
}

func NewPostStore(db *mongo.Database) *PostStore {
	return &PostStore{
		posts: db.Collection("posts"),
		users: db.Collection("users"),
	}
}

func (s *PostStore) Insert(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	res, err := s.posts.InsertOne(ctx, post)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	post.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID fetches one post and populates its creator.
func (s *PostStore) GetByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var post models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.populateCreators(ctx, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetByIDs fetches posts by id, newest first. Missing ids are skipped.
func (s *PostStore) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.posts.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FindPage returns one page of posts sorted by createdAt descending,
// creators populated, plus the unpaginated total.
func (s *PostStore) FindPage(ctx context.Context, page, perPage int) (*models.PostPage, error) {
	total, err := s.posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cur, err := s.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}

	refs := make([]*models.Post, len(posts))
	for i := range posts {
		refs[i] = &posts[i]
	}
	if err := s.populateCreators(ctx, refs); err != nil {
		return nil, err
	}

	return &models.PostPage{Posts: posts, TotalPosts: total}, nil
}

// Update persists the mutable post fields and bumps updatedAt.
func (s *PostStore) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()
	res, err := s.posts.UpdateByID(ctx, post.ID, bson.M{"$set": bson.M{
		"title":     post.Title,
		"content":   post.Content,
		"imageUrl":  post.ImageURL,
		"updatedAt": post.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a post. When the post was already gone it reports
// ErrNotFound, so exactly one of two concurrent deletes succeeds.
func (s *PostStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// populateCreators resolves creator references in one users query,
// excluding the password field.
func (s *PostStore) populateCreators(ctx context.Context, posts []*models.Post) error {
	idSet := map[primitive.ObjectID]struct{}{}
	for _, p := range posts {
		if !p.CreatorID.IsZero() {
			idSet[p.CreatorID] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	opts := options.Find().SetProjection(bson.M{"password": 0})
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return fmt.Errorf("populate creators: %w", err)
	}
	defer cur.Close(ctx)

	var creators []models.Creator
	if err := cur.All(ctx, &creators); err != nil {
		return err
	}

	byID := make(map[primitive.ObjectID]models.Creator, len(creators))
	for _, c := range creators {
		byID[c.ID] = c
	}
	for _, p := range posts {
		if c, ok := byID[p.CreatorID]; ok {
			creator := c
			p.Creator = &creator
		}
	}
	return nil
}
