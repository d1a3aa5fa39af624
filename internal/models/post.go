package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a single blog post stored in MongoDB. CreatorID is the stored
// reference; Creator is populated from the users collection at read time
// and never written back.
type Post struct {
	ID        primitive.ObjectID `json:"_id"       bson:"_id,omitempty"`
	Title     string             `json:"title"     bson:"title"`
	Content   string             `json:"content"   bson:"content"`
	ImageURL  string             `json:"imageUrl"  bson:"imageUrl"`
	CreatorID primitive.ObjectID `json:"-"         bson:"creator,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`

	Creator *Creator `json:"creator,omitempty" bson:"-"`
}

// PostInput carries the mutable post fields for create and update.
// Title and content are trimmed before validation.
type PostInput struct {
	Title    string `json:"title"    validate:"required,min=5"`
	Content  string `json:"content"  validate:"required,min=5"`
	ImageURL string `json:"imageUrl"`
}

// PostPage is one page of the feed plus the unpaginated total.
type PostPage struct {
	Posts      []Post `json:"posts"`
	TotalPosts int64  `json:"totalPosts"`
}
