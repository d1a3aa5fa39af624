package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultStatus is assigned to freshly signed-up users.
const DefaultStatus = "I am new!"

// User is an identity record stored in MongoDB. Posts holds weak
// references to the posts this user authored; the post documents
// themselves live in the posts collection.
type User struct {
	ID       primitive.ObjectID   `json:"_id"    bson:"_id,omitempty"`
	Email    string               `json:"email"  bson:"email"`
	Password string               `json:"-"      bson:"password"` // never serialize
	Name     string               `json:"name"   bson:"name"`
	Status   string               `json:"status" bson:"status"`
	Posts    []primitive.ObjectID `json:"posts"  bson:"posts"`
}

// Creator is the projection of a user attached to posts at read time.
// The password field is excluded by construction.
type Creator struct {
	ID     primitive.ObjectID `json:"_id"              bson:"_id"`
	Name   string             `json:"name"             bson:"name"`
	Email  string             `json:"email,omitempty"  bson:"email,omitempty"`
	Status string             `json:"status,omitempty" bson:"status,omitempty"`
}

// SignupRequest is the body for PUT /auth/signup and the createUser input.
type SignupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
	Name     string `json:"name"     validate:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
