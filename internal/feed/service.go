// Package feed implements the post workflow: validation,
// authorization, persistence, image lifecycle, and change
// notification for post CRUD.
package feed

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/feedpost/backend/internal/apperr"
	"github.com/feedpost/backend/internal/events"
	"github.com/feedpost/backend/internal/middleware"
	"github.com/feedpost/backend/internal/models"
	"github.com/feedpost/backend/internal/store"
)

// PerPage is the fixed feed page size.
const PerPage = 2

// PostStore is the post persistence surface the workflow needs.
type PostStore interface {
	Insert(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error)
	FindPage(ctx context.Context, page, perPage int) (*models.PostPage, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
}

// UserStore is the user persistence surface the workflow needs.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	AddPost(ctx context.Context, userID string, postID primitive.ObjectID) error
	RemovePost(ctx context.Context, userID string, postID primitive.ObjectID) error
}

// FileStore removes image blobs by object key.
type FileStore interface {
	Remove(ctx context.Context, key string) error
}

// Publisher broadcasts post-change events to connected clients.
type Publisher interface {
	Publish(ctx context.Context, ev events.PostEvent) error
}

// Service orchestrates post CRUD. All collaborators are injected; the
// publisher must be non-nil so a publish can never precede bus
// initialization.
type Service struct {
	posts    PostStore
	users    UserStore
	files    FileStore
	bus      Publisher
	validate *validator.Validate
}

func NewService(posts PostStore, users UserStore, files FileStore, bus Publisher) *Service {
	if bus == nil {
		panic("feed: nil publisher")
	}
	return &Service{
		posts:    posts,
		users:    users,
		files:    files,
		bus:      bus,
		validate: validator.New(),
	}
}

// List returns one feed page, newest first, creators populated. Pages
// are 1-based; anything below 1 means the first page.
func (s *Service) List(ctx context.Context, page int) (*models.PostPage, error) {
	if page < 1 {
		page = 1
	}
	result, err := s.posts.FindPage(ctx, page, PerPage)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Fetching posts failed.", err)
	}
	return result, nil
}

// Get fetches a single post by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Could not find post.")
		}
		return nil, apperr.Wrap(apperr.Internal, "Fetching post failed.", err)
	}
	return post, nil
}

// PostsByIDs resolves a user's post references, newest first.
func (s *Service) PostsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	posts, err := s.posts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Fetching posts failed.", err)
	}
	return posts, nil
}

// Create validates the input, persists the post under the caller's
// identity, links it to the creator's posts list, and publishes a
// create event.
func (s *Service) Create(ctx context.Context, ident middleware.Identity, input models.PostInput) (*models.Post, error) {
	if !ident.IsAuth {
		return nil, apperr.New(apperr.Unauthenticated, "Not authenticated!")
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	if fieldErrs := s.validateInput(input); len(fieldErrs) > 0 {
		return nil, apperr.Invalid("Validation failed, entered data is incorrect.", fieldErrs)
	}
	if input.ImageURL == "" {
		return nil, apperr.New(apperr.InvalidInput, "No image provided.")
	}

	user, err := s.users.GetUserByID(ctx, ident.UserID)
	if err != nil {
		return nil, apperr.New(apperr.Unauthenticated, "Invalid user.")
	}

	post := &models.Post{
		Title:     input.Title,
		Content:   input.Content,
		ImageURL:  input.ImageURL,
		CreatorID: user.ID,
	}
	if err := s.posts.Insert(ctx, post); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Creating post failed.", err)
	}

	// The post and the user's reference list are two documents; a
	// failure between the writes is surfaced, not hidden.
	if err := s.users.AddPost(ctx, ident.UserID, post.ID); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Linking post to user failed.", err)
	}

	post.Creator = &models.Creator{ID: user.ID, Name: user.Name}
	s.publish(ctx, events.PostEvent{Action: events.ActionCreate, Post: post})
	return post, nil
}

// Update re-validates the fields, enforces ownership, persists the new
// values, and deletes the old image blob only after the new reference
// is saved.
func (s *Service) Update(ctx context.Context, ident middleware.Identity, id string, input models.PostInput) (*models.Post, error) {
	if !ident.IsAuth {
		return nil, apperr.New(apperr.Unauthenticated, "Not authenticated!")
	}

	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.CreatorID.Hex() != ident.UserID {
		return nil, apperr.New(apperr.Forbidden, "Not authorized!")
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	if fieldErrs := s.validateInput(input); len(fieldErrs) > 0 {
		return nil, apperr.Invalid("Validation failed, entered data is incorrect.", fieldErrs)
	}
	if input.ImageURL == "" {
		return nil, apperr.New(apperr.InvalidInput, "No file picked.")
	}

	oldImage := post.ImageURL
	post.Title = input.Title
	post.Content = input.Content
	post.ImageURL = input.ImageURL

	if err := s.posts.Update(ctx, post); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Could not find post.")
		}
		return nil, apperr.Wrap(apperr.Internal, "Updating post failed.", err)
	}

	if oldImage != post.ImageURL {
		s.clearImage(ctx, oldImage)
	}

	s.publish(ctx, events.PostEvent{Action: events.ActionUpdate, Post: post})
	return post, nil
}

// Delete enforces ownership, removes the image blob and the record,
// detaches the reference from the creator's posts list, and publishes
// a delete event. Of two concurrent deletes exactly one succeeds; the
// other reports NotFound.
func (s *Service) Delete(ctx context.Context, ident middleware.Identity, id string) error {
	if !ident.IsAuth {
		return apperr.New(apperr.Unauthenticated, "Not authenticated!")
	}

	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.CreatorID.Hex() != ident.UserID {
		return apperr.New(apperr.Forbidden, "Not authorized!")
	}

	s.clearImage(ctx, post.ImageURL)

	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.NotFound, "Could not find post.")
		}
		return apperr.Wrap(apperr.Internal, "Deleting post failed.", err)
	}

	if err := s.users.RemovePost(ctx, ident.UserID, post.ID); err != nil {
		return apperr.Wrap(apperr.Internal, "Unlinking post from user failed.", err)
	}

	s.publish(ctx, events.PostEvent{Action: events.ActionDelete, PostID: id})
	return nil
}

// publish is fire-and-forget: a failed broadcast never fails the
// request.
func (s *Service) publish(ctx context.Context, ev events.PostEvent) {
	if err := s.bus.Publish(ctx, ev); err != nil {
		log.Printf("publish %s event: %v", ev.Action, err)
	}
}

// clearImage is fire-and-forget: blob deletion failures are logged,
// never retried, never surfaced.
func (s *Service) clearImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.files.Remove(ctx, key); err != nil {
		log.Printf("remove image %s: %v", key, err)
	}
}

func (s *Service) validateInput(input models.PostInput) []apperr.FieldError {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.FieldError{{Message: "Validation failed, entered data is incorrect."}}
	}

	var fieldErrs []apperr.FieldError
	for _, fe := range verrs {
		switch fe.Field() {
		case "Title":
			fieldErrs = append(fieldErrs, apperr.FieldError{Field: "title", Message: "Title is invalid."})
		case "Content":
			fieldErrs = append(fieldErrs, apperr.FieldError{Field: "content", Message: "Content is invalid."})
		}
	}
	return fieldErrs
}
