package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedpost/backend/internal/apperr"
	"github.com/feedpost/backend/internal/models"
	"github.com/feedpost/backend/internal/store"
)

const bcryptCost = 12

// UserStore is the persistence surface the credential service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateStatus(ctx context.Context, userID, status string) error
}

// Service implements signup and login over a user store.
type Service struct {
	users    UserStore
	tokens   *TokenService
	validate *validator.Validate
}

func NewService(users UserStore, tokens *TokenService) *Service {
	return &Service{users: users, tokens: tokens, validate: validator.New()}
}

// Signup registers a new user with a hashed password and the default
// status. A duplicate email fails with AlreadyExists whether it is
// caught by the lookup or by the unique index.
func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	req.Name = strings.TrimSpace(req.Name)

	if fieldErrs := s.validateSignup(req); len(fieldErrs) > 0 {
		return nil, apperr.Invalid("Invalid input.", fieldErrs)
	}

	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, apperr.New(apperr.AlreadyExists, "User exists already!")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "An error occurred.", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "An error occurred.", err)
	}

	user := &models.User{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
		Status:   models.DefaultStatus,
		Posts:    []primitive.ObjectID{},
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.New(apperr.AlreadyExists, "User exists already!")
		}
		return nil, apperr.Wrap(apperr.Internal, "An error occurred.", err)
	}
	return user, nil
}

// Login verifies credentials and issues a token. Unknown email and
// wrong password report the same generic message.
func (s *Service) Login(ctx context.Context, email, password string) (token string, userID string, err error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", "", apperr.New(apperr.Unauthenticated, "Invalid email or password.")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", apperr.New(apperr.Unauthenticated, "Invalid email or password.")
	}

	uid := user.ID.Hex()
	token, err = s.tokens.Sign(uid, user.Email)
	if err != nil {
		return "", "", apperr.Wrap(apperr.Internal, "An error occurred.", err)
	}
	return token, uid, nil
}

// User loads the authenticated user's profile.
func (s *Service) User(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, "No user found!")
	}
	return user, nil
}

// UpdateStatus replaces the user's status line and returns the
// refreshed profile.
func (s *Service) UpdateStatus(ctx context.Context, userID, status string) (*models.User, error) {
	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "No user found!")
		}
		return nil, apperr.Wrap(apperr.Internal, "An error occurred.", err)
	}
	return s.User(ctx, userID)
}

func (s *Service) validateSignup(req models.SignupRequest) []apperr.FieldError {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.FieldError{{Message: "Invalid input."}}
	}

	var fieldErrs []apperr.FieldError
	for _, fe := range verrs {
		switch fe.Field() {
		case "Email":
			fieldErrs = append(fieldErrs, apperr.FieldError{Field: "email", Message: "E-Mail is invalid."})
		case "Password":
			fieldErrs = append(fieldErrs, apperr.FieldError{Field: "password", Message: "Password too short!"})
		case "Name":
			fieldErrs = append(fieldErrs, apperr.FieldError{Field: "name", Message: "Name is required."})
		}
	}
	return fieldErrs
}
