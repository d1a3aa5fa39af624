package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/feedpost/backend/internal/apperr"
	"github.com/feedpost/backend/internal/auth"
	"github.com/feedpost/backend/internal/models"
	"github.com/feedpost/backend/internal/store"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: map[string]*models.User{},
		byID:    map[string]*models.User{},
	}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, ok := f.byEmail[user.Email]; ok {
		return store.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	f.byEmail[user.Email] = user
	f.byID[user.ID.Hex()] = user
	return nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) UpdateStatus(ctx context.Context, userID, status string) error {
	u, ok := f.byID[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Status = status
	return nil
}

func newService() (*auth.Service, *fakeUserStore) {
	users := newFakeUserStore()
	return auth.NewService(users, auth.NewTokenService("somesupersecretsecret")), users
}

func signup(t *testing.T, svc *auth.Service) *models.User {
	t.Helper()
	user, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "test@test.com",
		Password: "tester",
		Name:     "Tester",
	})
	require.NoError(t, err)
	return user
}

func TestSignupThenLogin(t *testing.T) {
	svc, _ := newService()
	user := signup(t, svc)
	require.Equal(t, models.DefaultStatus, user.Status)
	require.NotEqual(t, "tester", user.Password, "password must be stored hashed")

	token, userID, err := svc.Login(context.Background(), "test@test.com", "tester")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, user.ID.Hex(), userID)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newService()
	signup(t, svc)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "test@test.com",
		Password: "tester",
		Name:     "Other",
	})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apperr.AlreadyExists, ae.Code)
}

func TestSignup_Validation(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "not-an-email",
		Password: "abc",
		Name:     "",
	})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apperr.InvalidInput, ae.Code)
	require.Len(t, ae.Data, 3)
}

func TestLogin_UniformErrors(t *testing.T) {
	svc, _ := newService()
	signup(t, svc)

	_, _, errUnknown := svc.Login(context.Background(), "nobody@test.com", "tester")
	_, _, errWrongPw := svc.Login(context.Background(), "test@test.com", "wrong")

	var ae *apperr.Error
	require.ErrorAs(t, errUnknown, &ae)
	require.Equal(t, apperr.Unauthenticated, ae.Code)
	unknownMsg := ae.Message

	require.ErrorAs(t, errWrongPw, &ae)
	require.Equal(t, apperr.Unauthenticated, ae.Code)
	require.Equal(t, unknownMsg, ae.Message, "login failures must not reveal which part was wrong")
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := newService()
	user := signup(t, svc)

	updated, err := svc.UpdateStatus(context.Background(), user.ID.Hex(), "Writing again")
	require.NoError(t, err)
	require.Equal(t, "Writing again", updated.Status)

	_, err = svc.UpdateStatus(context.Background(), primitive.NewObjectID().Hex(), "x")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apperr.NotFound, ae.Code)
}
