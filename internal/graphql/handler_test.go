package graphql_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/feedpost/backend/internal/auth"
	"github.com/feedpost/backend/internal/events"
	"github.com/feedpost/backend/internal/feed"
	"github.com/feedpost/backend/internal/graphql"
	"github.com/feedpost/backend/internal/middleware"
	"github.com/feedpost/backend/internal/models"
	"github.com/feedpost/backend/internal/store"
)

type memStore struct {
	usersByID    map[string]*models.User
	usersByEmail map[string]*models.User
	posts        map[string]models.Post
}

func newMemStore() *memStore {
	return &memStore{
		usersByID:    map[string]*models.User{},
		usersByEmail: map[string]*models.User{},
		posts:        map[string]models.Post{},
	}
}

func (m *memStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return store.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID.Hex()] = user
	return nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.usersByID[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UpdateStatus(ctx context.Context, userID, status string) error {
	u, ok := m.usersByID[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *memStore) AddPost(ctx context.Context, userID string, postID primitive.ObjectID) error {
	u, ok := m.usersByID[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Posts = append(u.Posts, postID)
	return nil
}

func (m *memStore) RemovePost(ctx context.Context, userID string, postID primitive.ObjectID) error {
	u, ok := m.usersByID[userID]
	if !ok {
		return store.ErrNotFound
	}
	kept := u.Posts[:0]
	for _, id := range u.Posts {
		if id != postID {
			kept = append(kept, id)
		}
	}
	u.Posts = kept
	return nil
}

func (m *memStore) Insert(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	m.posts[post.ID.Hex()] = *post
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, ok := m.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if u, ok := m.usersByID[post.CreatorID.Hex()]; ok {
		post.Creator = &models.Creator{ID: u.ID, Name: u.Name}
	}
	return &post, nil
}

func (m *memStore) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	out := []models.Post{}
	for _, id := range ids {
		if post, ok := m.posts[id.Hex()]; ok {
			out = append(out, post)
		}
	}
	return out, nil
}

func (m *memStore) FindPage(ctx context.Context, page, perPage int) (*models.PostPage, error) {
	all := []models.Post{}
	for _, p := range m.posts {
		all = append(all, p)
	}
	return &models.PostPage{Posts: all, TotalPosts: int64(len(all))}, nil
}

func (m *memStore) Update(ctx context.Context, post *models.Post) error {
	m.posts[post.ID.Hex()] = *post
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memStore) Remove(ctx context.Context, key string) error { return nil }

func (m *memStore) Publish(ctx context.Context, ev events.PostEvent) error { return nil }

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string          `json:"message"`
		Status  int             `json:"status"`
		Data    json.RawMessage `json:"data"`
	} `json:"errors"`
}

func newGQLHandler(t *testing.T) (*graphql.Handler, *memStore) {
	t.Helper()
	m := newMemStore()
	authSvc := auth.NewService(m, auth.NewTokenService("somesupersecretsecret"))
	feedSvc := feed.NewService(m, m, m, m)
	h, err := graphql.NewHandler(authSvc, feedSvc)
	require.NoError(t, err)
	return h, m
}

func doQuery(t *testing.T, h *graphql.Handler, ident *middleware.Identity, query string) gqlResponse {
	t.Helper()

	body, err := json.Marshal(map[string]string{"query": query})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	if ident != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), *ident))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateUserAndLogin(t *testing.T) {
	h, _ := newGQLHandler(t)

	resp := doQuery(t, h, nil, `mutation {
		createUser(userInput: {email: "test@test.com", name: "Tester", password: "tester"}) { _id email status }
	}`)
	require.Empty(t, resp.Errors)

	var created struct {
		ID     string `json:"_id"`
		Email  string `json:"email"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data["createUser"], &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, models.DefaultStatus, created.Status)

	resp = doQuery(t, h, nil, `{ login(email: "test@test.com", password: "tester") { token userId } }`)
	require.Empty(t, resp.Errors)

	var login struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(resp.Data["login"], &login))
	require.NotEmpty(t, login.Token)
	require.Equal(t, created.ID, login.UserID)
}

func TestPosts_RequireAuth(t *testing.T) {
	h, _ := newGQLHandler(t)

	resp := doQuery(t, h, nil, `{ posts { totalPosts } }`)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "Not authenticated!", resp.Errors[0].Message)
	require.Equal(t, http.StatusUnauthorized, resp.Errors[0].Status)
}

func TestCreatePost_ValidationErrorsCarryData(t *testing.T) {
	h, m := newGQLHandler(t)

	user := &models.User{ID: primitive.NewObjectID(), Email: "test@test.com", Name: "Tester"}
	m.usersByID[user.ID.Hex()] = user
	ident := middleware.Identity{IsAuth: true, UserID: user.ID.Hex()}

	resp := doQuery(t, h, &ident, `mutation {
		createPost(postInput: {title: "abcd", content: "ok?", imageUrl: "images/x.png"}) { _id }
	}`)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Errors[0].Status)
	require.NotEmpty(t, resp.Errors[0].Data)
}

func TestCreatePostAndReadBack(t *testing.T) {
	h, m := newGQLHandler(t)

	user := &models.User{ID: primitive.NewObjectID(), Email: "test@test.com", Name: "Tester"}
	m.usersByID[user.ID.Hex()] = user
	ident := middleware.Identity{IsAuth: true, UserID: user.ID.Hex()}

	resp := doQuery(t, h, &ident, `mutation {
		createPost(postInput: {title: "Hello World", content: "This is a test post.", imageUrl: "images/test.png"}) {
			_id title creator { name }
		}
	}`)
	require.Empty(t, resp.Errors)

	var created struct {
		ID      string `json:"_id"`
		Title   string `json:"title"`
		Creator struct {
			Name string `json:"name"`
		} `json:"creator"`
	}
	require.NoError(t, json.Unmarshal(resp.Data["createPost"], &created))
	require.Equal(t, "Hello World", created.Title)
	require.Equal(t, "Tester", created.Creator.Name)

	resp = doQuery(t, h, &ident, `{ post(id: "`+created.ID+`") { title imageUrl } }`)
	require.Empty(t, resp.Errors)

	var got struct {
		Title    string `json:"title"`
		ImageURL string `json:"imageUrl"`
	}
	require.NoError(t, json.Unmarshal(resp.Data["post"], &got))
	require.Equal(t, "Hello World", got.Title)
	require.Equal(t, "images/test.png", got.ImageURL)
}

func TestDeletePost_ForbiddenForStranger(t *testing.T) {
	h, m := newGQLHandler(t)

	owner := &models.User{ID: primitive.NewObjectID(), Email: "owner@test.com", Name: "Owner"}
	m.usersByID[owner.ID.Hex()] = owner
	ownerIdent := middleware.Identity{IsAuth: true, UserID: owner.ID.Hex()}

	resp := doQuery(t, h, &ownerIdent, `mutation {
		createPost(postInput: {title: "Hello World", content: "This is a test post.", imageUrl: "images/test.png"}) { _id }
	}`)
	require.Empty(t, resp.Errors)
	var created struct {
		ID string `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data["createPost"], &created))

	stranger := &models.User{ID: primitive.NewObjectID(), Email: "other@test.com", Name: "Other"}
	m.usersByID[stranger.ID.Hex()] = stranger
	strangerIdent := middleware.Identity{IsAuth: true, UserID: stranger.ID.Hex()}

	resp = doQuery(t, h, &strangerIdent, `mutation { deletePost(id: "`+created.ID+`") }`)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, http.StatusForbidden, resp.Errors[0].Status)

	resp = doQuery(t, h, &ownerIdent, `mutation { deletePost(id: "`+created.ID+`") }`)
	require.Empty(t, resp.Errors)
}

func TestUpdateStatus(t *testing.T) {
	h, m := newGQLHandler(t)

	user := &models.User{ID: primitive.NewObjectID(), Email: "test@test.com", Name: "Tester", Status: models.DefaultStatus}
	m.usersByID[user.ID.Hex()] = user
	ident := middleware.Identity{IsAuth: true, UserID: user.ID.Hex()}

	resp := doQuery(t, h, &ident, `mutation { updateStatus(status: "Writing again") { status } }`)
	require.Empty(t, resp.Errors)

	var updated struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data["updateStatus"], &updated))
	require.Equal(t, "Writing again", updated.Status)
}
