// Package graphql exposes the auth and post workflows as a GraphQL
// endpoint parallel to the REST binding.
package graphql

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/feedpost/backend/internal/apperr"
	"github.com/feedpost/backend/internal/auth"
	"github.com/feedpost/backend/internal/feed"
	"github.com/feedpost/backend/internal/middleware"
	"github.com/feedpost/backend/internal/models"
)

type resolvers struct {
	auth *auth.Service
	feed *feed.Service
}

// NewSchema builds the schema over the shared workflow services.
func NewSchema(authSvc *auth.Service, feedSvc *feed.Service) (graphql.Schema, error) {
	r := &resolvers{auth: authSvc, feed: feedSvc}

	userType := graphql.NewObject(graphql.ObjectConfig{Name: "User", Fields: graphql.Fields{}})
	postType := graphql.NewObject(graphql.ObjectConfig{Name: "Post", Fields: graphql.Fields{}})

	userType.AddFieldConfig("_id", &graphql.Field{
		Type: graphql.NewNonNull(graphql.ID),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			switch u := p.Source.(type) {
			case *models.User:
				return u.ID.Hex(), nil
			case *models.Creator:
				return u.ID.Hex(), nil
			}
			return nil, nil
		},
	})
	userType.AddFieldConfig("name", &graphql.Field{
		Type: graphql.NewNonNull(graphql.String),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			switch u := p.Source.(type) {
			case *models.User:
				return u.Name, nil
			case *models.Creator:
				return u.Name, nil
			}
			return nil, nil
		},
	})
	userType.AddFieldConfig("email", &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			switch u := p.Source.(type) {
			case *models.User:
				return u.Email, nil
			case *models.Creator:
				return u.Email, nil
			}
			return nil, nil
		},
	})
	userType.AddFieldConfig("status", &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			switch u := p.Source.(type) {
			case *models.User:
				return u.Status, nil
			case *models.Creator:
				return u.Status, nil
			}
			return nil, nil
		},
	})
	userType.AddFieldConfig("posts", &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(postType)),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			user, ok := p.Source.(*models.User)
			if !ok {
				return []models.Post{}, nil
			}
			return r.feed.PostsByIDs(p.Context, user.Posts)
		},
	})

	postType.AddFieldConfig("_id", &graphql.Field{
		Type: graphql.NewNonNull(graphql.ID),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if post, ok := postFromSource(p.Source); ok {
				return post.ID.Hex(), nil
			}
			return nil, nil
		},
	})
	postType.AddFieldConfig("title", &graphql.Field{
		Type: graphql.NewNonNull(graphql.String),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if post, ok := postFromSource(p.Source); ok {
				return post.Title, nil
			}
			return nil, nil
		},
	})
	postType.AddFieldConfig("content", &graphql.Field{
		Type: graphql.NewNonNull(graphql.String),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if post, ok := postFromSource(p.Source); ok {
				return post.Content, nil
			}
			return nil, nil
		},
	})
	postType.AddFieldConfig("imageUrl", &graphql.Field{
		Type: graphql.NewNonNull(graphql.String),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if post, ok := postFromSource(p.Source); ok {
				return post.ImageURL, nil
			}
			return nil, nil
		},
	})
	postType.AddFieldConfig("creator", &graphql.Field{
		Type: userType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if post, ok := postFromSource(p.Source); ok && post.Creator != nil {
				return post.Creator, nil
			}
			return nil, nil
		},
	})
	postType.AddFieldConfig("createdAt", &graphql.Field{
		Type: graphql.NewNonNull(graphql.String),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if post, ok := postFromSource(p.Source); ok {
				return post.CreatedAt.UTC().Format(time.RFC3339), nil
			}
			return nil, nil
		},
	})
	postType.AddFieldConfig("updatedAt", &graphql.Field{
		Type: graphql.NewNonNull(graphql.String),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if post, ok := postFromSource(p.Source); ok {
				return post.UpdatedAt.UTC().Format(time.RFC3339), nil
			}
			return nil, nil
		},
	})

	authDataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthData",
		Fields: graphql.Fields{
			"token":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"userId": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	postDataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PostData",
		Fields: graphql.Fields{
			"posts":      &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(postType))},
			"totalPosts": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	userInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UserInputData",
		Fields: graphql.InputObjectConfigFieldMap{
			"email":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"name":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"password": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	postInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PostInputData",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"content":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"imageUrl": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQuery",
		Fields: graphql.Fields{
			"login": &graphql.Field{
				Type: graphql.NewNonNull(authDataType),
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.login,
			},
			"posts": &graphql.Field{
				Type: graphql.NewNonNull(postDataType),
				Args: graphql.FieldConfigArgument{
					"page": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.posts,
			},
			"post": &graphql.Field{
				Type: graphql.NewNonNull(postType),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.post,
			},
			"user": &graphql.Field{
				Type:    graphql.NewNonNull(userType),
				Resolve: r.user,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootMutation",
		Fields: graphql.Fields{
			"createUser": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"userInput": &graphql.ArgumentConfig{Type: userInputType},
				},
				Resolve: r.createUser,
			},
			"createPost": &graphql.Field{
				Type: graphql.NewNonNull(postType),
				Args: graphql.FieldConfigArgument{
					"postInput": &graphql.ArgumentConfig{Type: postInputType},
				},
				Resolve: r.createPost,
			},
			"updatePost": &graphql.Field{
				Type: graphql.NewNonNull(postType),
				Args: graphql.FieldConfigArgument{
					"id":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"postInput": &graphql.ArgumentConfig{Type: postInputType},
				},
				Resolve: r.updatePost,
			},
			"deletePost": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.deletePost,
			},
			"updateStatus": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"status": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.updateStatus,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func postFromSource(src interface{}) (*models.Post, bool) {
	switch p := src.(type) {
	case *models.Post:
		return p, true
	case models.Post:
		return &p, true
	}
	return nil, false
}

// requireAuth enforces the GraphQL binding's blanket authentication
// rule; anonymous callers get a 401-shaped error.
func requireAuth(p graphql.ResolveParams) (middleware.Identity, error) {
	ident := middleware.IdentityFromContext(p.Context)
	if !ident.IsAuth {
		return ident, apperr.New(apperr.Unauthenticated, "Not authenticated!")
	}
	return ident, nil
}

func (r *resolvers) createUser(p graphql.ResolveParams) (interface{}, error) {
	input, _ := p.Args["userInput"].(map[string]interface{})
	req := models.SignupRequest{
		Email:    stringArg(input, "email"),
		Name:     stringArg(input, "name"),
		Password: stringArg(input, "password"),
	}
	return r.auth.Signup(p.Context, req)
}

func (r *resolvers) login(p graphql.ResolveParams) (interface{}, error) {
	token, userID, err := r.auth.Login(p.Context, p.Args["email"].(string), p.Args["password"].(string))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"token": token, "userId": userID}, nil
}

func (r *resolvers) posts(p graphql.ResolveParams) (interface{}, error) {
	if _, err := requireAuth(p); err != nil {
		return nil, err
	}
	page, _ := p.Args["page"].(int)
	result, err := r.feed.List(p.Context, page)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"posts": result.Posts, "totalPosts": result.TotalPosts}, nil
}

func (r *resolvers) post(p graphql.ResolveParams) (interface{}, error) {
	if _, err := requireAuth(p); err != nil {
		return nil, err
	}
	return r.feed.Get(p.Context, idArg(p))
}

func (r *resolvers) user(p graphql.ResolveParams) (interface{}, error) {
	ident, err := requireAuth(p)
	if err != nil {
		return nil, err
	}
	return r.auth.User(p.Context, ident.UserID)
}

func (r *resolvers) createPost(p graphql.ResolveParams) (interface{}, error) {
	ident := middleware.IdentityFromContext(p.Context)
	input, _ := p.Args["postInput"].(map[string]interface{})
	return r.feed.Create(p.Context, ident, models.PostInput{
		Title:    stringArg(input, "title"),
		Content:  stringArg(input, "content"),
		ImageURL: stringArg(input, "imageUrl"),
	})
}

func (r *resolvers) updatePost(p graphql.ResolveParams) (interface{}, error) {
	ident := middleware.IdentityFromContext(p.Context)
	input, _ := p.Args["postInput"].(map[string]interface{})
	return r.feed.Update(p.Context, ident, idArg(p), models.PostInput{
		Title:    stringArg(input, "title"),
		Content:  stringArg(input, "content"),
		ImageURL: stringArg(input, "imageUrl"),
	})
}

func (r *resolvers) deletePost(p graphql.ResolveParams) (interface{}, error) {
	ident := middleware.IdentityFromContext(p.Context)
	if err := r.feed.Delete(p.Context, ident, idArg(p)); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *resolvers) updateStatus(p graphql.ResolveParams) (interface{}, error) {
	ident, err := requireAuth(p)
	if err != nil {
		return nil, err
	}
	return r.auth.UpdateStatus(p.Context, ident.UserID, p.Args["status"].(string))
}

func stringArg(input map[string]interface{}, key string) string {
	s, _ := input[key].(string)
	return s
}

func idArg(p graphql.ResolveParams) string {
	id, _ := p.Args["id"].(string)
	return id
}
