package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/feedpost/backend/internal/auth"
	"github.com/feedpost/backend/internal/feed"
)

// Handler executes GraphQL requests against the schema. Errors are
// normalized to the same {message, status, data} shape the REST
// binding uses.
type Handler struct {
	schema graphql.Schema
}

func NewHandler(authSvc *auth.Service, feedSvc *feed.Service) (*Handler, error) {
	schema, err := NewSchema(authSvc, feedSvc)
	if err != nil {
		return nil, err
	}
	return &Handler{schema: schema}, nil
}

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

type responseError struct {
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"message":"Invalid request body.","status":400}`, http.StatusBadRequest)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        r.Context(),
	})

	resp := map[string]interface{}{"data": result.Data}
	if len(result.Errors) > 0 {
		errs := make([]responseError, 0, len(result.Errors))
		for _, fe := range result.Errors {
			re := responseError{Message: fe.Message, Status: http.StatusInternalServerError}
			if status, ok := fe.Extensions["status"].(int); ok {
				re.Status = status
			}
			if data, ok := fe.Extensions["data"]; ok {
				re.Data = data
			}
			errs = append(errs, re)
		}
		resp["errors"] = errs
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
