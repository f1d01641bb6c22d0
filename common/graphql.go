package common

import (
	"encoding/json"

	"github.com/n9te9/graphql-parser/ast"
)

// GraphQLRequest is the decoded JSON body of a GraphQL-over-HTTP request,
// per spec §6.
type GraphQLRequest struct {
	Query         string          `json:"query"`
	OperationName string          `json:"operationName,omitempty"`
	Variables     json.RawMessage `json:"variables,omitempty"`
	Extensions    json.RawMessage `json:"extensions,omitempty"`
}

// VariablesMap decodes Variables into a map, treating an empty/absent value
// as an empty map rather than an error.
func (r *GraphQLRequest) VariablesMap() (map[string]any, error) {
	if len(r.Variables) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(r.Variables, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ParsedGraphQLRequest pairs a GraphQLRequest with its parsed AST. The two
// must stay in lockstep: whenever Request.Query is replaced, Document must be
// re-parsed (engine's ReplaceQuery does both) before any further use.
type ParsedGraphQLRequest struct {
	Request  GraphQLRequest
	Document *ast.Document
}

// GraphQLErr is one entry of a GraphQLResponse's errors array.
type GraphQLErr struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLResponse is the JSON body returned to the client, per spec §3/§6.
type GraphQLResponse struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Errors     []GraphQLErr    `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// NewErrorResponse builds a single-error GraphQLResponse, the shape every
// error kind in the pipeline's error model (§7) converges on.
func NewErrorResponse(message string, extensions map[string]any) *GraphQLResponse {
	return &GraphQLResponse{
		Errors: []GraphQLErr{{Message: message, Extensions: extensions}},
	}
}
