// Package httpget implements the HTTP-GET plugin from spec §4.3: extracting
// a GraphQL request from query-string parameters, and optionally rejecting
// mutations issued over GET.
package httpget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
	"github.com/n9te9/graphql-parser/ast"
)

// Plugin extracts query/variables/operationName from a GET request's query
// string. If ForbidMutations is set, a mutation selected this way is
// rejected in hook 2 with a 405.
type Plugin struct {
	plugin.NoopPlugin
	ForbidMutations bool
}

var _ plugin.Plugin = (*Plugin)(nil)

func New(forbidMutations bool) *Plugin {
	return &Plugin{ForbidMutations: forbidMutations}
}

func (p *Plugin) Name() string { return "http_get" }

func (p *Plugin) OnDownstreamHTTPRequest(_ context.Context, rec *engine.RequestExecutionContext) {
	req := rec.DownstreamHTTPRequest
	if req == nil || req.Method != http.MethodGet {
		return
	}
	if rec.IsShortCircuited() {
		return
	}

	values, err := url.ParseQuery(req.QueryString)
	if err != nil {
		return
	}

	query := values.Get("query")
	if query == "" {
		// Nothing to extract; leave the REC untouched for another plugin.
		return
	}

	gqlReq := common.GraphQLRequest{
		Query:         query,
		OperationName: values.Get("operationName"),
	}
	if raw := values.Get("variables"); raw != "" {
		var vars map[string]any
		if err := json.Unmarshal([]byte(raw), &vars); err == nil {
			gqlReq.Variables, _ = json.Marshal(vars)
		}
	}

	if err := rec.SetGraphQLRequest(gqlReq); err != nil {
		resp := common.NewHttpResponse(http.StatusBadRequest, mustMarshalError("invalid GraphQL query: "+err.Error()))
		rec.ShortCircuit(resp)
	}
}

func (p *Plugin) OnDownstreamGraphQLRequest(_ context.Context, rec *engine.RequestExecutionContext, _ plugin.Source) {
	if !p.ForbidMutations || rec.IsShortCircuited() {
		return
	}
	if rec.DownstreamHTTPRequest == nil || rec.DownstreamHTTPRequest.Method != http.MethodGet {
		return
	}
	if rec.DownstreamGraphQLRequest == nil {
		return
	}

	doc := rec.DownstreamGraphQLRequest.Document
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if op.Operation == ast.Mutation {
			resp := common.NewHttpResponse(http.StatusMethodNotAllowed, mustMarshalError("mutations are not allowed over GET"))
			rec.ShortCircuit(resp)
			return
		}
	}
}

func mustMarshalError(message string) []byte {
	body, _ := json.Marshal(common.NewErrorResponse(message, nil))
	return body
}
