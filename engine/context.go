// Package engine defines the request execution context (REC) threaded
// through the plugin pipeline, and the short-circuit contract every hook
// observes.
package engine

import (
	"strings"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

// ErrNoGraphQLRequest is returned by ReplaceQuery when no GraphQL request has
// been installed on the REC yet.
var ErrNoGraphQLRequest = &ParseError{Errors: []string{"no downstream graphql request installed"}}

// ParseError wraps the parser's collected error strings.
type ParseError struct {
	Errors []string
}

func (e *ParseError) Error() string {
	return "graphql parse error: " + strings.Join(e.Errors, "; ")
}

// RequestExecutionContext is the REC from spec §3: per-request mutable
// state, exclusively owned by the task handling one inbound request. It is
// never shared across requests or accessed concurrently.
type RequestExecutionContext struct {
	DownstreamHTTPRequest    *common.HttpRequest
	DownstreamGraphQLRequest *common.ParsedGraphQLRequest

	// ShortCircuitResponse, once set, skips hooks 1-5 on every plugin
	// registered after the setter. Hook 6 always runs.
	ShortCircuitResponse *common.HttpResponse

	// ScriptingState is scratch storage for VRL-scripted plugins to carry
	// state across hooks within one request.
	ScriptingState any

	// Context is the user-addressable inter-plugin key/value bag.
	Context map[string]any

	// TenantID identifies the endpoint's configured tenant, embedded into
	// trace ids by the telemetry plugin.
	TenantID uint32
}

// New builds a REC for an inbound HTTP request.
func New(req *common.HttpRequest) *RequestExecutionContext {
	return &RequestExecutionContext{
		DownstreamHTTPRequest: req,
		Context:               make(map[string]any),
	}
}

// ShortCircuit installs response as the REC's short-circuit response. Any
// hook may call this; it is idempotent-by-convention (the manager stops
// dispatching to later plugins in stages 1-5 once it is non-nil).
func (rec *RequestExecutionContext) ShortCircuit(response *common.HttpResponse) {
	rec.ShortCircuitResponse = response
}

// IsShortCircuited reports whether a prior plugin already short-circuited
// this request.
func (rec *RequestExecutionContext) IsShortCircuited() bool {
	return rec.ShortCircuitResponse != nil
}

// SetGraphQLRequest installs req as the REC's downstream GraphQL request,
// parsing its query into an AST so the invariant in spec §3
// (ParsedGraphQLRequest.Document always matches Request.Query) holds from
// the moment of installation.
func (rec *RequestExecutionContext) SetGraphQLRequest(req common.GraphQLRequest) error {
	doc, err := parseDocument(req.Query)
	if err != nil {
		return err
	}
	rec.DownstreamGraphQLRequest = &common.ParsedGraphQLRequest{
		Request:  req,
		Document: doc,
	}
	return nil
}

// ReplaceQuery updates the installed GraphQL request's operation text and
// re-parses the AST, preserving the invariant that Document always
// corresponds to the current Query (used by trusted-documents substitution).
func (rec *RequestExecutionContext) ReplaceQuery(query string) error {
	if rec.DownstreamGraphQLRequest == nil {
		return ErrNoGraphQLRequest
	}
	doc, err := parseDocument(query)
	if err != nil {
		return err
	}
	rec.DownstreamGraphQLRequest.Request.Query = query
	rec.DownstreamGraphQLRequest.Document = doc
	return nil
}

func parseDocument(query string) (*ast.Document, error) {
	l := lexer.New(query)
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &ParseError{Errors: errs}
	}
	return doc, nil
}
