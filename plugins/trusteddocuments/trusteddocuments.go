// Package trusteddocuments implements the trusted/persisted documents
// plugin from spec §4.3. It exposes one or more extraction protocols; the
// Apollo persisted-query manifest protocol is grounded on
// original_source/plugins/trusted_documents/src/protocols/apollo_manifest.rs,
// and DocumentIDProtocol is grounded on
// original_source/plugins/trusted_documents/src/protocols/document_id.rs.
package trusteddocuments

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/n9te9/go-graphql-federation-gateway/cache"
	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

// Extracted is what a Protocol pulls out of an inbound request.
type Extracted struct {
	Hash          string
	Variables     json.RawMessage
	OperationName string
}

// Protocol attempts to extract a persisted-document reference from req. ok
// is false when the protocol does not recognize the request shape at all
// (as opposed to recognizing it and failing).
type Protocol interface {
	TryExtract(req *common.HttpRequest) (Extracted, bool)
}

// ApolloManifestProtocol recognizes Apollo Client's persisted-query POST
// body: {"variables":...,"operationName":...,"extensions":{"persistedQuery":{"sha256Hash":...}}}.
type ApolloManifestProtocol struct{}

type apolloBody struct {
	Variables     json.RawMessage `json:"variables"`
	OperationName string          `json:"operationName"`
	Extensions    struct {
		PersistedQuery struct {
			Hash string `json:"sha256Hash"`
		} `json:"persistedQuery"`
	} `json:"extensions"`
}

func (ApolloManifestProtocol) TryExtract(req *common.HttpRequest) (Extracted, bool) {
	if req == nil || req.Method != http.MethodPost {
		return Extracted{}, false
	}

	var body apolloBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return Extracted{}, false
	}
	if body.Extensions.PersistedQuery.Hash == "" {
		return Extracted{}, false
	}

	return Extracted{
		Hash:          body.Extensions.PersistedQuery.Hash,
		Variables:     body.Variables,
		OperationName: body.OperationName,
	}, true
}

// DocumentIDProtocol recognizes a plain JSON POST body carrying the
// document id directly under FieldName (default "documentId"), alongside
// ordinary "variables" and "operationName" fields - the shape spec §8.4's
// worked example sends: {"documentId":"abc","variables":{"id":"1"}}.
type DocumentIDProtocol struct {
	// FieldName is the JSON key the document id is read from. Empty means
	// "documentId".
	FieldName string
}

type documentIDBody struct {
	Variables     json.RawMessage `json:"variables"`
	OperationName string          `json:"operationName"`
}

func (p DocumentIDProtocol) TryExtract(req *common.HttpRequest) (Extracted, bool) {
	if req == nil || req.Method != http.MethodPost {
		return Extracted{}, false
	}

	fieldName := p.FieldName
	if fieldName == "" {
		fieldName = "documentId"
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(req.Body, &root); err != nil {
		return Extracted{}, false
	}

	raw, ok := root[fieldName]
	if !ok {
		return Extracted{}, false
	}

	var hash string
	if err := json.Unmarshal(raw, &hash); err != nil || hash == "" {
		return Extracted{}, false
	}

	var body documentIDBody
	_ = json.Unmarshal(req.Body, &body)

	return Extracted{
		Hash:          hash,
		Variables:     body.Variables,
		OperationName: body.OperationName,
	}, true
}

// Plugin resolves a persisted-document hash to its stored operation text
// via Store, trying each Protocol in order.
type Plugin struct {
	plugin.NoopPlugin
	Protocols []Protocol
	Store     cache.Store
	Require   bool // if true, short-circuit when no protocol matches
}

var _ plugin.Plugin = (*Plugin)(nil)

func New(store cache.Store, require bool, protocols ...Protocol) *Plugin {
	return &Plugin{Protocols: protocols, Store: store, Require: require}
}

func (p *Plugin) Name() string { return "trusted_documents" }

func (p *Plugin) OnDownstreamHTTPRequest(ctx context.Context, rec *engine.RequestExecutionContext) {
	if rec.IsShortCircuited() || rec.DownstreamHTTPRequest == nil {
		return
	}

	var matched bool
	for _, proto := range p.Protocols {
		extracted, ok := proto.TryExtract(rec.DownstreamHTTPRequest)
		if !ok {
			continue
		}
		matched = true

		doc, hit, err := p.Store.Get(ctx, extracted.Hash)
		if err != nil || !hit {
			p.shortCircuit(rec, "unknown persisted document hash")
			return
		}

		if err := rec.SetGraphQLRequest(common.GraphQLRequest{
			Query:         string(doc),
			OperationName: extracted.OperationName,
			Variables:     extracted.Variables,
		}); err != nil {
			p.shortCircuit(rec, "stored persisted document failed to parse")
			return
		}
		return
	}

	if !matched && p.Require {
		p.shortCircuit(rec, "trusted document required but no protocol matched the request")
	}
}

func (p *Plugin) shortCircuit(rec *engine.RequestExecutionContext, message string) {
	body, _ := json.Marshal(common.NewErrorResponse(message, map[string]any{"code": "PERSISTED_DOCUMENT_NOT_FOUND"}))
	resp := common.NewHttpResponse(http.StatusBadRequest, body)
	rec.ShortCircuit(resp)
}
