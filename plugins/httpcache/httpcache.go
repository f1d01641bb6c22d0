// Package httpcache implements the HTTP-cache plugin from spec §4.3:
// fingerprint the operation (raw query text, variables, and an optional
// session key script), short-circuit on a cache hit in hook 2, and populate
// the cache with successful error-free responses in hook 6. The query text
// is hashed as sent, with no AST normalization, so two queries that differ
// only in whitespace or formatting get different fingerprints.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/expr-lang/expr/vm"

	"github.com/n9te9/go-graphql-federation-gateway/cache"
	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

// Plugin caches successful GraphQL responses by a fingerprint of the
// request, so identical operations avoid a second upstream round trip.
type Plugin struct {
	plugin.NoopPlugin
	Store          cache.Store
	TTL            time.Duration
	SessionKeyExpr *vm.Program // optional; env exposes "headers" map[string]string
}

var _ plugin.Plugin = (*Plugin)(nil)

func New(store cache.Store, ttl time.Duration, sessionKeyExpr *vm.Program) *Plugin {
	return &Plugin{Store: store, TTL: ttl, SessionKeyExpr: sessionKeyExpr}
}

func (p *Plugin) Name() string { return "http_cache" }

func (p *Plugin) OnDownstreamGraphQLRequest(ctx context.Context, rec *engine.RequestExecutionContext, _ plugin.Source) {
	if rec.IsShortCircuited() || rec.DownstreamGraphQLRequest == nil {
		return
	}

	fp := p.fingerprint(rec)
	rec.Context["http_cache.fingerprint"] = fp

	body, hit, err := p.Store.Get(ctx, fp)
	if err != nil || !hit {
		return
	}

	resp := common.NewHttpResponse(http.StatusOK, body)
	resp.Headers.Set("X-Cache", "HIT")
	rec.ShortCircuit(resp)
}

func (p *Plugin) OnDownstreamHTTPResponse(ctx context.Context, rec *engine.RequestExecutionContext, resp *common.HttpResponse) {
	if rec.IsShortCircuited() || resp == nil || resp.StatusCode != http.StatusOK {
		return
	}

	fpAny, ok := rec.Context["http_cache.fingerprint"]
	if !ok {
		return
	}
	fp, _ := fpAny.(string)
	if fp == "" {
		return
	}

	var gqlResp common.GraphQLResponse
	if err := json.Unmarshal(resp.Body, &gqlResp); err != nil || len(gqlResp.Errors) > 0 {
		return
	}

	_ = p.Store.Set(ctx, fp, resp.Body, p.TTL)
}

func (p *Plugin) fingerprint(rec *engine.RequestExecutionContext) string {
	h := sha256.New()
	h.Write([]byte(rec.DownstreamGraphQLRequest.Request.Query))
	h.Write(rec.DownstreamGraphQLRequest.Request.Variables)
	h.Write([]byte(p.sessionKey(rec)))
	return hex.EncodeToString(h.Sum(nil))
}

func (p *Plugin) sessionKey(rec *engine.RequestExecutionContext) string {
	if p.SessionKeyExpr == nil || rec.DownstreamHTTPRequest == nil {
		return ""
	}

	headers := make(map[string]string, len(rec.DownstreamHTTPRequest.Headers))
	for k, v := range rec.DownstreamHTTPRequest.Headers {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	out, err := vm.Run(p.SessionKeyExpr, map[string]any{"headers": headers})
	if err != nil {
		return ""
	}
	s, _ := out.(string)
	return s
}
