package httpcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/expr-lang/expr"

	"github.com/n9te9/go-graphql-federation-gateway/cache"
	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/httpcache"
)

func newRec(t *testing.T, query string, headers common.Header) *engine.RequestExecutionContext {
	t.Helper()
	rec := engine.New(&common.HttpRequest{Headers: headers})
	if err := rec.SetGraphQLRequest(common.GraphQLRequest{Query: query}); err != nil {
		t.Fatalf("SetGraphQLRequest() error = %v", err)
	}
	return rec
}

func TestMissThenHit(t *testing.T) {
	store := cache.NewMemoryStore(16, time.Minute)
	p := httpcache.New(store, time.Minute, nil)

	rec := newRec(t, "{ hello }", common.NewHeader())
	p.OnDownstreamGraphQLRequest(context.Background(), rec, nil)
	if rec.IsShortCircuited() {
		t.Fatal("first request should miss the cache")
	}

	resp := common.NewHttpResponse(200, []byte(`{"data":{"hello":"world"}}`))
	p.OnDownstreamHTTPResponse(context.Background(), rec, resp)

	rec2 := newRec(t, "{ hello }", common.NewHeader())
	p.OnDownstreamGraphQLRequest(context.Background(), rec2, nil)

	if !rec2.IsShortCircuited() {
		t.Fatal("second identical request should hit the cache")
	}
	if got := rec2.ShortCircuitResponse.Headers.Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", got)
	}
	if string(rec2.ShortCircuitResponse.Body) != `{"data":{"hello":"world"}}` {
		t.Errorf("cached body = %q", rec2.ShortCircuitResponse.Body)
	}
}

func TestErrorResponseIsNotCached(t *testing.T) {
	store := cache.NewMemoryStore(16, time.Minute)
	p := httpcache.New(store, time.Minute, nil)

	rec := newRec(t, "{ broken }", common.NewHeader())
	p.OnDownstreamGraphQLRequest(context.Background(), rec, nil)

	resp := common.NewHttpResponse(200, []byte(`{"errors":[{"message":"boom"}]}`))
	p.OnDownstreamHTTPResponse(context.Background(), rec, resp)

	rec2 := newRec(t, "{ broken }", common.NewHeader())
	p.OnDownstreamGraphQLRequest(context.Background(), rec2, nil)

	if rec2.IsShortCircuited() {
		t.Fatal("a response carrying GraphQL errors should not have been cached")
	}
}

func TestSessionKeyExprSeparatesCacheEntries(t *testing.T) {
	program, err := expr.Compile(`headers["X-User-Id"]`)
	if err != nil {
		t.Fatalf("expr.Compile() error = %v", err)
	}
	store := cache.NewMemoryStore(16, time.Minute)
	p := httpcache.New(store, time.Minute, program)

	headersA := common.NewHeader()
	headersA.Set("X-User-Id", "alice")
	recA := newRec(t, "{ me }", headersA)
	p.OnDownstreamGraphQLRequest(context.Background(), recA, nil)
	p.OnDownstreamHTTPResponse(context.Background(), recA, common.NewHttpResponse(200, []byte(`{"data":{"me":"alice"}}`)))

	headersB := common.NewHeader()
	headersB.Set("X-User-Id", "bob")
	recB := newRec(t, "{ me }", headersB)
	p.OnDownstreamGraphQLRequest(context.Background(), recB, nil)

	if recB.IsShortCircuited() {
		t.Fatal("a different session key should not observe another session's cache entry")
	}
}
