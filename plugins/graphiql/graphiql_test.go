package graphiql_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/graphiql"
)

func TestRendersPageForBrowserNavigation(t *testing.T) {
	p := graphiql.New("My Gateway")
	headers := common.NewHeader()
	headers.Set("Accept", "text/html")
	rec := engine.New(&common.HttpRequest{Method: http.MethodGet, Headers: headers})

	p.OnDownstreamHTTPRequest(context.Background(), rec)

	if !rec.IsShortCircuited() {
		t.Fatal("expected a browser GET to be short-circuited with the GraphiQL page")
	}
	if ct := rec.ShortCircuitResponse.Headers.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html prefix", ct)
	}
	if !strings.Contains(string(rec.ShortCircuitResponse.Body), "My Gateway") {
		t.Error("rendered page does not contain the configured title")
	}
}

func TestDefaultTitleWhenEmpty(t *testing.T) {
	p := graphiql.New("")
	headers := common.NewHeader()
	rec := engine.New(&common.HttpRequest{Method: http.MethodGet, Headers: headers})

	p.OnDownstreamHTTPRequest(context.Background(), rec)

	if !strings.Contains(string(rec.ShortCircuitResponse.Body), "GraphiQL") {
		t.Error("expected the default title to fall back to GraphiQL")
	}
}

func TestSkipsJSONAcceptingRequests(t *testing.T) {
	p := graphiql.New("")
	headers := common.NewHeader()
	headers.Set("Accept", "application/json")
	rec := engine.New(&common.HttpRequest{Method: http.MethodGet, Headers: headers})

	p.OnDownstreamHTTPRequest(context.Background(), rec)

	if rec.IsShortCircuited() {
		t.Error("a request accepting JSON should not receive the GraphiQL page")
	}
}

func TestSkipsNonGetMethods(t *testing.T) {
	p := graphiql.New("")
	rec := engine.New(&common.HttpRequest{Method: http.MethodPost, Headers: common.NewHeader()})

	p.OnDownstreamHTTPRequest(context.Background(), rec)

	if rec.IsShortCircuited() {
		t.Error("a POST request should never receive the GraphiQL page")
	}
}
