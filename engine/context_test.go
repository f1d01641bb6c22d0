package engine_test

import (
	"testing"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
)

func TestNewAndShortCircuit(t *testing.T) {
	req := &common.HttpRequest{Method: "POST", URI: "/graphql"}
	rec := engine.New(req)

	if rec.DownstreamHTTPRequest != req {
		t.Error("New() did not install the given HttpRequest")
	}
	if rec.IsShortCircuited() {
		t.Error("IsShortCircuited() = true for a fresh REC")
	}

	resp := common.NewHttpResponse(400, nil)
	rec.ShortCircuit(resp)
	if !rec.IsShortCircuited() {
		t.Error("IsShortCircuited() = false after ShortCircuit")
	}
	if rec.ShortCircuitResponse != resp {
		t.Error("ShortCircuitResponse does not match the response passed to ShortCircuit")
	}
}

func TestSetGraphQLRequest(t *testing.T) {
	rec := engine.New(&common.HttpRequest{})

	err := rec.SetGraphQLRequest(common.GraphQLRequest{Query: "{ hello }"})
	if err != nil {
		t.Fatalf("SetGraphQLRequest() error = %v", err)
	}
	if rec.DownstreamGraphQLRequest == nil {
		t.Fatal("DownstreamGraphQLRequest is nil after SetGraphQLRequest")
	}
	if rec.DownstreamGraphQLRequest.Document == nil {
		t.Error("Document is nil after SetGraphQLRequest")
	}
	if rec.DownstreamGraphQLRequest.Request.Query != "{ hello }" {
		t.Errorf("Request.Query = %q, want '{ hello }'", rec.DownstreamGraphQLRequest.Request.Query)
	}
}

func TestSetGraphQLRequestInvalidQuery(t *testing.T) {
	rec := engine.New(&common.HttpRequest{})
	if err := rec.SetGraphQLRequest(common.GraphQLRequest{Query: "{ not closed"}); err == nil {
		t.Error("SetGraphQLRequest() error = nil, want parse error for malformed query")
	}
}

func TestReplaceQueryWithoutInstalledRequest(t *testing.T) {
	rec := engine.New(&common.HttpRequest{})
	if err := rec.ReplaceQuery("{ hello }"); err != engine.ErrNoGraphQLRequest {
		t.Errorf("ReplaceQuery() error = %v, want ErrNoGraphQLRequest", err)
	}
}

func TestReplaceQuery(t *testing.T) {
	rec := engine.New(&common.HttpRequest{})
	if err := rec.SetGraphQLRequest(common.GraphQLRequest{Query: "{ hello }"}); err != nil {
		t.Fatalf("SetGraphQLRequest() error = %v", err)
	}

	if err := rec.ReplaceQuery("{ world }"); err != nil {
		t.Fatalf("ReplaceQuery() error = %v", err)
	}
	if rec.DownstreamGraphQLRequest.Request.Query != "{ world }" {
		t.Errorf("Request.Query = %q, want '{ world }'", rec.DownstreamGraphQLRequest.Request.Query)
	}
	if rec.DownstreamGraphQLRequest.Document == nil {
		t.Error("Document is nil after ReplaceQuery")
	}
}
