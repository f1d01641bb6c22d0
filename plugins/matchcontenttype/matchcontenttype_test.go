package matchcontenttype_test

import (
	"context"
	"testing"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/matchcontenttype"
)

func TestDefaultsToJSONWhenUnset(t *testing.T) {
	p := matchcontenttype.New()
	rec := engine.New(&common.HttpRequest{Headers: common.NewHeader()})
	resp := common.NewHttpResponse(200, nil)

	p.OnDownstreamHTTPResponse(context.Background(), rec, resp)

	if got := resp.Headers.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestHonorsGraphQLResponseAccept(t *testing.T) {
	p := matchcontenttype.New()
	headers := common.NewHeader()
	headers.Set("Accept", "application/graphql-response+json")
	rec := engine.New(&common.HttpRequest{Headers: headers})
	resp := common.NewHttpResponse(200, nil)

	p.OnDownstreamHTTPResponse(context.Background(), rec, resp)

	if got := resp.Headers.Get("Content-Type"); got != "application/graphql-response+json" {
		t.Errorf("Content-Type = %q, want application/graphql-response+json", got)
	}
}

func TestDoesNotOverrideExistingContentType(t *testing.T) {
	p := matchcontenttype.New()
	rec := engine.New(&common.HttpRequest{Headers: common.NewHeader()})
	resp := common.NewHttpResponse(200, nil)
	resp.Headers.Set("Content-Type", "text/html")

	p.OnDownstreamHTTPResponse(context.Background(), rec, resp)

	if got := resp.Headers.Get("Content-Type"); got != "text/html" {
		t.Errorf("Content-Type = %q, want text/html (unchanged)", got)
	}
}
