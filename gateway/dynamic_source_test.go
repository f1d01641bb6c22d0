package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/gateway"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

const productSDL = `
type Product @key(fields: "id") {
  id: ID!
  name: String!
}

type Query {
  product(id: ID!): Product
}
`

const reviewSDL = `
type Product @key(fields: "id") {
  id: ID! @external
}

type Review {
  id: ID!
  body: String!
}

type Query {
  review(id: ID!): Review
}
`

func newGraphQLRec(t *testing.T, query string) *engine.RequestExecutionContext {
	t.Helper()
	rec := engine.New(&common.HttpRequest{})
	if err := rec.SetGraphQLRequest(common.GraphQLRequest{Query: query}); err != nil {
		t.Fatalf("SetGraphQLRequest() error = %v", err)
	}
	return rec
}

func TestDynamicFederationSourceServesInitialSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"product":{"id":"1","name":"Widget"}}}`))
	}))
	defer srv.Close()

	dyn, err := gateway.NewDynamicFederationSource("supergraph",
		map[string]string{"product": productSDL},
		map[string]string{"product": srv.URL},
		srv.Client(),
	)
	if err != nil {
		t.Fatalf("NewDynamicFederationSource() error = %v", err)
	}

	rec := newGraphQLRec(t, `{ product(id: "1") { id name } }`)
	resp, err := dyn.Execute(context.Background(), rec, plugin.NewManager())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(resp.Data) == 0 {
		t.Fatal("expected non-empty response data")
	}
}

func TestDynamicFederationSourceUpdateAddsSubgraph(t *testing.T) {
	productSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"product":{"id":"1","name":"Widget"}}}`))
	}))
	defer productSrv.Close()

	reviewSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"review":{"id":"r1","body":"great"}}}`))
	}))
	defer reviewSrv.Close()

	dyn, err := gateway.NewDynamicFederationSource("supergraph",
		map[string]string{"product": productSDL},
		map[string]string{"product": productSrv.URL},
		http.DefaultClient,
	)
	if err != nil {
		t.Fatalf("NewDynamicFederationSource() error = %v", err)
	}

	if err := dyn.Update("review", reviewSDL, reviewSrv.URL); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	rec := newGraphQLRec(t, `{ review(id: "r1") { id body } }`)
	resp, err := dyn.Execute(context.Background(), rec, plugin.NewManager())
	if err != nil {
		t.Fatalf("Execute() after Update() error = %v", err)
	}
	if len(resp.Data) == 0 {
		t.Fatal("expected non-empty response data for the newly registered subgraph")
	}
}

func TestDynamicFederationSourceUpdateRejectsInvalidSDL(t *testing.T) {
	dyn, err := gateway.NewDynamicFederationSource("supergraph",
		map[string]string{"product": productSDL},
		map[string]string{"product": "http://product.internal"},
		http.DefaultClient,
	)
	if err != nil {
		t.Fatalf("NewDynamicFederationSource() error = %v", err)
	}

	if err := dyn.Update("broken", "type {{{ not valid sdl", "http://broken.internal"); err == nil {
		t.Fatal("expected Update() to reject invalid SDL")
	}

	rec := newGraphQLRec(t, `{ product(id: "1") { id name } }`)
	if _, err := dyn.Execute(context.Background(), rec, plugin.NewManager()); err != nil {
		t.Errorf("Execute() after a rejected Update() should still serve the prior schema, got error = %v", err)
	}
}
