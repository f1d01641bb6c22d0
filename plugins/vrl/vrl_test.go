package vrl_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/expr-lang/expr"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/vrl"
)

func mustCompile(t *testing.T, src string) *vrl.Scripts {
	t.Helper()
	program, err := expr.Compile(src)
	if err != nil {
		t.Fatalf("expr.Compile(%q) error = %v", src, err)
	}
	return &vrl.Scripts{DownstreamHTTPRequest: program}
}

func TestScriptDirectiveShortCircuits(t *testing.T) {
	scripts := mustCompile(t, `request.method == "DELETE" ? {"status_code": 405, "message": "method not allowed"} : nil`)
	p := vrl.New(*scripts)

	rec := engine.New(&common.HttpRequest{Method: http.MethodDelete, Headers: common.NewHeader()})
	p.OnDownstreamHTTPRequest(context.Background(), rec)

	if !rec.IsShortCircuited() {
		t.Fatal("expected DELETE request to be short-circuited by the script")
	}
	if rec.ShortCircuitResponse.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.ShortCircuitResponse.StatusCode)
	}
}

func TestScriptNonDirectiveResultIsNoOp(t *testing.T) {
	scripts := mustCompile(t, `request.method == "DELETE" ? {"status_code": 405, "message": "method not allowed"} : nil`)
	p := vrl.New(*scripts)

	rec := engine.New(&common.HttpRequest{Method: http.MethodGet, Headers: common.NewHeader()})
	p.OnDownstreamHTTPRequest(context.Background(), rec)

	if rec.IsShortCircuited() {
		t.Error("GET request should not have been short-circuited")
	}
}

func TestNilScriptIsNoOp(t *testing.T) {
	p := vrl.New(vrl.Scripts{})
	rec := engine.New(&common.HttpRequest{Method: http.MethodGet, Headers: common.NewHeader()})

	p.OnDownstreamHTTPRequest(context.Background(), rec)
	p.OnDownstreamGraphQLRequest(context.Background(), rec, nil)
	p.OnUpstreamGraphQLRequest(context.Background(), &common.GraphQLRequest{Query: "{ hello }"})

	if rec.IsShortCircuited() {
		t.Error("a plugin with no compiled scripts should never short-circuit")
	}
}

func TestDownstreamHTTPResponseDirectiveMutatesResponseInPlace(t *testing.T) {
	program, err := expr.Compile(`response.status_code == 200 ? {"status_code": 403, "message": "blocked by policy"} : nil`)
	if err != nil {
		t.Fatalf("expr.Compile() error = %v", err)
	}
	p := vrl.New(vrl.Scripts{DownstreamHTTPResponse: program})

	rec := engine.New(&common.HttpRequest{Method: http.MethodGet, Headers: common.NewHeader()})
	resp := common.NewHttpResponse(http.StatusOK, []byte(`{"data":{}}`))

	p.OnDownstreamHTTPResponse(context.Background(), rec, resp)

	// Hook 6 has no later stage to re-read rec.ShortCircuitResponse from, so
	// the directive must have mutated resp itself.
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp.StatusCode = %d, want 403", resp.StatusCode)
	}
	if rec.IsShortCircuited() {
		t.Error("hook 6 must not go through rec.ShortCircuit; the gateway already holds resp")
	}
}

func TestDownstreamHTTPResponseNonDirectiveLeavesResponseUntouched(t *testing.T) {
	program, err := expr.Compile(`nil`)
	if err != nil {
		t.Fatalf("expr.Compile() error = %v", err)
	}
	p := vrl.New(vrl.Scripts{DownstreamHTTPResponse: program})

	rec := engine.New(&common.HttpRequest{Method: http.MethodGet, Headers: common.NewHeader()})
	resp := common.NewHttpResponse(http.StatusOK, []byte(`{"data":{}}`))

	p.OnDownstreamHTTPResponse(context.Background(), rec, resp)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("resp.StatusCode = %d, want unchanged 200", resp.StatusCode)
	}
}

func TestScriptErrorProducesBadGateway(t *testing.T) {
	scripts := mustCompile(t, `request.missingField.nested`)
	p := vrl.New(*scripts)

	rec := engine.New(&common.HttpRequest{Method: http.MethodGet, Headers: common.NewHeader()})
	p.OnDownstreamHTTPRequest(context.Background(), rec)

	if !rec.IsShortCircuited() {
		t.Fatal("a script runtime error should short-circuit the request")
	}
	if rec.ShortCircuitResponse.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.ShortCircuitResponse.StatusCode)
	}
}
