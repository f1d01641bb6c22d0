package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
	"github.com/n9te9/go-graphql-federation-gateway/source"
)

// EndpointRuntime is one configured route: a path prefix bound to a source
// runtime and its ordered plugin pipeline.
type EndpointRuntime struct {
	Path     string
	TenantID uint32
	Source   source.Source
	Plugins  *plugin.Manager
}

// EndpointGateway is the multi-endpoint front door from spec §4.1: a route
// lookup by longest path-prefix match (an exact match is necessarily the
// longest possible match for its own path, so a single prefix-length
// comparison gives exact-over-prefix preference for free), dispatching into
// the six-hook plugin pipeline around a Source.
type EndpointGateway struct {
	endpoints []*EndpointRuntime
}

var _ http.Handler = (*EndpointGateway)(nil)

// NewEndpointGateway builds an EndpointGateway serving the given endpoints.
func NewEndpointGateway(endpoints []*EndpointRuntime) *EndpointGateway {
	sorted := make([]*EndpointRuntime, len(endpoints))
	copy(sorted, endpoints)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})
	return &EndpointGateway{endpoints: sorted}
}

func (g *EndpointGateway) match(path string) *EndpointRuntime {
	for _, ep := range g.endpoints {
		if hasPathPrefix(path, ep.Path) {
			return ep
		}
	}
	return nil
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix
}

func (g *EndpointGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/_health" {
		w.WriteHeader(http.StatusOK)
		return
	}

	ep := g.match(r.URL.Path)
	if ep == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	headers := common.NewHeader()
	for k, v := range r.Header {
		headers[k] = v
	}

	rec := engine.New(&common.HttpRequest{
		Method:      r.Method,
		URI:         r.URL.Path,
		QueryString: r.URL.RawQuery,
		Headers:     headers,
		Body:        body,
	})
	rec.TenantID = ep.TenantID

	ep.Plugins.RunDownstreamHTTPRequest(ctx, rec)

	if !rec.IsShortCircuited() && rec.DownstreamGraphQLRequest == nil && r.Method == http.MethodPost {
		var gqlReq common.GraphQLRequest
		if err := json.Unmarshal(body, &gqlReq); err != nil {
			rec.ShortCircuit(jsonErrorResponse(http.StatusBadRequest, "invalid request body: "+err.Error()))
		} else if err := rec.SetGraphQLRequest(gqlReq); err != nil {
			rec.ShortCircuit(jsonErrorResponse(http.StatusBadRequest, "invalid GraphQL query: "+err.Error()))
		}
	}

	if !rec.IsShortCircuited() {
		ep.Plugins.RunDownstreamGraphQLRequest(ctx, rec, ep.Source)
	}

	var resp *common.HttpResponse
	if rec.IsShortCircuited() {
		resp = rec.ShortCircuitResponse
	} else if rec.DownstreamGraphQLRequest == nil {
		resp = jsonErrorResponse(http.StatusBadRequest, "no GraphQL request found")
	} else {
		gqlResp, err := ep.Source.Execute(ctx, rec, ep.Plugins)
		if err != nil {
			resp = jsonErrorResponse(upstreamErrorStatus(err), err.Error())
		} else {
			data, _ := json.Marshal(gqlResp)
			resp = common.NewHttpResponse(http.StatusOK, data)
		}
	}

	ep.Plugins.RunDownstreamHTTPResponse(ctx, rec, resp)

	writeResponse(w, resp)
}

// upstreamErrorStatus maps a source.Source.Execute error to the status code
// spec §7 assigns it: a PlanningError is the gateway's own fault (500), while
// a NetworkError/UnexpectedHTTPStatus reaching the upstream is a bad gateway
// (502).
func upstreamErrorStatus(err error) int {
	var planningErr *source.PlanningError
	if errors.As(err, &planningErr) {
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func jsonErrorResponse(status int, message string) *common.HttpResponse {
	body, _ := json.Marshal(common.NewErrorResponse(message, nil))
	return common.NewHttpResponse(status, body)
}

func writeResponse(w http.ResponseWriter, resp *common.HttpResponse) {
	if resp == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	for k, vs := range resp.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
