package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

// GraphQLSource dispatches to a single upstream GraphQL endpoint over HTTP,
// per spec §4.4: no retries, 200 is the only success status, and a 200 with
// a populated "errors" field still counts as success (§9 open question).
type GraphQLSource struct {
	id       string
	endpoint string
	client   *http.Client
}

var _ Source = (*GraphQLSource)(nil)

// NewGraphQLSource builds a GraphQLSource bound to endpoint. A nil client
// defaults to http.DefaultClient.
func NewGraphQLSource(id, endpoint string, client *http.Client) *GraphQLSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &GraphQLSource{id: id, endpoint: endpoint, client: client}
}

func (s *GraphQLSource) ID() string { return s.id }

func (s *GraphQLSource) Execute(ctx context.Context, rec *engine.RequestExecutionContext, mgr *plugin.Manager) (*common.GraphQLResponse, error) {
	if rec.DownstreamGraphQLRequest == nil {
		return nil, ErrNoGraphQLRequest
	}

	upstreamReq := rec.DownstreamGraphQLRequest.Request
	mgr.RunUpstreamGraphQLRequest(ctx, &upstreamReq)

	body, err := json.Marshal(upstreamReq)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream graphql request: %w", err)
	}

	httpReq := &common.HttpRequest{
		Method:  http.MethodPost,
		URI:     s.endpoint,
		Headers: common.NewHeader(),
		Body:    body,
	}
	httpReq.Headers.Set("Content-Type", "application/json")

	mgr.RunUpstreamHTTPRequest(ctx, rec, httpReq)

	httpResp, execErr := s.dispatch(ctx, httpReq)
	mgr.RunUpstreamHTTPResponse(ctx, rec, httpResp, execErr)
	if execErr != nil {
		return nil, execErr
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &UnexpectedHTTPStatus{Code: httpResp.StatusCode}
	}

	var gqlResp common.GraphQLResponse
	if err := json.Unmarshal(httpResp.Body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode upstream graphql response: %w", err)
	}
	return &gqlResp, nil
}

func (s *GraphQLSource) dispatch(ctx context.Context, req *common.HttpRequest) (*common.HttpResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URI, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	headers := common.NewHeader()
	for k, vs := range resp.Header {
		headers[k] = vs
	}

	return &common.HttpResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       respBody,
	}, nil
}
