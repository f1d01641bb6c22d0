// Package source provides the uniform abstraction over an upstream GraphQL
// provider (spec §4.4): a single HTTP endpoint, or a federated supergraph
// driven by the query planner.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

// Source is the capability every concrete source runtime implements. Execute
// is called after hooks 1-2 have run and rec.DownstreamGraphQLRequest is
// installed (unless the REC was short-circuited, in which case the gateway
// never calls Execute at all). Execute itself drives hooks 3-5 around its
// upstream dispatch, since those hooks are defined in terms of the request
// actually sent upstream - which only the source knows how to build.
type Source interface {
	ID() string
	Execute(ctx context.Context, rec *engine.RequestExecutionContext, mgr *plugin.Manager) (*common.GraphQLResponse, error)
}

var _ plugin.Source = Source(nil)

// UnexpectedHTTPStatus is returned by GraphQLSource when the upstream
// responds with a status other than 200.
type UnexpectedHTTPStatus struct {
	Code int
}

func (e *UnexpectedHTTPStatus) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from upstream", e.Code)
}

// NetworkError wraps a transport failure reaching the upstream.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// PlanningError is raised by FederationSource when the planner cannot build
// a plan for the client's operation.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string { return fmt.Sprintf("planning error: %v", e.Err) }
func (e *PlanningError) Unwrap() error { return e.Err }

// ErrNoGraphQLRequest is returned when Execute is called without an
// installed downstream GraphQL request - a programmer error in the gateway,
// since it must only call Execute after hook 2 succeeds.
var ErrNoGraphQLRequest = errors.New("source: no downstream graphql request installed on REC")
