package gateway

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
	"github.com/n9te9/go-graphql-federation-gateway/source"
)

// DynamicFederationSource is a source.Source backed by an atomically
// hot-swappable executionEngine (the schemaStore pattern), so a registry
// push can rebuild the composed supergraph without restarting the process.
// Every Execute call reads whatever engine is current at that moment.
type DynamicFederationSource struct {
	id         string
	httpClient *http.Client
	store      atomic.Value // holds *schemaStore
}

var _ source.Source = (*DynamicFederationSource)(nil)

// NewDynamicFederationSource builds a DynamicFederationSource from the
// initial set of subgraph SDLs and host URLs.
func NewDynamicFederationSource(id string, sdls, hosts map[string]string, httpClient *http.Client) (*DynamicFederationSource, error) {
	eng, err := buildEngine(sdls, hosts, httpClient)
	if err != nil {
		return nil, err
	}

	s := &DynamicFederationSource{id: id, httpClient: httpClient}
	s.store.Store(&schemaStore{sdls: copyMap(sdls), hosts: copyMap(hosts), engine: eng})
	return s, nil
}

func (s *DynamicFederationSource) ID() string { return s.id }

// Update rebuilds the supergraph with newSDL/newHost merged into the
// current subgraph set, named by name, and swaps it in atomically. A
// failing rebuild leaves the previously served engine untouched.
func (s *DynamicFederationSource) Update(name, newSDL, newHost string) error {
	cur := s.store.Load().(*schemaStore)

	sdls := copyMap(cur.sdls)
	hosts := copyMap(cur.hosts)
	sdls[name] = newSDL
	hosts[name] = newHost

	eng, err := buildEngine(sdls, hosts, s.httpClient)
	if err != nil {
		return err
	}

	s.store.Store(&schemaStore{sdls: sdls, hosts: hosts, engine: eng})
	return nil
}

func (s *DynamicFederationSource) Execute(ctx context.Context, rec *engine.RequestExecutionContext, mgr *plugin.Manager) (*common.GraphQLResponse, error) {
	cur := s.store.Load().(*schemaStore)

	fs := source.NewFederationSource(s.id, cur.engine.superGraph, s.httpClient)
	return fs.Execute(ctx, rec, mgr)
}
