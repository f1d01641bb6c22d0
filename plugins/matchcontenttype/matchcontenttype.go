// Package matchcontenttype implements the match-content-type plugin from
// spec §4.3. It must always be registered last, so it observes the final
// response every other plugin has already shaped.
package matchcontenttype

import (
	"context"
	"strings"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

// Plugin fills in a missing response Content-Type by negotiating against
// the request's Accept header.
type Plugin struct {
	plugin.NoopPlugin
}

var _ plugin.Plugin = (*Plugin)(nil)

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "match_content_type" }

func (p *Plugin) OnDownstreamHTTPResponse(_ context.Context, rec *engine.RequestExecutionContext, resp *common.HttpResponse) {
	if resp == nil || resp.Headers.Get("Content-Type") != "" {
		return
	}

	accept := ""
	if rec.DownstreamHTTPRequest != nil {
		accept = rec.DownstreamHTTPRequest.Headers.Get("Accept")
	}

	switch {
	case strings.Contains(accept, "application/graphql-response+json"):
		resp.Headers.Set("Content-Type", "application/graphql-response+json")
	default:
		// Covers application/json, */*, and anything else unrecognized.
		resp.Headers.Set("Content-Type", "application/json")
	}
}
