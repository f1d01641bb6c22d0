// Package cors implements the CORS plugin from spec §4.3: static,
// configuration-driven Access-Control-Allow-* headers written in hook 6.
package cors

import (
	"context"
	"strings"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

// Config mirrors the recognized configuration shape: each field is either
// the wildcard "*" or a list joined with ", " when written to the response.
type Config struct {
	AllowOrigin      []string
	AllowOriginAll   bool
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	MaxAgeSeconds    int
}

// Plugin writes CORS headers on every response, regardless of short-circuit
// state, since hook 6 always runs.
type Plugin struct {
	plugin.NoopPlugin
	Config Config
}

var _ plugin.Plugin = (*Plugin)(nil)

func New(cfg Config) *Plugin {
	return &Plugin{Config: cfg}
}

func (p *Plugin) Name() string { return "cors" }

func (p *Plugin) OnDownstreamHTTPResponse(_ context.Context, _ *engine.RequestExecutionContext, resp *common.HttpResponse) {
	if resp == nil {
		return
	}

	if p.Config.AllowOriginAll {
		resp.Headers.Set("Access-Control-Allow-Origin", "*")
	} else if len(p.Config.AllowOrigin) > 0 {
		resp.Headers.Set("Access-Control-Allow-Origin", strings.Join(p.Config.AllowOrigin, ", "))
	}
	if len(p.Config.AllowMethods) > 0 {
		resp.Headers.Set("Access-Control-Allow-Methods", strings.Join(p.Config.AllowMethods, ", "))
	}
	if len(p.Config.AllowHeaders) > 0 {
		resp.Headers.Set("Access-Control-Allow-Headers", strings.Join(p.Config.AllowHeaders, ", "))
	}
	if p.Config.AllowCredentials {
		resp.Headers.Set("Access-Control-Allow-Credentials", "true")
	}
}
