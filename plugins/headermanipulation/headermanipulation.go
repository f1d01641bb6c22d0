// Package headermanipulation implements a plugin supplemented from
// original_source/plugins/header_manipulation: static, config-driven
// add/remove/passthrough/copy actions applied to the outgoing upstream
// request's headers in hook 4.
package headermanipulation

import (
	"context"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

// ActionType names one of the four manipulation kinds the original plugin
// crate's config enum carries.
type ActionType string

const (
	ActionPassthrough ActionType = "passthrough"
	ActionRemove      ActionType = "remove"
	ActionAdd         ActionType = "add"
	ActionCopy        ActionType = "copy"
)

// Action is one configured manipulation step, run in declaration order.
type Action struct {
	Type  ActionType `yaml:"type"`
	Name  string     `yaml:"name"`  // header name for passthrough/remove/add
	Value string     `yaml:"value"` // literal value for add
	To    string     `yaml:"to"`    // destination header for copy
	From  string     `yaml:"from"`  // source header for copy
}

// Plugin applies a list of Actions to the upstream request's headers.
// Passthrough carries a downstream header value through unchanged if
// present; the other three kinds mutate the upstream headers directly.
type Plugin struct {
	plugin.NoopPlugin
	Upstream []Action
}

var _ plugin.Plugin = (*Plugin)(nil)

func New(upstream []Action) *Plugin {
	return &Plugin{Upstream: upstream}
}

func (p *Plugin) Name() string { return "header_manipulation" }

func (p *Plugin) OnUpstreamHTTPRequest(_ context.Context, rec *engine.RequestExecutionContext, req *common.HttpRequest) {
	var downstream common.Header
	if rec.DownstreamHTTPRequest != nil {
		downstream = rec.DownstreamHTTPRequest.Headers
	}

	for _, a := range p.Upstream {
		switch a.Type {
		case ActionPassthrough:
			if downstream != nil {
				if v := downstream.Get(a.Name); v != "" {
					req.Headers.Set(a.Name, v)
				}
			}
		case ActionRemove:
			req.Headers.Del(a.Name)
		case ActionAdd:
			req.Headers.Set(a.Name, a.Value)
		case ActionCopy:
			if v := req.Headers.Get(a.From); v != "" {
				req.Headers.Set(a.To, v)
			}
		}
	}
}
