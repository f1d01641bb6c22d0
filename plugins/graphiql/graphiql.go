// Package graphiql implements the GraphiQL plugin from spec §4.3: when a
// browser navigates to the endpoint directly, short-circuit with a rendered
// GraphiQL page instead of falling through to GraphQL extraction.
package graphiql

import (
	"context"
	"net/http"
	"strings"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

// Plugin renders the GraphiQL IDE for browser navigations. Title appears in
// the page's <title> tag.
type Plugin struct {
	plugin.NoopPlugin
	Title string
}

var _ plugin.Plugin = (*Plugin)(nil)

// New builds a Plugin. An empty title falls back to "GraphiQL".
func New(title string) *Plugin {
	if title == "" {
		title = "GraphiQL"
	}
	return &Plugin{Title: title}
}

func (p *Plugin) Name() string { return "graphiql" }

func (p *Plugin) OnDownstreamHTTPRequest(_ context.Context, rec *engine.RequestExecutionContext) {
	req := rec.DownstreamHTTPRequest
	if req == nil || req.Method != http.MethodGet {
		return
	}

	contentType := req.Headers.Get("Content-Type")
	if contentType != "" && contentType != "application/x-www-form-urlencoded" {
		return
	}

	accept := req.Headers.Get("Accept")
	if strings.Contains(accept, "application/json") || strings.Contains(accept, "application/graphql-response+json") {
		return
	}

	resp := common.NewHttpResponse(http.StatusOK, []byte(renderPage(p.Title)))
	resp.Headers.Set("Content-Type", "text/html; charset=utf-8")
	rec.ShortCircuit(resp)
}

func renderPage(title string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <title>` + title + `</title>
  <link rel="stylesheet" href="https://unpkg.com/graphiql/graphiql.min.css" />
</head>
<body style="margin: 0;">
  <div id="graphiql" style="height: 100vh;"></div>
  <script src="https://unpkg.com/react/umd/react.production.min.js"></script>
  <script src="https://unpkg.com/react-dom/umd/react-dom.production.min.js"></script>
  <script src="https://unpkg.com/graphiql/graphiql.min.js"></script>
  <script>
    const fetcher = GraphiQL.createFetcher({ url: window.location.href });
    ReactDOM.render(
      React.createElement(GraphiQL, { fetcher }),
      document.getElementById('graphiql'),
    );
  </script>
</body>
</html>`
}
