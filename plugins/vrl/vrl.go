// Package vrl implements the VRL-scripting-plugin substitute from spec
// §4.3, using github.com/expr-lang/expr as the embedded scripting engine in
// place of Vector Remap Language (grounded on wudi-gateway's scripting
// dependency, the only expr-lang consumer in the retrieved pack). Each of
// the six hooks may carry an independently compiled script; a script reads
// the hook's exposed env and may return a short-circuit directive.
package vrl

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/expr-lang/expr/vm"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
)

// Directive is the shape a script returns to short-circuit the request: a
// map with "status_code" (int) and "message" (string) keys. Any other
// return value is treated as "do nothing".
type Directive struct {
	StatusCode int
	Message    string
}

// Scripts holds one compiled program per hook. A nil entry means the hook
// is a no-op for this plugin instance.
type Scripts struct {
	DownstreamHTTPRequest    *vm.Program
	DownstreamGraphQLRequest *vm.Program
	UpstreamGraphQLRequest   *vm.Program
	UpstreamHTTPRequest      *vm.Program
	UpstreamHTTPResponse     *vm.Program
	DownstreamHTTPResponse   *vm.Program
}

// Plugin runs Scripts through the six hooks.
type Plugin struct {
	plugin.NoopPlugin
	Scripts Scripts
}

var _ plugin.Plugin = (*Plugin)(nil)

func New(scripts Scripts) *Plugin {
	return &Plugin{Scripts: scripts}
}

func (p *Plugin) Name() string { return "vrl" }

func (p *Plugin) OnDownstreamHTTPRequest(_ context.Context, rec *engine.RequestExecutionContext) {
	p.run(rec, p.Scripts.DownstreamHTTPRequest, map[string]any{
		"request": requestEnv(rec.DownstreamHTTPRequest),
	})
}

func (p *Plugin) OnDownstreamGraphQLRequest(_ context.Context, rec *engine.RequestExecutionContext, _ plugin.Source) {
	env := map[string]any{"request": requestEnv(rec.DownstreamHTTPRequest)}
	if rec.DownstreamGraphQLRequest != nil {
		env["query"] = rec.DownstreamGraphQLRequest.Request.Query
		env["operationName"] = rec.DownstreamGraphQLRequest.Request.OperationName
	}
	p.run(rec, p.Scripts.DownstreamGraphQLRequest, env)
}

func (p *Plugin) OnUpstreamGraphQLRequest(_ context.Context, req *common.GraphQLRequest) {
	if p.Scripts.UpstreamGraphQLRequest == nil {
		return
	}
	// Upstream-GraphQL-request scripts have no REC to short-circuit through
	// (hook 3 carries no REC, per spec §4.2); errors here are swallowed, a
	// deliberate narrowing since there is nowhere to report them.
	_, _ = vm.Run(p.Scripts.UpstreamGraphQLRequest, map[string]any{
		"query":         req.Query,
		"operationName": req.OperationName,
	})
}

func (p *Plugin) OnUpstreamHTTPRequest(_ context.Context, rec *engine.RequestExecutionContext, req *common.HttpRequest) {
	p.run(rec, p.Scripts.UpstreamHTTPRequest, map[string]any{
		"request": requestEnv(req),
	})
}

func (p *Plugin) OnUpstreamHTTPResponse(_ context.Context, rec *engine.RequestExecutionContext, resp *common.HttpResponse, upstreamErr error) {
	if p.Scripts.UpstreamHTTPResponse == nil {
		return
	}
	env := map[string]any{"response": responseEnv(resp)}
	if upstreamErr != nil {
		env["error"] = upstreamErr.Error()
	}
	p.run(rec, p.Scripts.UpstreamHTTPResponse, env)
}

// OnDownstreamHTTPResponse runs the hook-6 script. Hook 6 always runs, even
// after a short-circuit, and the gateway writes the resp pointer it already
// holds rather than re-reading rec.ShortCircuitResponse afterward. So unlike
// the earlier hooks, a directive here mutates resp in place (status code and
// body) rather than going through rec.ShortCircuit, matching how cors and
// matchcontenttype operate on this hook.
func (p *Plugin) OnDownstreamHTTPResponse(_ context.Context, _ *engine.RequestExecutionContext, resp *common.HttpResponse) {
	if p.Scripts.DownstreamHTTPResponse == nil || resp == nil {
		return
	}

	out, err := vm.Run(p.Scripts.DownstreamHTTPResponse, map[string]any{
		"response": responseEnv(resp),
	})
	if err != nil {
		applyDirective(resp, Directive{StatusCode: http.StatusBadGateway, Message: "vrl script error: " + err.Error()})
		return
	}

	d, ok := asDirective(out)
	if !ok {
		return
	}
	applyDirective(resp, d)
}

func applyDirective(resp *common.HttpResponse, d Directive) {
	body, _ := json.Marshal(common.NewErrorResponse(d.Message, nil))
	resp.StatusCode = d.StatusCode
	resp.Body = body
}

func (p *Plugin) run(rec *engine.RequestExecutionContext, program *vm.Program, env map[string]any) {
	if program == nil {
		return
	}

	out, err := vm.Run(program, env)
	if err != nil {
		p.shortCircuit(rec, http.StatusBadGateway, "vrl script error: "+err.Error())
		return
	}

	d, ok := asDirective(out)
	if !ok {
		return
	}
	p.shortCircuit(rec, d.StatusCode, d.Message)
}

func (p *Plugin) shortCircuit(rec *engine.RequestExecutionContext, status int, message string) {
	body, _ := json.Marshal(common.NewErrorResponse(message, nil))
	resp := common.NewHttpResponse(status, body)
	rec.ShortCircuit(resp)
}

func asDirective(v any) (Directive, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Directive{}, false
	}
	code, hasCode := m["status_code"]
	msg, hasMsg := m["message"]
	if !hasCode || !hasMsg {
		return Directive{}, false
	}

	var d Directive
	switch c := code.(type) {
	case int:
		d.StatusCode = c
	case float64:
		d.StatusCode = int(c)
	default:
		return Directive{}, false
	}
	s, ok := msg.(string)
	if !ok {
		return Directive{}, false
	}
	d.Message = s
	return d, true
}

func requestEnv(req *common.HttpRequest) map[string]any {
	if req == nil {
		return map[string]any{}
	}
	return map[string]any{
		"method": req.Method,
		"uri":    req.URI,
		"body":   string(req.Body),
	}
}

func responseEnv(resp *common.HttpResponse) map[string]any {
	if resp == nil {
		return map[string]any{}
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(resp.Body),
	}
}
