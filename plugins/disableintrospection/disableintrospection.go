// Package disableintrospection implements the disable-introspection plugin
// from spec §4.3: reject operations that select introspection root fields,
// optionally gated by a compiled scripting condition.
package disableintrospection

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/expr-lang/expr/vm"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
	"github.com/n9te9/graphql-parser/ast"
)

// Plugin rejects queries selecting __schema, __type or __typename at the root.
// Condition, if set, is evaluated with an env exposing "operationName" and
// "query"; the query is rejected only when the script returns true, or when
// Condition is nil (the default: always reject).
type Plugin struct {
	plugin.NoopPlugin
	Condition *vm.Program
}

var _ plugin.Plugin = (*Plugin)(nil)

func New(condition *vm.Program) *Plugin {
	return &Plugin{Condition: condition}
}

func (p *Plugin) Name() string { return "disable_introspection" }

func (p *Plugin) OnDownstreamGraphQLRequest(_ context.Context, rec *engine.RequestExecutionContext, _ plugin.Source) {
	if rec.IsShortCircuited() || rec.DownstreamGraphQLRequest == nil {
		return
	}

	doc := rec.DownstreamGraphQLRequest.Document
	if !selectsIntrospection(doc) {
		return
	}

	if p.Condition != nil {
		env := map[string]any{
			"operationName": rec.DownstreamGraphQLRequest.Request.OperationName,
			"query":         rec.DownstreamGraphQLRequest.Request.Query,
		}
		out, err := vmRun(p.Condition, env)
		if err != nil {
			p.shortCircuit(rec, "introspection condition script failed: "+err.Error())
			return
		}
		if should, ok := out.(bool); !ok || !should {
			return
		}
	}

	p.shortCircuit(rec, "introspection is disabled")
}

func (p *Plugin) shortCircuit(rec *engine.RequestExecutionContext, message string) {
	body, _ := json.Marshal(common.NewErrorResponse(message, map[string]any{"code": "INTROSPECTION_DISABLED"}))
	resp := common.NewHttpResponse(http.StatusForbidden, body)
	rec.ShortCircuit(resp)
}

func selectsIntrospection(doc *ast.Document) bool {
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		for _, sel := range op.SelectionSet {
			field, ok := sel.(*ast.Field)
			if !ok {
				continue
			}
			switch field.Name.String() {
			case "__schema", "__type", "__typename":
				return true
			}
		}
	}
	return false
}

func vmRun(program *vm.Program, env map[string]any) (any, error) {
	return vm.Run(program, env)
}
