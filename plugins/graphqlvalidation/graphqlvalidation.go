// Package graphqlvalidation implements a plugin supplemented from
// original_source/plugins/graphql_validation: hook 2 validation of the
// parsed operation against the composed schema, rejecting unknown
// type/field selections before a single byte is sent upstream.
package graphqlvalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
	"github.com/n9te9/graphql-parser/ast"
)

// Plugin validates a parsed operation's selections against Schema, the
// gateway's composed supergraph document.
type Plugin struct {
	plugin.NoopPlugin
	Schema *ast.Document
}

var _ plugin.Plugin = (*Plugin)(nil)

func New(schema *ast.Document) *Plugin {
	return &Plugin{Schema: schema}
}

func (p *Plugin) Name() string { return "graphql_validation" }

func (p *Plugin) OnDownstreamGraphQLRequest(_ context.Context, rec *engine.RequestExecutionContext, _ plugin.Source) {
	if rec.IsShortCircuited() || rec.DownstreamGraphQLRequest == nil {
		return
	}

	doc := rec.DownstreamGraphQLRequest.Document
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}

		rootTypeName := "Query"
		switch op.Operation {
		case ast.Mutation:
			rootTypeName = "Mutation"
		case ast.Subscription:
			rootTypeName = "Subscription"
		}

		if err := p.validateSelectionSet(op.SelectionSet, rootTypeName); err != nil {
			p.shortCircuit(rec, err)
			return
		}
	}
}

func (p *Plugin) shortCircuit(rec *engine.RequestExecutionContext, err error) {
	body, _ := json.Marshal(common.NewErrorResponse(err.Error(), map[string]any{"code": "GRAPHQL_VALIDATION_FAILED"}))
	resp := common.NewHttpResponse(http.StatusBadRequest, body)
	rec.ShortCircuit(resp)
}

func (p *Plugin) validateSelectionSet(selSet []ast.Selection, parentTypeName string) error {
	if selSet == nil {
		return nil
	}

	def := p.findObjectType(parentTypeName)
	if def == nil {
		return fmt.Errorf("Unknown type %q", parentTypeName)
	}

	for _, sel := range selSet {
		switch s := sel.(type) {
		case *ast.Field:
			fieldName := s.Name.String()
			if fieldName == "__typename" || fieldName == "__schema" || fieldName == "__type" {
				continue
			}

			field := findField(def, fieldName)
			if field == nil {
				return fmt.Errorf("Cannot query field %q on type %q", fieldName, parentTypeName)
			}

			if nextType := unwrapTypeName(field.Type); nextType != "" {
				if err := p.validateSelectionSet(s.SelectionSet, nextType); err != nil {
					return err
				}
			}

		case *ast.FragmentSpread:
			// Fragment spreads are not followed, and fragment definitions are
			// not validated anywhere.

		case *ast.InlineFragment:
			typeCondition := parentTypeName
			if s.TypeCondition != nil {
				typeCondition = s.TypeCondition.String()
			}
			if err := p.validateSelectionSet(s.SelectionSet, typeCondition); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *Plugin) findObjectType(name string) *ast.ObjectTypeDefinition {
	if p.Schema == nil {
		return nil
	}
	for _, def := range p.Schema.Definitions {
		if objDef, ok := def.(*ast.ObjectTypeDefinition); ok && objDef.Name.String() == name {
			return objDef
		}
	}
	return nil
}

func findField(def *ast.ObjectTypeDefinition, name string) *ast.FieldDefinition {
	for _, f := range def.Fields {
		if f.Name.String() == name {
			return f
		}
	}
	return nil
}

func unwrapTypeName(t ast.Type) string {
	switch typ := t.(type) {
	case *ast.NamedType:
		return typ.Name.String()
	case *ast.ListType:
		return unwrapTypeName(typ.Type)
	case *ast.NonNullType:
		return unwrapTypeName(typ.Type)
	}
	return ""
}
