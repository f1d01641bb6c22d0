package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

type joinTypeEntry struct {
	graph      string
	key        string
	extension  bool
	resolvable bool
}

type joinFieldEntry struct {
	graph    string
	requires string
	provides string
	external bool
}

// NewSuperGraphV2FromJoinSDL builds a SuperGraphV2 from a single composed
// supergraph document carrying Apollo-Federation-v2-style @join__type,
// @join__field and @join__owner directives, rather than from N
// independently-parsed per-subgraph SDL texts (NewSuperGraphV2's input).
// hosts maps each graph name - the value of a directive's "graph:" argument,
// a join__Graph enum value - to the URL the gateway dispatches that
// subgraph's sub-operations to.
//
// The resulting SuperGraphV2 shares the one composed *ast.Document across
// every SubGraphV2 and keeps the Ownership/Graph fields populated exactly as
// NewSuperGraphV2 would, so the planner, executor and query builder need no
// knowledge of which construction path produced their SuperGraphV2.
func NewSuperGraphV2FromJoinSDL(src []byte, hosts map[string]string) (*SuperGraphV2, error) {
	l := lexer.New(string(src))
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("parse composed supergraph SDL: %v", errs)
	}

	graphNames := map[string]struct{}{}
	entitiesByGraph := map[string]map[string]*Entity{}
	ownership := map[string][]string{} // "Type.field" -> graph names, discovery order, deduped

	addOwner := func(typeName, fieldName, graphName string) {
		key := typeName + "." + fieldName
		for _, g := range ownership[key] {
			if g == graphName {
				return
			}
		}
		ownership[key] = append(ownership[key], graphName)
	}

	ensureEntity := func(graphName, typeName string) *Entity {
		byType, ok := entitiesByGraph[graphName]
		if !ok {
			byType = map[string]*Entity{}
			entitiesByGraph[graphName] = byType
		}
		e, ok := byType[typeName]
		if !ok {
			e = &Entity{Fields: map[string]*Field{}}
			byType[typeName] = e
		}
		return e
	}

	for _, def := range doc.Definitions {
		objDef, ok := def.(*ast.ObjectTypeDefinition)
		if !ok {
			continue
		}
		typeName := objDef.Name.String()

		var joinTypes []joinTypeEntry
		ownerGraph := ""
		for _, d := range objDef.Directives {
			switch d.Name {
			case "join__type":
				jt := joinTypeEntry{resolvable: true}
				for _, arg := range d.Arguments {
					switch arg.Name.String() {
					case "graph":
						jt.graph = cleanJoinArgValue(arg.Value.String())
					case "key":
						jt.key = cleanJoinArgValue(arg.Value.String())
					case "extension":
						jt.extension = arg.Value.String() == "true"
					case "resolvable":
						jt.resolvable = arg.Value.String() != "false"
					}
				}
				if jt.graph != "" {
					joinTypes = append(joinTypes, jt)
					graphNames[jt.graph] = struct{}{}
				}
			case "join__owner":
				for _, arg := range d.Arguments {
					if arg.Name.String() == "graph" {
						ownerGraph = cleanJoinArgValue(arg.Value.String())
					}
				}
			}
		}

		// A type only becomes an entity (participates in @key-based hops) in
		// a graph that declared a non-empty key for it; a @join__type with no
		// key just records that the graph contributes fields to the type
		// (e.g. every subgraph that adds root Query/Mutation fields).
		for _, jt := range joinTypes {
			if jt.key == "" {
				continue
			}
			e := ensureEntity(jt.graph, typeName)
			e.Keys = append(e.Keys, EntityKey{FieldSet: jt.key, Resolvable: jt.resolvable})
			if ownerGraph != "" {
				e.isExtension = jt.graph != ownerGraph
			} else {
				e.isExtension = jt.extension
			}
		}

		for _, fieldDef := range objDef.Fields {
			fieldName := fieldDef.Name.String()
			base := parseField(fieldDef)

			var joinFields []joinFieldEntry
			for _, d := range fieldDef.Directives {
				if d.Name != "join__field" {
					continue
				}
				jf := joinFieldEntry{}
				for _, arg := range d.Arguments {
					switch arg.Name.String() {
					case "graph":
						jf.graph = cleanJoinArgValue(arg.Value.String())
					case "requires":
						jf.requires = cleanJoinArgValue(arg.Value.String())
					case "provides":
						jf.provides = cleanJoinArgValue(arg.Value.String())
					case "external":
						jf.external = arg.Value.String() == "true"
					}
				}
				if jf.graph != "" {
					joinFields = append(joinFields, jf)
					graphNames[jf.graph] = struct{}{}
				}
			}

			if len(joinFields) == 0 {
				// Shared field: resolvable in every graph that owns the
				// parent type.
				for _, jt := range joinTypes {
					addOwner(typeName, fieldName, jt.graph)
					if e, ok := entitiesByGraph[jt.graph][typeName]; ok {
						e.Fields[fieldName] = base
					}
				}
				continue
			}

			for _, jf := range joinFields {
				fCopy := *base
				fCopy.Requires = splitJoinFieldSet(jf.requires)
				fCopy.Provides = splitJoinFieldSet(jf.provides)
				fCopy.isExternal = jf.external
				if !jf.external {
					addOwner(typeName, fieldName, jf.graph)
				}
				e := ensureEntity(jf.graph, typeName)
				e.Fields[fieldName] = &fCopy
			}
		}
	}

	names := make([]string, 0, len(graphNames))
	for name := range graphNames {
		names = append(names, name)
	}
	sort.Strings(names)

	subGraphs := make([]*SubGraphV2, 0, len(names))
	for _, name := range names {
		subGraphs = append(subGraphs, newSubGraphV2FromEntities(name, hosts[name], doc, entitiesByGraph[name]))
	}

	byName := make(map[string]*SubGraphV2, len(subGraphs))
	for _, s := range subGraphs {
		byName[s.Name] = s
	}

	sg := &SuperGraphV2{
		SubGraphs: subGraphs,
		Schema:    doc,
		Ownership: make(map[string][]*SubGraphV2, len(ownership)),
	}
	for key, graphs := range ownership {
		for _, g := range graphs {
			if s, ok := byName[g]; ok {
				sg.Ownership[key] = append(sg.Ownership[key], s)
			}
		}
	}

	sg.Graph = BuildGraph(subGraphs)

	return sg, nil
}

// cleanJoinArgValue strips the surrounding quotes a string-literal argument
// carries; enum references (bare graph names like PRODUCTS) pass through
// unchanged since they carry none.
func cleanJoinArgValue(v string) string {
	return strings.Trim(v, "\"")
}

// splitJoinFieldSet splits a @join__field "requires"/"provides" field-set
// string ("id sku", or "") into its field names.
func splitJoinFieldSet(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}
