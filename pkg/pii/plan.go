package pii

import (
	"fmt"

	"github.com/getmockd/gqlprobe/pkg/schema"
	"github.com/getmockd/gqlprobe/pkg/synth"
)

// DefaultMaxPath is the longest access path, in fields, that Plan searches for.
const DefaultMaxPath = 4

// Planner builds argument-free probes for matched fields.
type Planner struct {
	schema  *schema.Schema
	docs    *synth.Documents
	maxPath int
}

// NewPlanner returns a planner for s. maxPath <= 0 means DefaultMaxPath.
func NewPlanner(s *schema.Schema, docs *synth.Documents, maxPath int) *Planner {
	if maxPath <= 0 {
		maxPath = DefaultMaxPath
	}
	return &Planner{schema: s, docs: docs, maxPath: maxPath}
}

// Plan returns a document reading m without supplying any argument. The field is
// reached through the shortest chain of fields without required arguments from the
// query root. When no such chain exists the field is selected at the root directly,
// which servers usually reject; the probe result then records that. Such documents
// are labelled query.<Owner>.<field>? so reports do not suggest a root field.
func (p *Planner) Plan(m FieldMatch) (synth.Document, error) {
	owner, ok := p.schema.Lookup(m.TypeName)
	if !ok {
		return synth.Document{}, fmt.Errorf("%w: type %q is not defined", schema.ErrSchemaMalformed, m.TypeName)
	}
	target, ok := fieldByName(owner, m.FieldName)
	if !ok {
		return synth.Document{}, fmt.Errorf("%w: field %s.%s is not defined", schema.ErrSchemaMalformed, m.TypeName, m.FieldName)
	}

	if chain := p.accessPath(owner.Name); chain != nil {
		return p.docs.BuildPath(schema.RootQuery, append(chain, target))
	}
	doc, err := p.docs.BuildArgFree(schema.RootQuery, target)
	if err != nil {
		return synth.Document{}, err
	}
	doc.Label = synth.Label(schema.RootQuery, owner.Name, target.Name) + "?"
	return doc, nil
}

type step struct {
	typeName string
	chain    []schema.FieldDef
}

// accessPath finds the shortest chain of argument-free fields from the query root to
// an object of type typeName. It returns an empty non-nil chain when typeName is the
// root itself and nil when no chain fits within maxPath-1 fields.
func (p *Planner) accessPath(typeName string) []schema.FieldDef {
	root, ok := p.schema.Root(schema.RootQuery)
	if !ok {
		return nil
	}
	if root.Name == typeName {
		return []schema.FieldDef{}
	}

	visited := map[string]bool{root.Name: true}
	queue := []step{{typeName: root.Name}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.chain) >= p.maxPath-1 {
			continue
		}

		def, _ := p.schema.Lookup(cur.typeName)
		for _, f := range def.Fields {
			if len(f.RequiredArgs()) > 0 || schema.IsIntrospectionName(f.Name) {
				continue
			}
			obj, ok := p.schema.Classify(f.Type).(schema.Object)
			if !ok || obj.Def.Kind == schema.KindUnion || visited[obj.Def.Name] {
				continue
			}
			chain := append(append([]schema.FieldDef(nil), cur.chain...), f)
			if obj.Def.Name == typeName {
				return chain
			}
			visited[obj.Def.Name] = true
			queue = append(queue, step{typeName: obj.Def.Name, chain: chain})
		}
	}
	return nil
}

func fieldByName(def *schema.TypeDef, name string) (schema.FieldDef, bool) {
	for _, f := range def.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return schema.FieldDef{}, false
}
