package target

import (
	"slices"

	"github.com/vektah/gqlparser/v2/ast"
)

const typenameField = "__typename"

// collect flattens a selection set into its fields, expanding fragment spreads
// and inline fragments. When on is non-nil, fragments whose type condition does
// not apply to it are skipped.
func collect(doc *ast.QueryDocument, set ast.SelectionSet, on func(cond string) bool) []*ast.Field {
	var out []*ast.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			out = append(out, s)
		case *ast.InlineFragment:
			if on == nil || s.TypeCondition == "" || on(s.TypeCondition) {
				out = append(out, collect(doc, s.SelectionSet, on)...)
			}
		case *ast.FragmentSpread:
			if doc == nil {
				continue
			}
			frag := doc.Fragments.ForName(s.Name)
			if frag == nil {
				continue
			}
			if on == nil || on(frag.TypeCondition) {
				out = append(out, collect(doc, frag.SelectionSet, on)...)
			}
		}
	}
	return out
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// resolver fabricates data shaped by the selection set. Lists hold one element,
// abstract types resolve to their first possible type.
type resolver struct {
	schema *ast.Schema
	doc    *ast.QueryDocument
}

func (r *resolver) object(def *ast.Definition, set ast.SelectionSet) map[string]any {
	applies := func(cond string) bool {
		if cond == def.Name || slices.Contains(def.Interfaces, cond) {
			return true
		}
		if u := r.schema.Types[cond]; u != nil && u.Kind == ast.Union {
			return slices.Contains(u.Types, def.Name)
		}
		return false
	}

	out := make(map[string]any)
	for _, f := range collect(r.doc, set, applies) {
		if f.Name == typenameField {
			out[responseKey(f)] = def.Name
			continue
		}
		fd := def.Fields.ForName(f.Name)
		if fd == nil {
			continue
		}
		out[responseKey(f)] = r.value(fd.Type, f.SelectionSet)
	}
	return out
}

func (r *resolver) value(t *ast.Type, set ast.SelectionSet) any {
	if t.Elem != nil {
		return []any{r.value(t.Elem, set)}
	}
	def := r.schema.Types[t.NamedType]
	if def == nil {
		return nil
	}
	switch def.Kind {
	case ast.Object:
		return r.object(def, set)
	case ast.Interface, ast.Union:
		possible := r.schema.GetPossibleTypes(def)
		if len(possible) == 0 {
			return nil
		}
		return r.object(possible[0], set)
	case ast.Enum:
		if len(def.EnumValues) == 0 {
			return nil
		}
		return def.EnumValues[0].Name
	default:
		return scalar(def.Name)
	}
}

func scalar(name string) any {
	switch name {
	case "ID":
		return "1"
	case "Int":
		return 1
	case "Float":
		return 1.5
	case "Boolean":
		return true
	default:
		return "sample"
	}
}
