package target

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// introspector answers __schema and __type selections straight from the loaded
// SDL. Every object it returns contains only the keys the query selected.
type introspector struct {
	schema *ast.Schema
	doc    *ast.QueryDocument
}

// object evaluates each selected field (fragments expanded) with resolve and keys
// the results by alias.
func (in *introspector) object(set ast.SelectionSet, resolve func(f *ast.Field) any) map[string]any {
	out := make(map[string]any)
	for _, f := range collect(in.doc, set, nil) {
		out[responseKey(f)] = resolve(f)
	}
	return out
}

func (in *introspector) schemaInfo(set ast.SelectionSet) map[string]any {
	root := func(def *ast.Definition, f *ast.Field) any {
		if def == nil {
			return nil
		}
		return in.typeInfo(def, f.SelectionSet)
	}
	return in.object(set, func(f *ast.Field) any {
		switch f.Name {
		case "queryType":
			return root(in.schema.Query, f)
		case "mutationType":
			return root(in.schema.Mutation, f)
		case "subscriptionType":
			return root(in.schema.Subscription, f)
		case "types":
			return in.types(f.SelectionSet)
		case "directives":
			return in.directives(f.SelectionSet)
		case "description":
			return nilIfEmpty(in.schema.Description)
		case typenameField:
			return "__Schema"
		}
		return nil
	})
}

func (in *introspector) types(set ast.SelectionSet) []any {
	names := make([]string, 0, len(in.schema.Types))
	for name := range in.schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]any, 0, len(names))
	for _, name := range names {
		out = append(out, in.typeInfo(in.schema.Types[name], set))
	}
	return out
}

func (in *introspector) typeByName(name string, set ast.SelectionSet) any {
	def := in.schema.Types[name]
	if def == nil {
		return nil
	}
	return in.typeInfo(def, set)
}

func (in *introspector) typeInfo(def *ast.Definition, set ast.SelectionSet) map[string]any {
	return in.object(set, func(f *ast.Field) any {
		switch f.Name {
		case "kind":
			return string(def.Kind)
		case "name":
			return def.Name
		case "description":
			return nilIfEmpty(def.Description)
		case "fields":
			if def.Kind != ast.Object && def.Kind != ast.Interface {
				return nil
			}
			return in.fields(def.Fields, f.SelectionSet)
		case "inputFields":
			if def.Kind != ast.InputObject {
				return nil
			}
			return in.inputFields(def.Fields, f.SelectionSet)
		case "enumValues":
			if def.Kind != ast.Enum {
				return nil
			}
			return in.enumValues(def.EnumValues, f.SelectionSet)
		case "interfaces":
			if def.Kind != ast.Object && def.Kind != ast.Interface {
				return nil
			}
			out := make([]any, 0, len(def.Interfaces))
			for _, name := range def.Interfaces {
				out = append(out, in.typeByName(name, f.SelectionSet))
			}
			return out
		case "possibleTypes":
			if def.Kind != ast.Interface && def.Kind != ast.Union {
				return nil
			}
			possible := in.schema.GetPossibleTypes(def)
			out := make([]any, 0, len(possible))
			for _, p := range possible {
				out = append(out, in.typeInfo(p, f.SelectionSet))
			}
			return out
		case "isOneOf":
			return def.Directives.ForName("oneOf") != nil
		case "specifiedByURL", "ofType":
			return nil
		case typenameField:
			return "__Type"
		}
		return nil
	})
}

func (in *introspector) fields(list ast.FieldList, set ast.SelectionSet) []any {
	out := make([]any, 0, len(list))
	for _, fd := range list {
		if strings.HasPrefix(fd.Name, "__") {
			continue
		}
		out = append(out, in.object(set, func(f *ast.Field) any {
			switch f.Name {
			case "name":
				return fd.Name
			case "description":
				return nilIfEmpty(fd.Description)
			case "args":
				return in.args(fd.Arguments, f.SelectionSet)
			case "type":
				return in.typeRef(fd.Type, f.SelectionSet)
			case "isDeprecated":
				return fd.Directives.ForName("deprecated") != nil
			case "deprecationReason":
				return deprecationReason(fd.Directives)
			case typenameField:
				return "__Field"
			}
			return nil
		}))
	}
	return out
}

func (in *introspector) args(list ast.ArgumentDefinitionList, set ast.SelectionSet) []any {
	out := make([]any, 0, len(list))
	for _, arg := range list {
		out = append(out, in.inputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, set))
	}
	return out
}

func (in *introspector) inputFields(list ast.FieldList, set ast.SelectionSet) []any {
	out := make([]any, 0, len(list))
	for _, fd := range list {
		out = append(out, in.inputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, set))
	}
	return out
}

func (in *introspector) inputValue(name, description string, t *ast.Type, def *ast.Value, set ast.SelectionSet) map[string]any {
	return in.object(set, func(f *ast.Field) any {
		switch f.Name {
		case "name":
			return name
		case "description":
			return nilIfEmpty(description)
		case "type":
			return in.typeRef(t, f.SelectionSet)
		case "defaultValue":
			if def == nil {
				return nil
			}
			return def.String()
		case "isDeprecated":
			return false
		case "deprecationReason":
			return nil
		case typenameField:
			return "__InputValue"
		}
		return nil
	})
}

func (in *introspector) enumValues(list ast.EnumValueList, set ast.SelectionSet) []any {
	out := make([]any, 0, len(list))
	for _, ev := range list {
		out = append(out, in.object(set, func(f *ast.Field) any {
			switch f.Name {
			case "name":
				return ev.Name
			case "description":
				return nilIfEmpty(ev.Description)
			case "isDeprecated":
				return ev.Directives.ForName("deprecated") != nil
			case "deprecationReason":
				return deprecationReason(ev.Directives)
			case typenameField:
				return "__EnumValue"
			}
			return nil
		}))
	}
	return out
}

// typeRef unwraps NON_NULL before LIST, mirroring how the type was written.
func (in *introspector) typeRef(t *ast.Type, set ast.SelectionSet) map[string]any {
	return in.object(set, func(f *ast.Field) any {
		switch {
		case t.NonNull:
			switch f.Name {
			case "kind":
				return "NON_NULL"
			case "ofType":
				inner := *t
				inner.NonNull = false
				return in.typeRef(&inner, f.SelectionSet)
			}
		case t.Elem != nil:
			switch f.Name {
			case "kind":
				return "LIST"
			case "ofType":
				return in.typeRef(t.Elem, f.SelectionSet)
			}
		default:
			switch f.Name {
			case "kind":
				if def := in.schema.Types[t.NamedType]; def != nil {
					return string(def.Kind)
				}
				return "SCALAR"
			case "name":
				return t.NamedType
			}
		}
		if f.Name == typenameField {
			return "__Type"
		}
		return nil
	})
}

func (in *introspector) directives(set ast.SelectionSet) []any {
	names := make([]string, 0, len(in.schema.Directives))
	for name := range in.schema.Directives {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]any, 0, len(names))
	for _, name := range names {
		d := in.schema.Directives[name]
		out = append(out, in.object(set, func(f *ast.Field) any {
			switch f.Name {
			case "name":
				return d.Name
			case "description":
				return nilIfEmpty(d.Description)
			case "locations":
				locs := make([]any, 0, len(d.Locations))
				for _, l := range d.Locations {
					locs = append(locs, string(l))
				}
				return locs
			case "args":
				return in.args(d.Arguments, f.SelectionSet)
			case "isRepeatable":
				return d.IsRepeatable
			}
			return nil
		}))
	}
	return out
}

func deprecationReason(dirs ast.DirectiveList) any {
	d := dirs.ForName("deprecated")
	if d == nil {
		return nil
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return "No longer supported"
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
