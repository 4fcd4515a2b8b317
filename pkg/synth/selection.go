package synth

import (
	"errors"
	"strings"

	"github.com/getmockd/gqlprobe/pkg/schema"
)

// Selections builds bounded selection sets for object-like types.
type Selections struct {
	schema   *schema.Schema
	values   *Values
	maxDepth int
}

// NewSelections returns a selection builder. values supplies inline arguments for
// nested fields with required arguments.
func NewSelections(s *schema.Schema, values *Values, opts Options) *Selections {
	return &Selections{schema: s, values: values, maxDepth: opts.maxDepth()}
}

// Build renders the selection body for def, without the enclosing braces.
// path holds the types already entered above def; depth is def's nesting level.
// The result is never empty.
func (b *Selections) Build(def *schema.TypeDef, path *Path, depth int) string {
	if def == nil || def.Kind == schema.KindUnion || len(def.Fields) == 0 {
		return TypenameField
	}
	next := path.Push(def.Name)

	parts := make([]string, 0, len(def.Fields))
	for _, field := range def.Fields {
		if schema.IsIntrospectionName(field.Name) {
			continue
		}
		if sel, ok := b.field(field, next, depth); ok {
			parts = append(parts, sel)
		}
	}
	if len(parts) == 0 {
		return TypenameField
	}
	return strings.Join(parts, " ")
}

// field renders one field selection. ok is false when the field must be dropped.
func (b *Selections) field(field schema.FieldDef, path *Path, depth int) (string, bool) {
	head := field.Name + b.values.Args(field.RequiredArgs()).String()

	switch base := b.schema.Classify(field.Type).(type) {
	case schema.Scalar, schema.Enum:
		return head, true
	case schema.Object:
		child := base.Def
		if child.Kind == schema.KindUnion || depth >= b.maxDepth || path.Contains(child.Name) {
			return head + " { " + TypenameField + " }", true
		}
		return head + " { " + b.Build(child, path, depth+1) + " }", true
	case schema.Unknown:
		// Aggregates that are referenced but not defined still accept __typename.
		if base.Ref.Kind.IsAggregate() && errors.Is(base.Err, schema.ErrSchemaMalformed) {
			return head + " { " + TypenameField + " }", true
		}
		return "", false
	default:
		return "", false
	}
}
