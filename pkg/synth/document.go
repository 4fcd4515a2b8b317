package synth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/getmockd/gqlprobe/pkg/schema"
)

// ErrInvalidDocument is returned when a synthesized document does not parse.
var ErrInvalidDocument = errors.New("invalid document")

// Document is a synthesized single-field request document.
type Document struct {
	// Label identifies the operation, e.g. "query.user".
	Label string          `json:"label"`
	Kind  schema.RootKind `json:"kind"`
	Field string          `json:"field"`
	Query string          `json:"query"`
	Args  Args            `json:"args,omitempty"`
}

// Label returns the operation label used in reports and filters.
func Label(kind schema.RootKind, fields ...string) string {
	return string(kind) + "." + strings.Join(fields, ".")
}

// Documents builds request documents for root operations.
type Documents struct {
	schema     *schema.Schema
	values     *Values
	selections *Selections
}

// NewDocuments returns a document builder for s.
func NewDocuments(s *schema.Schema, opts Options) *Documents {
	values := NewValues(s, opts)
	return &Documents{
		schema:     s,
		values:     values,
		selections: NewSelections(s, values, opts),
	}
}

// Values returns the value synthesizer used for arguments.
func (d *Documents) Values() *Values { return d.values }

// Build synthesizes a document calling field with a value for every declared argument.
func (d *Documents) Build(kind schema.RootKind, field schema.FieldDef) (Document, error) {
	args := d.values.Args(field.Args)
	return d.build(kind, []schema.FieldDef{field}, args)
}

// BuildArgFree synthesizes a document calling field without arguments.
func (d *Documents) BuildArgFree(kind schema.RootKind, field schema.FieldDef) (Document, error) {
	return d.build(kind, []schema.FieldDef{field}, nil)
}

// BuildPath synthesizes an argument-free document that reaches the last field of chain
// through the preceding ones, starting at the root type of kind.
func (d *Documents) BuildPath(kind schema.RootKind, chain []schema.FieldDef) (Document, error) {
	if len(chain) == 0 {
		return Document{}, fmt.Errorf("%w: empty field path", ErrInvalidDocument)
	}
	return d.build(kind, chain, nil)
}

func (d *Documents) build(kind schema.RootKind, chain []schema.FieldDef, args Args) (Document, error) {
	names := make([]string, len(chain))
	for i, f := range chain {
		names[i] = f.Name
	}
	doc := Document{
		Label: Label(kind, names...),
		Kind:  kind,
		Field: chain[len(chain)-1].Name,
		Args:  args,
	}

	leaf := chain[len(chain)-1]
	body, err := d.fieldBody(leaf, args, nil, 0)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", doc.Label, err)
	}
	for i := len(chain) - 2; i >= 0; i-- {
		body = chain[i].Name + " { " + body + " }"
	}

	switch kind {
	case schema.RootMutation:
		doc.Query = "mutation { " + body + " }"
	default:
		doc.Query = "{ " + body + " }"
	}

	if _, err := parser.ParseQuery(&ast.Source{Name: doc.Label, Input: doc.Query}); err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, doc.Label, err)
	}
	return doc, nil
}

// fieldBody renders `name(args) { selection }` for field.
func (d *Documents) fieldBody(field schema.FieldDef, args Args, path *Path, depth int) (string, error) {
	head := field.Name + args.String()

	switch base := d.schema.Classify(field.Type).(type) {
	case schema.Scalar, schema.Enum:
		return head, nil
	case schema.Object:
		return head + " { " + d.selections.Build(base.Def, path, depth) + " }", nil
	case schema.Unknown:
		if base.Ref.Kind.IsAggregate() {
			return head + " { " + TypenameField + " }", nil
		}
		if errors.Is(base.Err, schema.ErrSchemaMalformed) {
			return "", base.Err
		}
		return head, nil
	default:
		return head, nil
	}
}
