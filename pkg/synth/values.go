package synth

import (
	"strings"

	"github.com/getmockd/gqlprobe/internal/id"
	"github.com/getmockd/gqlprobe/pkg/schema"
)

const (
	// DefaultMaxDepth bounds selection nesting and input-object recursion.
	DefaultMaxDepth = 3

	// GenericString is the fallback literal when nothing better is known.
	GenericString = "test"

	// UnknownEnum is used for enums that declare no values.
	UnknownEnum EnumSymbol = "UNKNOWN_ENUM"

	// TypenameField is the meta field selected when a branch is cut short.
	TypenameField = "__typename"
)

// Options configures synthesis.
type Options struct {
	// MaxDepth bounds nested selections and input objects. Zero means DefaultMaxDepth.
	MaxDepth int

	// NameHints enables argument-name hints (email, status, limit, ...) for string args.
	NameHints bool

	// NewUUID overrides UUID generation. Nil means id.UUID.
	NewUUID func() string
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// identifierKeywords mark string args that most likely expect an identifier or number.
var identifierKeywords = []string{"id", "number", "num", "count", "index", "position", "order"}

type nameHint struct {
	keyword string
	value   any
}

// nameHints is consulted in order; the first keyword contained in the arg name wins.
var nameHints = []nameHint{
	{"email", "test@example.com"},
	{"status", "active"},
	{"limit", "10"},
	{"page", "1"},
	{"name", "test"},
}

// Values synthesizes argument values from type and name.
type Values struct {
	schema    *schema.Schema
	maxDepth  int
	nameHints bool
	newUUID   func() string
}

// NewValues returns a value synthesizer bound to s.
func NewValues(s *schema.Schema, opts Options) *Values {
	newUUID := opts.NewUUID
	if newUUID == nil {
		newUUID = id.UUID
	}
	return &Values{
		schema:    s,
		maxDepth:  opts.maxDepth(),
		nameHints: opts.NameHints,
		newUUID:   newUUID,
	}
}

// Synthesize returns a value for arg. The result is one of int, float64, bool,
// string, EnumSymbol or map[string]any (input objects). It never fails; unknown
// shapes yield GenericString.
func (v *Values) Synthesize(arg schema.ArgDef) any {
	return v.synthesize(arg, nil, 0)
}

// Args synthesizes every argument in defs, preserving order.
func (v *Values) Args(defs []schema.ArgDef) Args {
	if len(defs) == 0 {
		return nil
	}
	out := make(Args, 0, len(defs))
	for _, def := range defs {
		out = append(out, ArgValue{Name: def.Name, Value: v.Synthesize(def)})
	}
	return out
}

func (v *Values) synthesize(arg schema.ArgDef, path *Path, depth int) any {
	argName := strings.ToLower(arg.Name)

	switch base := v.schema.Classify(arg.Type).(type) {
	case schema.Scalar:
		return v.scalar(base.Name, argName)
	case schema.Enum:
		if base.Def != nil && len(base.Def.EnumValues) > 0 {
			return EnumSymbol(base.Def.EnumValues[0])
		}
		return UnknownEnum
	case schema.InputObject:
		return v.inputObject(base.Def, path, depth)
	default:
		return GenericString
	}
}

func (v *Values) scalar(typeName, argName string) any {
	switch typeName {
	case "Int":
		return 1
	case "Float":
		return 1.1
	case "Boolean":
		return true
	case "ID":
		return v.identifier(typeName, argName)
	case "String":
		return v.stringValue(argName)
	}

	lower := strings.ToLower(typeName)
	switch {
	case strings.Contains(lower, "int"):
		return 1
	case strings.Contains(lower, "float"):
		return 1.1
	case strings.Contains(lower, "bool"):
		return true
	case strings.Contains(lower, "id"):
		return v.identifier(typeName, argName)
	}
	return v.stringValue(argName)
}

func (v *Values) identifier(typeName, argName string) any {
	lower := strings.ToLower(typeName)
	for _, hint := range []string{"uuid", "guid"} {
		if strings.Contains(argName, hint) || strings.Contains(lower, hint) {
			return v.newUUID()
		}
	}
	return "123"
}

func (v *Values) stringValue(argName string) any {
	if v.nameHints {
		for _, h := range nameHints {
			if strings.Contains(argName, h.keyword) {
				return h.value
			}
		}
	}
	for _, kw := range identifierKeywords {
		if !strings.Contains(argName, kw) {
			continue
		}
		if strings.Contains(argName, "id") {
			return "123"
		}
		return 1
	}
	return GenericString
}

func (v *Values) inputObject(def *schema.TypeDef, path *Path, depth int) any {
	if len(def.InputFields) == 0 || depth >= v.maxDepth || path.Contains(def.Name) {
		return GenericString
	}

	fields := requiredInputs(def.InputFields)
	next := path.Push(def.Name)
	obj := make(map[string]any, len(fields))
	for _, f := range fields {
		obj[f.Name] = v.synthesize(f, next, depth+1)
	}
	return obj
}

// requiredInputs returns the NON_NULL input fields, or all of them when none is required.
func requiredInputs(fields []schema.ArgDef) []schema.ArgDef {
	var required []schema.ArgDef
	for _, f := range fields {
		if f.Type.IsNonNull() {
			required = append(required, f)
		}
	}
	if len(required) == 0 {
		return fields
	}
	return required
}
