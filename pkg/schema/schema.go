package schema

import (
	"errors"
	"fmt"
)

// MaxWrapperDepth caps how many LIST/NON_NULL modifiers Resolve will unwrap.
// Real schemas rarely exceed three ([[T!]!]!); the standard introspection query
// itself only fetches seven levels of ofType.
const MaxWrapperDepth = 16

// ErrSchemaMalformed is returned when a type reference cannot be resolved:
// a wrapper without ofType, a chain deeper than MaxWrapperDepth, or a name that
// is not registered.
var ErrSchemaMalformed = errors.New("schema malformed")

// Schema is the type registry for one introspected endpoint.
type Schema struct {
	queryType    string
	mutationType string
	types        map[string]*TypeDef
	order        []string
	duplicates   int
}

// New builds a registry from type definitions. Names are unique: when a name is
// defined twice the first definition wins and the rest are counted in Duplicates.
// Definitions without a name are ignored.
func New(queryType, mutationType string, defs []TypeDef) *Schema {
	s := &Schema{
		queryType:    queryType,
		mutationType: mutationType,
		types:        make(map[string]*TypeDef, len(defs)),
		order:        make([]string, 0, len(defs)),
	}
	for i := range defs {
		def := defs[i]
		if def.Name == "" {
			continue
		}
		if _, exists := s.types[def.Name]; exists {
			s.duplicates++
			continue
		}
		s.types[def.Name] = &def
		s.order = append(s.order, def.Name)
	}
	return s
}

// QueryType returns the name of the query root type.
func (s *Schema) QueryType() string {
	return s.queryType
}

// MutationType returns the name of the mutation root type, or "" if the schema has none.
func (s *Schema) MutationType() string {
	return s.mutationType
}

// Len returns the number of registered types.
func (s *Schema) Len() int {
	return len(s.order)
}

// Duplicates returns how many definitions were dropped because their name was taken.
func (s *Schema) Duplicates() int {
	return s.duplicates
}

// Lookup finds a registered type by name.
func (s *Schema) Lookup(name string) (*TypeDef, bool) {
	def, ok := s.types[name]
	return def, ok
}

// Types returns all registered types in introspection order.
func (s *Schema) Types() []*TypeDef {
	out := make([]*TypeDef, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.types[name])
	}
	return out
}

// Root returns the root type for an operation kind.
func (s *Schema) Root(kind RootKind) (*TypeDef, bool) {
	var name string
	switch kind {
	case RootQuery:
		name = s.queryType
	case RootMutation:
		name = s.mutationType
	}
	if name == "" {
		return nil, false
	}
	return s.Lookup(name)
}

// Resolve unwraps NON_NULL and LIST modifiers and returns the named base reference.
// When the base reference carries no kind, the registered definition supplies it.
func (s *Schema) Resolve(ref TypeRef) (TypeRef, error) {
	cur := ref
	for depth := 0; cur.Kind.IsWrapper(); depth++ {
		if depth >= MaxWrapperDepth {
			return TypeRef{}, fmt.Errorf("%w: wrapper chain deeper than %d", ErrSchemaMalformed, MaxWrapperDepth)
		}
		if cur.OfType == nil {
			return TypeRef{}, fmt.Errorf("%w: %s modifier without ofType", ErrSchemaMalformed, cur.Kind)
		}
		cur = *cur.OfType
	}
	if cur.Name == "" {
		return TypeRef{}, fmt.Errorf("%w: %s reference without a name", ErrSchemaMalformed, kindOrUnknown(cur.Kind))
	}
	if cur.Kind == "" {
		if def, ok := s.types[cur.Name]; ok {
			cur.Kind = def.Kind
		}
	}
	return TypeRef{Kind: cur.Kind, Name: cur.Name}, nil
}

// ResolveDef resolves ref and looks up its definition.
func (s *Schema) ResolveDef(ref TypeRef) (*TypeDef, error) {
	base, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}
	def, ok := s.types[base.Name]
	if !ok {
		return nil, fmt.Errorf("%w: type %q is not defined", ErrSchemaMalformed, base.Name)
	}
	return def, nil
}

func kindOrUnknown(k Kind) string {
	if k == "" {
		return "untyped"
	}
	return string(k)
}
