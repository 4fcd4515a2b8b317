package schema

import "strings"

// Kind is the GraphQL __TypeKind of a type or type reference.
type Kind string

// Type kinds as reported by introspection.
const (
	KindScalar      Kind = "SCALAR"
	KindObject      Kind = "OBJECT"
	KindInterface   Kind = "INTERFACE"
	KindUnion       Kind = "UNION"
	KindEnum        Kind = "ENUM"
	KindInputObject Kind = "INPUT_OBJECT"
	KindList        Kind = "LIST"
	KindNonNull     Kind = "NON_NULL"
)

// IsWrapper reports whether the kind is a LIST or NON_NULL modifier.
func (k Kind) IsWrapper() bool {
	return k == KindList || k == KindNonNull
}

// IsAggregate reports whether values of this kind need a selection set.
func (k Kind) IsAggregate() bool {
	switch k {
	case KindObject, KindInterface, KindUnion:
		return true
	default:
		return false
	}
}

// RootKind identifies the root operation type a field hangs off.
type RootKind string

// Root operation kinds.
const (
	RootQuery    RootKind = "query"
	RootMutation RootKind = "mutation"
)

// TypeRef is a possibly wrapped reference to a named type.
// Wrapper refs (LIST, NON_NULL) carry OfType; named refs carry Name.
type TypeRef struct {
	Kind   Kind     `json:"kind"`
	Name   string   `json:"name,omitempty"`
	OfType *TypeRef `json:"ofType,omitempty"`
}

// Named returns a reference to the named type.
func Named(kind Kind, name string) TypeRef {
	return TypeRef{Kind: kind, Name: name}
}

// NonNull wraps ref in a NON_NULL modifier.
func NonNull(ref TypeRef) TypeRef {
	return TypeRef{Kind: KindNonNull, OfType: &ref}
}

// List wraps ref in a LIST modifier.
func List(ref TypeRef) TypeRef {
	return TypeRef{Kind: KindList, OfType: &ref}
}

// IsNonNull reports whether the outermost modifier is NON_NULL.
func (r TypeRef) IsNonNull() bool {
	return r.Kind == KindNonNull
}

// String renders the reference in SDL notation, e.g. "[User!]!".
// Broken wrapper chains render as "?".
func (r TypeRef) String() string {
	var b strings.Builder
	writeRef(&b, r, 0)
	return b.String()
}

func writeRef(b *strings.Builder, r TypeRef, depth int) {
	if depth > MaxWrapperDepth {
		b.WriteString("?")
		return
	}
	switch r.Kind {
	case KindNonNull:
		if r.OfType == nil {
			b.WriteString("?!")
			return
		}
		writeRef(b, *r.OfType, depth+1)
		b.WriteString("!")
	case KindList:
		b.WriteString("[")
		if r.OfType == nil {
			b.WriteString("?")
		} else {
			writeRef(b, *r.OfType, depth+1)
		}
		b.WriteString("]")
	default:
		if r.Name == "" {
			b.WriteString("?")
			return
		}
		b.WriteString(r.Name)
	}
}

// ArgDef is an argument (or input field) declaration.
type ArgDef struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
}

// FieldDef is a field declaration on an object-like type.
type FieldDef struct {
	Name string   `json:"name"`
	Args []ArgDef `json:"args,omitempty"`
	Type TypeRef  `json:"type"`
}

// RequiredArgs returns the arguments whose type is NON_NULL.
func (f FieldDef) RequiredArgs() []ArgDef {
	var required []ArgDef
	for _, a := range f.Args {
		if a.Type.IsNonNull() {
			required = append(required, a)
		}
	}
	return required
}

// TypeDef is a named type in the registry.
type TypeDef struct {
	Name        string     `json:"name"`
	Kind        Kind       `json:"kind"`
	Fields      []FieldDef `json:"fields,omitempty"`
	InputFields []ArgDef   `json:"inputFields,omitempty"`
	EnumValues  []string   `json:"enumValues,omitempty"`
}

// IsIntrospectionName reports whether name belongs to the introspection system
// (__Schema, __typename, ...).
func IsIntrospectionName(name string) bool {
	return strings.HasPrefix(name, "__")
}
