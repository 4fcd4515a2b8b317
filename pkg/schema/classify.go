package schema

import "fmt"

// Base is the resolved shape of a type reference. It is one of Scalar, Enum,
// Object, InputObject or Unknown; callers switch on the concrete type.
type Base interface {
	isBase()
}

// Scalar is a leaf scalar such as Int, ID or a custom scalar.
type Scalar struct {
	Name string
}

// Enum is an enum type. Def is nil when the enum is referenced but not registered.
type Enum struct {
	Name string
	Def  *TypeDef
}

// Object is an aggregate type that needs a selection set: OBJECT, INTERFACE or UNION.
type Object struct {
	Def *TypeDef
}

// InputObject is an INPUT_OBJECT type usable as an argument value.
type InputObject struct {
	Def *TypeDef
}

// Unknown is anything the registry cannot classify. Ref is the best-effort resolved
// reference (possibly zero) and Err explains why.
type Unknown struct {
	Ref TypeRef
	Err error
}

func (Scalar) isBase()      {}
func (Enum) isBase()        {}
func (Object) isBase()      {}
func (InputObject) isBase() {}
func (Unknown) isBase()     {}

// Classify resolves ref and reports its base shape. It never panics; anything that
// cannot be resolved becomes Unknown.
func (s *Schema) Classify(ref TypeRef) Base {
	base, err := s.Resolve(ref)
	if err != nil {
		return Unknown{Err: err}
	}
	def, registered := s.types[base.Name]

	switch base.Kind {
	case KindScalar:
		return Scalar{Name: base.Name}
	case KindEnum:
		return Enum{Name: base.Name, Def: def}
	case KindObject, KindInterface, KindUnion:
		if !registered {
			return Unknown{Ref: base, Err: fmt.Errorf("%w: type %q is not defined", ErrSchemaMalformed, base.Name)}
		}
		return Object{Def: def}
	case KindInputObject:
		if !registered {
			return Unknown{Ref: base, Err: fmt.Errorf("%w: input type %q is not defined", ErrSchemaMalformed, base.Name)}
		}
		return InputObject{Def: def}
	default:
		return Unknown{Ref: base, Err: fmt.Errorf("unsupported kind %q for type %q", base.Kind, base.Name)}
	}
}
