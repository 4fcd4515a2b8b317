// Package schema holds the type registry built from an introspected GraphQL schema.
//
// Types are stored in an arena keyed by name. Every cross-reference (a field's type,
// an argument's type, the ofType of a wrapper) is a TypeRef that names its target
// instead of pointing at it, so self-referential and cyclic schemas are plain data:
//
//	s := schema.New("Query", "", []schema.TypeDef{
//	    {Name: "Query", Kind: schema.KindObject, Fields: []schema.FieldDef{
//	        {Name: "user", Type: schema.Named(schema.KindObject, "User")},
//	    }},
//	    {Name: "User", Kind: schema.KindObject, Fields: []schema.FieldDef{
//	        {Name: "friend", Type: schema.Named(schema.KindObject, "User")},
//	    }},
//	})
//	def, err := s.ResolveDef(schema.NonNull(schema.Named(schema.KindObject, "User")))
//
// Resolve unwraps NON_NULL and LIST wrappers with a depth cap; malformed chains and
// dangling names are reported as ErrSchemaMalformed. A Schema is read-only after New
// and may be shared between goroutines without locking.
package schema
