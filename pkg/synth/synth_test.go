package synth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/gqlprobe/pkg/schema"
)

func scalar(name string) schema.TypeRef { return schema.Named(schema.KindScalar, name) }
func object(name string) schema.TypeRef { return schema.Named(schema.KindObject, name) }

// userSchema is the canonical self-referential schema:
//
//	type Query { user(id: ID!): User }
//	type User { id: ID  name: String  friend: User }
func userSchema() *schema.Schema {
	return schema.New("Query", "Mutation", []schema.TypeDef{
		{Name: "Query", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "user", Args: []schema.ArgDef{{Name: "id", Type: schema.NonNull(scalar("ID"))}}, Type: object("User")},
			{Name: "version", Type: scalar("String")},
			{Name: "search", Type: schema.List(schema.Named(schema.KindUnion, "SearchResult"))},
			{Name: "ghost", Type: object("Ghost")},
		}},
		{Name: "Mutation", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "createUser", Args: []schema.ArgDef{{Name: "input", Type: schema.NonNull(schema.Named(schema.KindInputObject, "UserInput"))}}, Type: object("User")},
		}},
		{Name: "User", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "id", Type: scalar("ID")},
			{Name: "name", Type: scalar("String")},
			{Name: "friend", Type: object("User")},
		}},
		{Name: "SearchResult", Kind: schema.KindUnion},
		{Name: "Role", Kind: schema.KindEnum, EnumValues: []string{"ADMIN", "USER"}},
		{Name: "Empty", Kind: schema.KindEnum},
		{Name: "UserInput", Kind: schema.KindInputObject, InputFields: []schema.ArgDef{
			{Name: "name", Type: schema.NonNull(scalar("String"))},
			{Name: "role", Type: schema.NonNull(schema.Named(schema.KindEnum, "Role"))},
			{Name: "nickname", Type: scalar("String")},
		}},
		{Name: "Filter", Kind: schema.KindInputObject, InputFields: []schema.ArgDef{
			{Name: "limit", Type: scalar("Int")},
			{Name: "and", Type: schema.Named(schema.KindInputObject, "Filter")},
		}},
	})
}

func TestValues_Synthesize(t *testing.T) {
	v := NewValues(userSchema(), Options{})

	tests := []struct {
		name string
		arg  schema.ArgDef
		want any
	}{
		{"int", schema.ArgDef{Name: "first", Type: scalar("Int")}, 1},
		{"non-null int", schema.ArgDef{Name: "first", Type: schema.NonNull(scalar("Int"))}, 1},
		{"float", schema.ArgDef{Name: "ratio", Type: scalar("Float")}, 1.1},
		{"boolean", schema.ArgDef{Name: "active", Type: schema.NonNull(scalar("Boolean"))}, true},
		{"id", schema.ArgDef{Name: "id", Type: schema.NonNull(scalar("ID"))}, "123"},
		{"custom int scalar", schema.ArgDef{Name: "amount", Type: scalar("BigInt")}, 1},
		{"custom float scalar", schema.ArgDef{Name: "amount", Type: scalar("MoneyFloat")}, 1.1},
		{"custom bool scalar", schema.ArgDef{Name: "flag", Type: scalar("BoolFlag")}, true},
		{"custom id scalar", schema.ArgDef{Name: "ref", Type: scalar("ObjectID")}, "123"},
		{"string with id keyword", schema.ArgDef{Name: "userId", Type: scalar("String")}, "123"},
		{"string with count keyword", schema.ArgDef{Name: "pageCount", Type: scalar("String")}, 1},
		{"string with order keyword", schema.ArgDef{Name: "sortOrder", Type: scalar("String")}, 1},
		{"plain string", schema.ArgDef{Name: "title", Type: scalar("String")}, "test"},
		{"unknown custom scalar", schema.ArgDef{Name: "when", Type: scalar("DateTime")}, "test"},
		{"enum", schema.ArgDef{Name: "role", Type: schema.Named(schema.KindEnum, "Role")}, EnumSymbol("ADMIN")},
		{"enum without values", schema.ArgDef{Name: "e", Type: schema.Named(schema.KindEnum, "Empty")}, UnknownEnum},
		{"unregistered enum", schema.ArgDef{Name: "e", Type: schema.Named(schema.KindEnum, "Nope")}, UnknownEnum},
		{"malformed wrapper", schema.ArgDef{Name: "x", Type: schema.TypeRef{Kind: schema.KindNonNull}}, "test"},
		{"object as input", schema.ArgDef{Name: "x", Type: object("User")}, "test"},
		{"list of int", schema.ArgDef{Name: "ids", Type: schema.List(scalar("Int"))}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Synthesize(tt.arg))
		})
	}
}

func TestValues_UUID(t *testing.T) {
	v := NewValues(userSchema(), Options{})

	for _, arg := range []schema.ArgDef{
		{Name: "userUuid", Type: schema.NonNull(scalar("ID"))},
		{Name: "accountGUID", Type: scalar("ID")},
		{Name: "ref", Type: scalar("UUID")},
	} {
		got, ok := v.Synthesize(arg).(string)
		require.True(t, ok, arg.Name)
		_, err := uuid.Parse(got)
		assert.NoError(t, err, arg.Name)
		assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, got)
	}
}

func TestValues_UUIDOverride(t *testing.T) {
	v := NewValues(userSchema(), Options{NewUUID: func() string { return "fixed" }})
	assert.Equal(t, "fixed", v.Synthesize(schema.ArgDef{Name: "uuid", Type: scalar("ID")}))
}

func TestValues_InputObject(t *testing.T) {
	v := NewValues(userSchema(), Options{})

	got := v.Synthesize(schema.ArgDef{Name: "input", Type: schema.NonNull(schema.Named(schema.KindInputObject, "UserInput"))})
	assert.Equal(t, map[string]any{"name": "test", "role": EnumSymbol("ADMIN")}, got)
}

func TestValues_RecursiveInputObjectTerminates(t *testing.T) {
	v := NewValues(userSchema(), Options{})

	got := v.Synthesize(schema.ArgDef{Name: "where", Type: schema.Named(schema.KindInputObject, "Filter")})
	assert.Equal(t, map[string]any{"limit": 1, "and": "test"}, got)
}

func TestValues_NameHints(t *testing.T) {
	tests := []struct {
		arg   string
		hints bool
		want  any
	}{
		{"email", true, "test@example.com"},
		{"email", false, "test"},
		{"status", true, "active"},
		{"limit", true, "10"},
		{"page", true, "1"},
		{"userId", true, "123"},
	}

	for _, tt := range tests {
		v := NewValues(userSchema(), Options{NameHints: tt.hints})
		assert.Equal(t, tt.want, v.Synthesize(schema.ArgDef{Name: tt.arg, Type: scalar("String")}), tt.arg)
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "123", `"123"`},
		{"escaped string", "a \"b\"\n<c>", `"a \"b\"\n<c>"`},
		{"int", 1, "1"},
		{"int64", int64(42), "42"},
		{"float", 1.1, "1.1"},
		{"bool", true, "true"},
		{"enum", EnumSymbol("ADMIN"), "ADMIN"},
		{"nil", nil, "null"},
		{"map sorted", map[string]any{"role": EnumSymbol("USER"), "name": "x"}, `{name: "x", role: USER}`},
		{"list", []any{1, "a"}, `[1, "a"]`},
		{"string list", []string{"a", "b"}, `["a", "b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.in))
		})
	}
}

func TestArgs(t *testing.T) {
	args := Args{{Name: "id", Value: "123"}, {Name: "role", Value: EnumSymbol("ADMIN")}}

	assert.Equal(t, `(id: "123", role: ADMIN)`, args.String())
	assert.Equal(t, map[string]any{"id": "123", "role": "ADMIN"}, args.Map())
	assert.Equal(t, "", Args(nil).String())
	assert.Nil(t, Args(nil).Map())
}

func TestPath(t *testing.T) {
	var root *Path
	assert.Equal(t, 0, root.Len())
	assert.False(t, root.Contains("Query"))

	a := root.Push("A")
	left := a.Push("B")
	right := a.Push("C")

	assert.True(t, left.Contains("A"))
	assert.True(t, left.Contains("B"))
	assert.False(t, left.Contains("C"))
	assert.False(t, right.Contains("B"))
	assert.True(t, right.Contains("C"))
	assert.Equal(t, 2, right.Len())
}

func TestSelections_SelfReferenceTerminates(t *testing.T) {
	s := userSchema()
	b := NewSelections(s, NewValues(s, Options{}), Options{})
	user, _ := s.Lookup("User")

	assert.Equal(t, "id name friend { __typename }", b.Build(user, nil, 0))
}

func TestSelections_DepthCap(t *testing.T) {
	s := schema.New("Query", "", []schema.TypeDef{
		{Name: "A", Kind: schema.KindObject, Fields: []schema.FieldDef{{Name: "b", Type: object("B")}}},
		{Name: "B", Kind: schema.KindObject, Fields: []schema.FieldDef{{Name: "c", Type: object("C")}}},
		{Name: "C", Kind: schema.KindObject, Fields: []schema.FieldDef{{Name: "leaf", Type: scalar("Int")}}},
	})
	a, _ := s.Lookup("A")

	shallow := NewSelections(s, NewValues(s, Options{}), Options{MaxDepth: 1})
	assert.Equal(t, "b { c { __typename } }", shallow.Build(a, nil, 0))

	deep := NewSelections(s, NewValues(s, Options{}), Options{MaxDepth: 3})
	assert.Equal(t, "b { c { leaf } }", deep.Build(a, nil, 0))
}

func TestSelections_SiblingsDoNotShareVisited(t *testing.T) {
	s := schema.New("Query", "", []schema.TypeDef{
		{Name: "Post", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "author", Type: object("Person")},
			{Name: "editor", Type: object("Person")},
		}},
		{Name: "Person", Kind: schema.KindObject, Fields: []schema.FieldDef{{Name: "name", Type: scalar("String")}}},
	})
	post, _ := s.Lookup("Post")
	b := NewSelections(s, NewValues(s, Options{}), Options{})

	assert.Equal(t, "author { name } editor { name }", b.Build(post, nil, 0))
}

func TestSelections_SpecialFields(t *testing.T) {
	s := schema.New("Query", "", []schema.TypeDef{
		{Name: "Node", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "__typename", Type: scalar("String")},
			{Name: "result", Type: schema.Named(schema.KindUnion, "Result")},
			{Name: "missing", Type: object("Missing")},
			{Name: "broken", Type: schema.TypeRef{Kind: schema.KindList}},
			{Name: "posts", Args: []schema.ArgDef{
				{Name: "first", Type: schema.NonNull(scalar("Int"))},
				{Name: "after", Type: scalar("String")},
			}, Type: schema.List(object("Post"))},
		}},
		{Name: "Result", Kind: schema.KindUnion},
		{Name: "Post", Kind: schema.KindObject, Fields: []schema.FieldDef{{Name: "title", Type: scalar("String")}}},
		{Name: "Blank", Kind: schema.KindObject},
	})
	node, _ := s.Lookup("Node")
	blank, _ := s.Lookup("Blank")
	b := NewSelections(s, NewValues(s, Options{}), Options{})

	assert.Equal(t, "result { __typename } missing { __typename } posts(first: 1) { title }", b.Build(node, nil, 0))
	assert.Equal(t, "__typename", b.Build(blank, nil, 0))
	assert.Equal(t, "__typename", b.Build(nil, nil, 0))
}

func TestDocuments_Build(t *testing.T) {
	s := userSchema()
	docs := NewDocuments(s, Options{})
	query, _ := s.Root(schema.RootQuery)
	mutation, _ := s.Root(schema.RootMutation)

	doc, err := docs.Build(schema.RootQuery, query.Fields[0])
	require.NoError(t, err)
	assert.Equal(t, `{ user(id: "123") { id name friend { __typename } } }`, doc.Query)
	assert.Equal(t, "query.user", doc.Label)
	assert.Equal(t, "user", doc.Field)
	assert.Equal(t, Args{{Name: "id", Value: "123"}}, doc.Args)

	doc, err = docs.Build(schema.RootQuery, query.Fields[1])
	require.NoError(t, err)
	assert.Equal(t, "{ version }", doc.Query)

	doc, err = docs.Build(schema.RootQuery, query.Fields[2])
	require.NoError(t, err)
	assert.Equal(t, "{ search { __typename } }", doc.Query)

	doc, err = docs.Build(schema.RootQuery, query.Fields[3])
	require.NoError(t, err)
	assert.Equal(t, "{ ghost { __typename } }", doc.Query)

	doc, err = docs.Build(schema.RootMutation, mutation.Fields[0])
	require.NoError(t, err)
	assert.Equal(t, `mutation { createUser(input: {name: "test", role: ADMIN}) { id name friend { __typename } } }`, doc.Query)
	assert.Equal(t, "mutation.createUser", doc.Label)
}

func TestDocuments_BuildArgFree(t *testing.T) {
	s := userSchema()
	query, _ := s.Root(schema.RootQuery)

	doc, err := NewDocuments(s, Options{}).BuildArgFree(schema.RootQuery, query.Fields[0])
	require.NoError(t, err)
	assert.Equal(t, "{ user { id name friend { __typename } } }", doc.Query)
	assert.Empty(t, doc.Args)
}

func TestDocuments_BuildPath(t *testing.T) {
	s := userSchema()
	query, _ := s.Root(schema.RootQuery)
	user, _ := s.Lookup("User")

	doc, err := NewDocuments(s, Options{}).BuildPath(schema.RootQuery, []schema.FieldDef{query.Fields[0], user.Fields[1]})
	require.NoError(t, err)
	assert.Equal(t, "{ user { name } }", doc.Query)
	assert.Equal(t, "query.user.name", doc.Label)
	assert.Equal(t, "name", doc.Field)

	_, err = NewDocuments(s, Options{}).BuildPath(schema.RootQuery, nil)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestDocuments_Errors(t *testing.T) {
	s := userSchema()
	docs := NewDocuments(s, Options{})

	_, err := docs.Build(schema.RootQuery, schema.FieldDef{Name: "broken", Type: schema.TypeRef{Kind: schema.KindNonNull}})
	assert.ErrorIs(t, err, schema.ErrSchemaMalformed)

	_, err = docs.Build(schema.RootQuery, schema.FieldDef{Name: "bad-name", Type: scalar("String")})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}
