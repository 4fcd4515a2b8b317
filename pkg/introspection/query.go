// Package introspection fetches a GraphQL endpoint's type system and decodes it
// into a schema.Schema.
package introspection

// Query is the introspection document sent to every endpoint. Type references are
// expanded eight levels deep, enough for types such as [[String!]!]!.
const Query = `query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    types { ...FullType }
  }
}

fragment FullType on __Type {
  kind
  name
  fields(includeDeprecated: true) {
    name
    args { ...InputValue }
    type { ...TypeRef }
  }
  inputFields { ...InputValue }
  enumValues(includeDeprecated: true) { name }
}

fragment InputValue on __InputValue {
  name
  type { ...TypeRef }
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType {
        kind
        name
        ofType {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
              ofType {
                kind
                name
                ofType {
                  kind
                  name
                }
              }
            }
          }
        }
      }
    }
  }
}`
