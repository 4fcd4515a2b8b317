// Package synth turns schema operations into GraphQL request documents.
//
// Three pieces cooperate, all synchronous and side-effect free:
//
//   - Values picks a plausible literal for an argument from its type and name.
//   - Selections builds a bounded field selection for an object type.
//   - Documents combines both into a single-field query or mutation document.
//
// Typical use:
//
//	docs := synth.NewDocuments(s, synth.Options{MaxDepth: 3})
//	doc, err := docs.Build(schema.RootQuery, field)
//	// doc.Query == `{ user(id: "123") { id name friend { __typename } } }`
//
// Synthesis is a heuristic. It never fails on a well-formed schema: when no confident
// value or selection exists it falls back to the generic literal "test" or the
// __typename meta field. Documents reports ErrInvalidDocument when the produced text
// does not parse, which only happens for schemas with malformed names.
package synth
