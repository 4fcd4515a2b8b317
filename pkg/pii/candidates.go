package pii

import (
	"github.com/getmockd/gqlprobe/pkg/schema"
)

// FieldMatch is a schema field whose name matched the taxonomy.
type FieldMatch struct {
	TypeName  string         `json:"type"`
	FieldName string         `json:"field"`
	Type      schema.TypeRef `json:"field_type"`
	Category  Category       `json:"category"`
	Keyword   string         `json:"keyword"`
	Severity  Severity       `json:"severity"`
}

// FindCandidateFields scans s with the default taxonomy.
func FindCandidateFields(s *schema.Schema) []FieldMatch {
	return DefaultTaxonomy().FindCandidateFields(s)
}

// FindCandidateFields returns one match per object or interface field whose name
// matches t, in schema order. Introspection types and fields are skipped.
func (t *Taxonomy) FindCandidateFields(s *schema.Schema) []FieldMatch {
	var out []FieldMatch
	for _, def := range s.Types() {
		if schema.IsIntrospectionName(def.Name) {
			continue
		}
		if def.Kind != schema.KindObject && def.Kind != schema.KindInterface {
			continue
		}
		for _, f := range def.Fields {
			if schema.IsIntrospectionName(f.Name) {
				continue
			}
			m, ok := t.Match(f.Name)
			if !ok {
				continue
			}
			out = append(out, FieldMatch{
				TypeName:  def.Name,
				FieldName: f.Name,
				Type:      f.Type,
				Category:  m.Category,
				Keyword:   m.Keyword,
				Severity:  m.Severity,
			})
		}
	}
	return out
}
