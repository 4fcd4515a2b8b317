package engine

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/gqlprobe/pkg/schema"
	"github.com/getmockd/gqlprobe/pkg/synth"
)

// Mode selects which operations are probed.
type Mode string

// Scan modes.
const (
	ModeChecker Mode = "checker"
	ModePII     Mode = "pii"
	ModeBoth    Mode = "both"
)

// ParseMode parses a mode name. The empty string means ModeChecker.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeChecker, nil
	case ModeChecker, ModePII, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want checker, pii or both)", s)
	}
}

func (m Mode) checker() bool { return m == ModeChecker || m == ModeBoth || m == "" }
func (m Mode) pii() bool     { return m == ModePII || m == ModeBoth }

// Operation is a root field selected for probing.
type Operation struct {
	Kind  schema.RootKind
	Field schema.FieldDef
}

// Label returns the operation label, e.g. "query.user".
func (o Operation) Label() string {
	return synth.Label(o.Kind, o.Field.Name)
}

// Operations lists the query root fields followed by the mutation root fields.
func Operations(s *schema.Schema) []Operation {
	var ops []Operation
	for _, kind := range []schema.RootKind{schema.RootQuery, schema.RootMutation} {
		root, ok := s.Root(kind)
		if !ok {
			continue
		}
		for _, f := range root.Fields {
			if schema.IsIntrospectionName(f.Name) {
				continue
			}
			ops = append(ops, Operation{Kind: kind, Field: f})
		}
	}
	return ops
}

// Filter selects operations by label with glob patterns. An empty Include
// matches everything; Exclude wins over Include.
type Filter struct {
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Validate reports the first malformed pattern.
func (f Filter) Validate() error {
	for _, p := range append(append([]string(nil), f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid operation pattern %q", p)
		}
	}
	return nil
}

// Allows reports whether label passes the filter.
func (f Filter) Allows(label string) bool {
	for _, p := range f.Exclude {
		if match(p, label) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, p := range f.Include {
		if match(p, label) {
			return true
		}
	}
	return false
}

func match(pattern, label string) bool {
	ok, err := doublestar.Match(pattern, label)
	return err == nil && ok
}
