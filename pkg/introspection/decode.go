package introspection

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/getmockd/gqlprobe/pkg/schema"
)

// ErrSchemaFetch is returned when an endpoint's schema cannot be obtained.
var ErrSchemaFetch = errors.New("schema fetch failed")

//go:embed envelope.json
var envelopeSchema string

var compileEnvelope = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("envelope.json", strings.NewReader(envelopeSchema)); err != nil {
		return nil, fmt.Errorf("failed to add envelope schema: %w", err)
	}
	return compiler.Compile("envelope.json")
})

type response struct {
	Data struct {
		Schema struct {
			QueryType    *named     `json:"queryType"`
			MutationType *named     `json:"mutationType"`
			Types        []fullType `json:"types"`
		} `json:"__schema"`
	} `json:"data"`
}

type named struct {
	Name string `json:"name"`
}

type fullType struct {
	Kind        string       `json:"kind"`
	Name        *string      `json:"name"`
	Fields      []field      `json:"fields"`
	InputFields []inputValue `json:"inputFields"`
	EnumValues  []named      `json:"enumValues"`
}

type field struct {
	Name string       `json:"name"`
	Args []inputValue `json:"args"`
	Type *typeRef     `json:"type"`
}

type inputValue struct {
	Name string   `json:"name"`
	Type *typeRef `json:"type"`
}

type typeRef struct {
	Kind   string   `json:"kind"`
	Name   *string  `json:"name"`
	OfType *typeRef `json:"ofType"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Decode parses an introspection response body into a Schema.
// Every failure wraps ErrSchemaFetch.
func Decode(body []byte) (*schema.Schema, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: response is not JSON: %v", ErrSchemaFetch, err)
	}

	if msg := rejection(raw); msg != "" {
		return nil, fmt.Errorf("%w: introspection rejected: %s", ErrSchemaFetch, msg)
	}

	envelope, err := compileEnvelope()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaFetch, err)
	}
	if err := envelope.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaFetch, firstCause(err))
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaFetch, err)
	}

	s := resp.Data.Schema
	mutation := ""
	if s.MutationType != nil {
		mutation = s.MutationType.Name
	}

	defs := make([]schema.TypeDef, 0, len(s.Types))
	for _, t := range s.Types {
		defs = append(defs, t.toDef())
	}
	return schema.New(s.QueryType.Name, mutation, defs), nil
}

// rejection returns the first GraphQL error message when the response carries
// errors and no data, as servers with introspection disabled do.
func rejection(raw any) string {
	obj, ok := raw.(map[string]any)
	if !ok || obj["data"] != nil {
		return ""
	}
	errs, ok := obj["errors"].([]any)
	if !ok || len(errs) == 0 {
		return ""
	}
	if first, ok := errs[0].(map[string]any); ok {
		if msg, ok := first["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return "server returned errors"
}

// firstCause reduces a validation error to its first leaf cause.
func firstCause(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	loc := verr.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("invalid introspection response at %s: %s", loc, verr.Message)
}

func (t fullType) toDef() schema.TypeDef {
	def := schema.TypeDef{
		Name: deref(t.Name),
		Kind: schema.Kind(t.Kind),
	}
	for _, f := range t.Fields {
		fd := schema.FieldDef{Name: f.Name, Type: f.Type.toRef(0)}
		for _, a := range f.Args {
			fd.Args = append(fd.Args, a.toArg())
		}
		def.Fields = append(def.Fields, fd)
	}
	for _, in := range t.InputFields {
		def.InputFields = append(def.InputFields, in.toArg())
	}
	for _, ev := range t.EnumValues {
		def.EnumValues = append(def.EnumValues, ev.Name)
	}
	return def
}

func (v inputValue) toArg() schema.ArgDef {
	return schema.ArgDef{Name: v.Name, Type: v.Type.toRef(0)}
}

// toRef converts a wire reference. Chains longer than the registry accepts are cut
// one level past the limit so that resolving them still reports the overflow.
func (r *typeRef) toRef(depth int) schema.TypeRef {
	if r == nil {
		return schema.TypeRef{}
	}
	ref := schema.TypeRef{Kind: schema.Kind(r.Kind), Name: deref(r.Name)}
	if r.OfType != nil && depth <= schema.MaxWrapperDepth {
		of := r.OfType.toRef(depth + 1)
		ref.OfType = &of
	}
	return ref
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
