package synth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// EnumSymbol is an enum value. It renders bare, unlike strings.
type EnumSymbol string

// ArgValue is one synthesized argument.
type ArgValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Args is an ordered argument list, in declaration order.
type Args []ArgValue

// Map returns the arguments keyed by name. Enum symbols become plain strings.
func (a Args) Map() map[string]any {
	if len(a) == 0 {
		return nil
	}
	m := make(map[string]any, len(a))
	for _, arg := range a {
		m[arg.Name] = plain(arg.Value)
	}
	return m
}

// String renders the argument list as it appears after a field name,
// e.g. `(id: "123", role: ADMIN)`. An empty list renders as "".
func (a Args) String() string {
	if len(a) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, arg := range a {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(arg.Name)
		b.WriteString(": ")
		writeLiteral(&b, arg.Value)
	}
	b.WriteByte(')')
	return b.String()
}

// Literal renders v in GraphQL value syntax. Strings are quoted, enum symbols and
// numbers are bare, maps become input objects with unquoted keys in sorted order,
// and slices become lists.
func Literal(v any) string {
	var b strings.Builder
	writeLiteral(&b, v)
	return b.String()
}

func writeLiteral(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case EnumSymbol:
		b.WriteString(string(x))
	case string:
		b.WriteString(quote(x))
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case int:
		b.WriteString(strconv.Itoa(x))
	case int32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case uint:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(x, 10))
	case float32:
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	case json.Number:
		b.WriteString(x.String())
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			writeLiteral(b, x[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, item)
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quote(item))
		}
		b.WriteByte(']')
	default:
		b.WriteString(quote(fmt.Sprint(x)))
	}
}

// quote produces a GraphQL string literal. JSON string escaping is a subset of
// GraphQL's, so the encoder output is valid as-is.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func plain(v any) any {
	switch x := v.(type) {
	case EnumSymbol:
		return string(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = plain(val)
		}
		return out
	default:
		return v
	}
}
