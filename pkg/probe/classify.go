package probe

import (
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// KeyMatcher decides whether a response key names sensitive data.
type KeyMatcher interface {
	MatchKey(key string) bool
}

var (
	errorsPath = jp.MustParseString("$.errors")
	dataPath   = jp.MustParseString("$.data")
)

// Classifier maps an HTTP response to an Outcome.
type Classifier struct {
	sensitive KeyMatcher
	rule      *vm.Program
	ruleText  string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier) error

// WithSensitiveKeys marks successful responses whose data contains a key accepted
// by m as OutcomePII.
func WithSensitiveKeys(m KeyMatcher) ClassifierOption {
	return func(c *Classifier) error {
		c.sensitive = m
		return nil
	}
}

// WithSuccessRule replaces the built-in success test with an expression. The
// expression sees status (int), body (string), contentType (string), errors (number
// of GraphQL errors) and hasData (bool), and must evaluate to a bool.
func WithSuccessRule(rule string) ClassifierOption {
	return func(c *Classifier) error {
		if strings.TrimSpace(rule) == "" {
			return nil
		}
		program, err := expr.Compile(rule, expr.Env(ruleEnv{}), expr.AsBool())
		if err != nil {
			return fmt.Errorf("invalid success rule %q: %w", rule, err)
		}
		c.rule = program
		c.ruleText = rule
		return nil
	}
}

// ruleEnv is the environment visible to success rules.
type ruleEnv struct {
	Status      int    `expr:"status"`
	Body        string `expr:"body"`
	ContentType string `expr:"contentType"`
	Errors      int    `expr:"errors"`
	HasData     bool   `expr:"hasData"`
}

// NewClassifier builds a Classifier.
func NewClassifier(opts ...ClassifierOption) (*Classifier, error) {
	c := &Classifier{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Classify returns the outcome for a response and, for OutcomePII, the sensitive keys
// found under data in sorted order.
func (c *Classifier) Classify(status int, contentType string, body []byte) (Outcome, []string) {
	if status != http.StatusOK {
		return OutcomeHTTPError, nil
	}

	var doc any
	if len(body) > 0 {
		if parsed, err := oj.Parse(body); err == nil {
			doc = parsed
		}
	}
	errCount := countErrors(doc)
	data := first(dataPath.Get(doc))

	ok, err := c.succeeded(ruleEnv{
		Status:      status,
		Body:        string(body),
		ContentType: contentType,
		Errors:      errCount,
		HasData:     data != nil,
	})
	if err != nil || !ok {
		return OutcomeGraphQLError, nil
	}

	if c.sensitive != nil && data != nil {
		if keys := c.sensitiveKeys(data); len(keys) > 0 {
			return OutcomePII, keys
		}
	}
	return OutcomeSuccess, nil
}

func (c *Classifier) succeeded(env ruleEnv) (bool, error) {
	if c.rule == nil {
		return readableType(env.ContentType) && len(strings.TrimSpace(env.Body)) > 0 && env.Errors == 0, nil
	}
	out, err := expr.Run(c.rule, env)
	if err != nil {
		return false, fmt.Errorf("success rule %q: %w", c.ruleText, err)
	}
	b, _ := out.(bool)
	return b, nil
}

// readableType accepts JSON and plain-text responses.
func readableType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.Contains(mediaType, "json") || strings.HasPrefix(mediaType, "text/")
}

func countErrors(doc any) int {
	switch errs := first(errorsPath.Get(doc)).(type) {
	case nil:
		return 0
	case []any:
		return len(errs)
	default:
		return 1
	}
}

func first(values []any) any {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

func (c *Classifier) sensitiveKeys(data any) []string {
	seen := map[string]struct{}{}
	var walk func(v any)
	walk = func(v any) {
		switch x := v.(type) {
		case map[string]any:
			for k, val := range x {
				if c.sensitive.MatchKey(k) {
					seen[k] = struct{}{}
				}
				walk(val)
			}
		case []any:
			for _, item := range x {
				walk(item)
			}
		}
	}
	walk(data)

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
