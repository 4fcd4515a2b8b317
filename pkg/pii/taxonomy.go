// Package pii flags schema fields and response keys whose names suggest personal data,
// and plans argument-free probes that read those fields.
//
// Matching is a heuristic on names only. A match means "worth looking at", never
// "contains personal data"; false positives are expected.
package pii

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Category groups related keywords.
type Category string

// Categories, in match priority order.
const (
	CategoryIdentity   Category = "identity"
	CategoryContact    Category = "contact"
	CategoryFinancial  Category = "financial"
	CategoryCredential Category = "credential"
	CategoryBiometric  Category = "biometric"
)

// Severity rates how damaging exposure of a category would be.
type Severity string

// Severities, most severe first.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rule is one category of the taxonomy.
type Rule struct {
	Category Category
	Severity Severity
	Keywords []string
}

// DefaultRules is the built-in taxonomy.
var DefaultRules = []Rule{
	{CategoryIdentity, SeverityHigh, []string{
		"firstname", "lastname", "middlename", "fullname", "username", "name",
		"birthdate", "dateofbirth", "birthday", "dob", "age",
		"ssn", "socialsecurity", "taxid", "tin", "nationalid", "idnumber", "govtid",
		"passport", "driverlicense", "license",
	}},
	{CategoryContact, SeverityMedium, []string{
		"email", "telephone", "phone", "mobile", "fax",
		"ipaddress", "macaddress", "address", "street", "city", "zip", "postal",
		"deviceid", "social",
	}},
	{CategoryFinancial, SeverityHigh, []string{
		"creditcard", "cardnumber", "card", "cc", "payment",
		"bankaccount", "accountnumber", "iban", "routing", "swift",
	}},
	{CategoryCredential, SeverityCritical, []string{
		"password", "token", "session", "login",
	}},
	{CategoryBiometric, SeverityHigh, []string{
		"biometric", "health",
	}},
}

// shortKeyword is the length up to which a keyword must match a whole name token
// when whole-token matching is on.
const shortKeyword = 3

// Taxonomy matches names against rules. It is safe for concurrent use.
type Taxonomy struct {
	rules       []Rule
	wholeTokens bool
}

// NewTaxonomy returns a taxonomy over rules. Keywords are case folded; rule order
// decides which category wins when several match.
func NewTaxonomy(rules []Rule) *Taxonomy {
	t := &Taxonomy{rules: make([]Rule, len(rules))}
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = fold(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		t.rules[i] = Rule{Category: r.Category, Severity: r.Severity, Keywords: kws}
	}
	return t
}

// DefaultTaxonomy returns a taxonomy over DefaultRules.
func DefaultTaxonomy() *Taxonomy {
	return NewTaxonomy(DefaultRules)
}

// WithKeywords returns a copy of t with extra keywords appended to category.
// Unknown categories are added last with SeverityMedium.
func (t *Taxonomy) WithKeywords(category Category, keywords ...string) *Taxonomy {
	rules := make([]Rule, 0, len(t.rules)+1)
	found := false
	for _, r := range t.rules {
		if r.Category == category {
			r.Keywords = append(append([]string(nil), r.Keywords...), keywords...)
			found = true
		}
		rules = append(rules, r)
	}
	if !found {
		rules = append(rules, Rule{Category: category, Severity: SeverityMedium, Keywords: keywords})
	}
	out := NewTaxonomy(rules)
	out.wholeTokens = t.wholeTokens
	return out
}

// WithWholeTokens returns a copy of t in which keywords of three characters or
// fewer only match a whole name token, so "age" flags userAge but not message.
// By default every keyword matches as a substring.
func (t *Taxonomy) WithWholeTokens() *Taxonomy {
	return &Taxonomy{rules: t.rules, wholeTokens: true}
}

// Match is a taxonomy hit.
type Match struct {
	Category Category
	Severity Severity
	Keyword  string
}

// Match returns the first rule with a keyword contained in name, compared case
// insensitively.
func (t *Taxonomy) Match(name string) (Match, bool) {
	folded := fold(name)
	var tokens []string
	for _, r := range t.rules {
		for _, kw := range r.Keywords {
			if !t.wholeTokens || len(kw) > shortKeyword {
				if strings.Contains(folded, kw) {
					return Match{r.Category, r.Severity, kw}, true
				}
				continue
			}
			if tokens == nil {
				tokens = tokenize(name)
			}
			for _, tok := range tokens {
				if tok == kw {
					return Match{r.Category, r.Severity, kw}, true
				}
			}
		}
	}
	return Match{}, false
}

// MatchKey reports whether a response key looks sensitive. Meta keys such as
// __typename never match.
func (t *Taxonomy) MatchKey(key string) bool {
	if strings.HasPrefix(key, "__") {
		return false
	}
	_, ok := t.Match(key)
	return ok
}

// fold applies Unicode case folding. A Caser is stateful, so one is made per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// tokenize splits an identifier on case changes, digits and separators, and folds
// every token: "userSSN_v2" becomes [user ssn v 2].
func tokenize(name string) []string {
	runes := []rune(name)
	var out []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			out = append(out, fold(string(runes[start:end])))
		}
		start = -1
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsDigit(r) != unicode.IsDigit(prev):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return out
}
