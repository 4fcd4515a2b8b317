package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/gqlprobe/pkg/schema"
	"github.com/getmockd/gqlprobe/pkg/synth"
)

func TestTaxonomy_Match(t *testing.T) {
	tax := DefaultTaxonomy()

	tests := []struct {
		name     string
		want     bool
		category Category
		keyword  string
	}{
		{"emailAddress", true, CategoryContact, "email"},
		{"EMAIL", true, CategoryContact, "email"},
		{"widgetCount", false, "", ""},
		{"firstName", true, CategoryIdentity, "firstname"},
		{"username", true, CategoryIdentity, "username"},
		{"userAge", true, CategoryIdentity, "age"},
		{"message", true, CategoryIdentity, "age"},
		{"page", true, CategoryIdentity, "age"},
		{"customer_ssn", true, CategoryIdentity, "ssn"},
		{"customerssn", true, CategoryIdentity, "ssn"},
		{"userSSNHash", true, CategoryIdentity, "ssn"},
		{"userdob", true, CategoryIdentity, "dob"},
		{"zipCode", true, CategoryContact, "zip"},
		{"zipcode", true, CategoryContact, "zip"},
		{"gzipped", true, CategoryContact, "zip"},
		{"faxnumber", true, CategoryContact, "fax"},
		{"creditCardNumber", true, CategoryFinancial, "creditcard"},
		{"ccLast4", true, CategoryFinancial, "cc"},
		{"ccnumber", true, CategoryFinancial, "cc"},
		{"accessToken", true, CategoryFinancial, "cc"},
		{"refreshToken", true, CategoryCredential, "token"},
		{"passwordHash", true, CategoryCredential, "password"},
		{"healthRecord", true, CategoryBiometric, "health"},
		{"id", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := tax.Match(tt.name)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.category, m.Category)
			assert.Equal(t, tt.keyword, m.Keyword)
		})
	}
}

func TestTaxonomy_WholeTokens(t *testing.T) {
	tax := DefaultTaxonomy().WithWholeTokens()

	tests := []struct {
		name    string
		want    bool
		keyword string
	}{
		{"userAge", true, "age"},
		{"message", false, ""},
		{"page", false, ""},
		{"customer_ssn", true, "ssn"},
		{"userSSNHash", true, "ssn"},
		{"customerssn", false, ""},
		{"gzipped", false, ""},
		{"accessToken", true, "token"},
		{"emailAddress", true, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := tax.Match(tt.name)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.keyword, m.Keyword)
		})
	}

	m, ok := tax.WithKeywords(CategoryFinancial, "pin").Match("cardPin")
	require.True(t, ok)
	assert.Equal(t, "card", m.Keyword)
	_, ok = tax.WithKeywords(CategoryCredential, "pin").Match("spinner")
	assert.False(t, ok, "whole-token matching survives WithKeywords")
}

func TestTaxonomy_FirstCategoryWins(t *testing.T) {
	m, ok := DefaultTaxonomy().Match("userNameEmail")
	require.True(t, ok)
	assert.Equal(t, CategoryIdentity, m.Category)
	assert.Equal(t, SeverityHigh, m.Severity)
}

func TestTaxonomy_MatchKey(t *testing.T) {
	tax := DefaultTaxonomy()
	assert.True(t, tax.MatchKey("email"))
	assert.False(t, tax.MatchKey("__typename"))
	assert.False(t, tax.MatchKey("widgetCount"))
}

func TestTaxonomy_WithKeywords(t *testing.T) {
	tax := DefaultTaxonomy().WithKeywords(CategoryFinancial, "Salary")
	m, ok := tax.Match("baseSalary")
	require.True(t, ok)
	assert.Equal(t, CategoryFinancial, m.Category)

	tax = tax.WithKeywords("location", "latitude")
	m, ok = tax.Match("latitude")
	require.True(t, ok)
	assert.Equal(t, Category("location"), m.Category)
	assert.Equal(t, SeverityMedium, m.Severity)

	_, ok = DefaultTaxonomy().Match("baseSalary")
	assert.False(t, ok, "the receiver is not modified")
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"user", "ssn", "v", "2"}, tokenize("userSSN_v2"))
	assert.Equal(t, []string{"ssn", "number"}, tokenize("SSNNumber"))
	assert.Equal(t, []string{"email"}, tokenize("email"))
	assert.Empty(t, tokenize("__"))
}

func scalar(name string) schema.TypeRef { return schema.Named(schema.KindScalar, name) }
func object(name string) schema.TypeRef { return schema.Named(schema.KindObject, name) }

func shopSchema() *schema.Schema {
	return schema.New("Query", "", []schema.TypeDef{
		{Name: "Query", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "me", Type: object("Account")},
			{Name: "order", Args: []schema.ArgDef{{Name: "id", Type: schema.NonNull(scalar("ID"))}}, Type: object("Order")},
			{Name: "supportEmail", Type: scalar("String")},
		}},
		{Name: "Account", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "emailAddress", Type: scalar("String")},
			{Name: "widgetCount", Type: scalar("Int")},
			{Name: "profile", Type: object("Profile")},
		}},
		{Name: "Profile", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "phone", Type: schema.NonNull(scalar("String"))},
		}},
		{Name: "Order", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "cardNumber", Type: scalar("String")},
		}},
		{Name: "OrderInput", Kind: schema.KindInputObject, InputFields: []schema.ArgDef{
			{Name: "email", Type: scalar("String")},
		}},
		{Name: "__Type", Kind: schema.KindObject, Fields: []schema.FieldDef{
			{Name: "name", Type: scalar("String")},
		}},
	})
}

func TestFindCandidateFields(t *testing.T) {
	matches := FindCandidateFields(shopSchema())

	type key struct{ typ, field string }
	got := map[key]Category{}
	for _, m := range matches {
		got[key{m.TypeName, m.FieldName}] = m.Category
	}

	assert.Equal(t, map[key]Category{
		{"Query", "supportEmail"}:   CategoryContact,
		{"Account", "emailAddress"}: CategoryContact,
		{"Profile", "phone"}:        CategoryContact,
		{"Order", "cardNumber"}:     CategoryFinancial,
	}, got)
}

func TestPlanner_Plan(t *testing.T) {
	s := shopSchema()
	planner := NewPlanner(s, synth.NewDocuments(s, synth.Options{}), 0)

	tests := []struct {
		name  string
		match FieldMatch
		query string
		label string
	}{
		{"root field", FieldMatch{TypeName: "Query", FieldName: "supportEmail"}, "{ supportEmail }", "query.supportEmail"},
		{"one hop", FieldMatch{TypeName: "Account", FieldName: "emailAddress"}, "{ me { emailAddress } }", "query.me.emailAddress"},
		{"two hops", FieldMatch{TypeName: "Profile", FieldName: "phone"}, "{ me { profile { phone } } }", "query.me.profile.phone"},
		{"only reachable with args", FieldMatch{TypeName: "Order", FieldName: "cardNumber"}, "{ cardNumber }", "query.Order.cardNumber?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := planner.Plan(tt.match)
			require.NoError(t, err)
			assert.Equal(t, tt.query, doc.Query)
			assert.Equal(t, tt.label, doc.Label)
			assert.Empty(t, doc.Args)
		})
	}
}

func TestPlanner_PathLimit(t *testing.T) {
	s := shopSchema()
	planner := NewPlanner(s, synth.NewDocuments(s, synth.Options{}), 2)

	doc, err := planner.Plan(FieldMatch{TypeName: "Profile", FieldName: "phone"})
	require.NoError(t, err)
	assert.Equal(t, "{ phone }", doc.Query)
	assert.Equal(t, "query.Profile.phone?", doc.Label)
}

func TestPlanner_Unknown(t *testing.T) {
	s := shopSchema()
	planner := NewPlanner(s, synth.NewDocuments(s, synth.Options{}), 0)

	_, err := planner.Plan(FieldMatch{TypeName: "Nope", FieldName: "email"})
	assert.ErrorIs(t, err, schema.ErrSchemaMalformed)

	_, err = planner.Plan(FieldMatch{TypeName: "Account", FieldName: "nope"})
	assert.ErrorIs(t, err, schema.ErrSchemaMalformed)
}
