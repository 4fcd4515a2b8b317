package probe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyFunc func(string) bool

func (f keyFunc) MatchKey(k string) bool { return f(k) }

var emailKeys = keyFunc(func(k string) bool { return strings.Contains(strings.ToLower(k), "email") })

func TestClassifier_Classify(t *testing.T) {
	c, err := NewClassifier(WithSensitiveKeys(emailKeys))
	require.NoError(t, err)

	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		want        Outcome
		wantKeys    []string
	}{
		{"data", 200, "application/json", `{"data":{"user":{"id":"1","name":"a"}}}`, OutcomeSuccess, nil},
		{"json with charset", 200, "application/json; charset=utf-8", `{"data":{"ok":true}}`, OutcomeSuccess, nil},
		{"graphql errors", 200, "application/json", `{"errors":[{"message":"boom"}],"data":null}`, OutcomeGraphQLError, nil},
		{"empty errors list", 200, "application/json", `{"errors":[],"data":{"a":1}}`, OutcomeSuccess, nil},
		{"empty body", 200, "application/json", ``, OutcomeGraphQLError, nil},
		{"html", 200, "text/html", `<html></html>`, OutcomeSuccess, nil},
		{"binary", 200, "application/octet-stream", `xx`, OutcomeGraphQLError, nil},
		{"plain text", 200, "text/plain", `ok`, OutcomeSuccess, nil},
		{"server error", 500, "application/json", `{"data":{"a":1}}`, OutcomeHTTPError, nil},
		{"not found", 404, "text/plain", `nope`, OutcomeHTTPError, nil},
		{"sensitive keys", 200, "application/json",
			`{"data":{"users":[{"email":"a@b.c","contactEmail":"x"},{"email":"d@e.f"}]}}`, OutcomePII, []string{"contactEmail", "email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keys := c.Classify(tt.status, tt.contentType, []byte(tt.body))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}

func TestClassifier_NoMatcherNeverReportsPII(t *testing.T) {
	c, err := NewClassifier()
	require.NoError(t, err)

	got, keys := c.Classify(200, "application/json", []byte(`{"data":{"email":"a@b.c"}}`))
	assert.Equal(t, OutcomeSuccess, got)
	assert.Nil(t, keys)
}

func TestClassifier_SuccessRule(t *testing.T) {
	c, err := NewClassifier(WithSuccessRule(`hasData && status == 200`))
	require.NoError(t, err)

	got, _ := c.Classify(200, "application/json", []byte(`{"errors":[{"message":"partial"}],"data":{"a":1}}`))
	assert.Equal(t, OutcomeSuccess, got)

	got, _ = c.Classify(200, "application/json", []byte(`{"errors":[{"message":"x"}]}`))
	assert.Equal(t, OutcomeGraphQLError, got)

	c, err = NewClassifier(WithSuccessRule(`errors == 0 && contentType contains "json" && len(body) > 2`))
	require.NoError(t, err)
	got, _ = c.Classify(200, "application/json", []byte(`{"data":{}}`))
	assert.Equal(t, OutcomeSuccess, got)

	_, err = NewClassifier(WithSuccessRule(`status +`))
	assert.Error(t, err)

	_, err = NewClassifier(WithSuccessRule(`status`))
	assert.Error(t, err, "non-bool rules are rejected at compile time")
}

func TestOutcome_Succeeded(t *testing.T) {
	assert.True(t, OutcomeSuccess.Succeeded())
	assert.True(t, OutcomePII.Succeeded())
	assert.False(t, OutcomeGraphQLError.Succeeded())
	assert.False(t, OutcomeHTTPError.Succeeded())
	assert.False(t, OutcomeTransportError.Succeeded())
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt([]byte("short")))
	assert.Len(t, excerpt([]byte(strings.Repeat("a", 500))), ExcerptLimit)

	multi := strings.Repeat("a", ExcerptLimit-1) + "é"
	got := excerpt([]byte(multi + "tail"))
	assert.Equal(t, strings.Repeat("a", ExcerptLimit-1), got)
}
