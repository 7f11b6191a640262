package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndMatchLiteral(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/ping", "ping-route"))

	res, ok := m.Match("GET", "/ping")
	require.True(t, ok)
	assert.Equal(t, "ping-route", res.Store)
	assert.Empty(t, res.Params)
}

func TestMatchParam(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/users/:id", "show-user"))

	res, ok := m.Match("GET", "/users/42")
	require.True(t, ok)
	assert.Equal(t, "show-user", res.Store)
	assert.Equal(t, "42", res.Params["id"])
}

func TestParamNeverMatchesSlash(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/users/:id", "show-user"))

	_, ok := m.Match("GET", "/users/42/extra")
	assert.False(t, ok)
}

func TestTrailingSlashInsignificant(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/users/:id/", "show-user"))

	res, ok := m.Match("GET", "/users/42")
	require.True(t, ok)
	assert.Equal(t, "42", res.Params["id"])

	res, ok = m.Match("GET", "/users/42/")
	require.True(t, ok)
	assert.Equal(t, "42", res.Params["id"])
}

func TestLastRegistrationWins(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/users/:id", "first"))
	require.NoError(t, m.Register("GET", "/users/:userId", "second"))

	res, ok := m.Match("GET", "/users/7")
	require.True(t, ok)
	assert.Equal(t, "second", res.Store)
	assert.Equal(t, "7", res.Params["userId"])
	assert.NotContains(t, res.Params, "id")
}

func TestLiteralPreferredOverParamWithBacktrack(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/a/b/c", "literal"))
	require.NoError(t, m.Register("GET", "/a/:x/d", "param"))

	res, ok := m.Match("GET", "/a/b/c")
	require.True(t, ok)
	assert.Equal(t, "literal", res.Store)

	res, ok = m.Match("GET", "/a/b/d")
	require.True(t, ok)
	assert.Equal(t, "param", res.Store)
	assert.Equal(t, "b", res.Params["x"])
}

func TestMethodMissingNoMatch(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/ping", "ping-route"))

	_, ok := m.Match("POST", "/ping")
	assert.False(t, ok)
}

func TestOptionsSentinel(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/ping", "ping-route"))

	res, ok := m.Match("OPTIONS", "/ping")
	require.True(t, ok)
	assert.True(t, res.EmptyRoute)
	assert.Nil(t, res.Store)
}

func TestOptionsWithRegisteredHandlerIsNotSentinel(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/ping", "ping-route"))
	require.NoError(t, m.Register("OPTIONS", "/ping", "preflight"))

	res, ok := m.Match("OPTIONS", "/ping")
	require.True(t, ok)
	assert.False(t, res.EmptyRoute)
	assert.Equal(t, "preflight", res.Store)
}

func TestInvalidRoute(t *testing.T) {
	m := New()
	assert.Error(t, m.Register("GET", "", "x"))
	assert.Error(t, m.Register("GET", "/users/:1bad", "x"))
}

func TestURLDecodedParam(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("GET", "/files/:name", "file-route"))

	res, ok := m.Match("GET", "/files/a%20b")
	require.True(t, ok)
	assert.Equal(t, "a b", res.Params["name"])
}
