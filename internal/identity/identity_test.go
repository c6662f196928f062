package identity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Identity {
	t.Helper()
	var id Identity
	require.NoError(t, json.Unmarshal([]byte(raw), &id))
	return id
}

func TestIdentityAccessors(t *testing.T) {
	id := decode(t, `{"id": 7, "username": "iana", "email": "iana@example.com", "active": true}`)
	assert.Equal(t, "7", id.ID())
	assert.Equal(t, "iana", id.Username())
	assert.Equal(t, "iana@example.com", id.Email())
	assert.False(t, id.Inactive())

	assert.Equal(t, "", Identity{}.ID())
}

func TestInactiveRequiresExplicitFalse(t *testing.T) {
	assert.True(t, decode(t, `{"active": false}`).Inactive())
	assert.False(t, decode(t, `{}`).Inactive())
	assert.False(t, decode(t, `{"active": "false"}`).Inactive())
}

func TestScopes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"list", `{"scopes": ["videos:read", " ", "videos:write"]}`, []string{"videos:read", "videos:write"}},
		{"string", `{"scope": "videos:read  videos:write"}`, []string{"videos:read", "videos:write"}},
		{"list wins", `{"scopes": ["a"], "scope": "b"}`, []string{"a"}},
		{"empty list falls back", `{"scopes": [], "scope": "b"}`, []string{"b"}},
		{"scopes as string", `{"scopes": "a b"}`, []string{"a", "b"}},
		{"missing", `{}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decode(t, tc.raw).Scopes())
		})
	}
}

func TestTokenDigest(t *testing.T) {
	d := TokenDigest("secret-token")
	assert.Len(t, d, 8)
	assert.Equal(t, d, TokenDigest("secret-token"))
	assert.NotEqual(t, d, TokenDigest("other-token"))
	assert.NotContains(t, d, "secret")
}
