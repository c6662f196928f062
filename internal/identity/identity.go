// Package identity resolves bearer tokens against the external auth service
// and memoizes the answers for a configurable TTL.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Identity is the JSON object returned by the auth service's "me" route. Its
// shape is owned by the auth service; the accessors below read the fields the
// gateway cares about.
type Identity map[string]any

// ID returns the "id" field as a string. Numeric ids are formatted without a
// fractional part.
func (i Identity) ID() string {
	return stringField(i["id"])
}

// Username returns the "username" field.
func (i Identity) Username() string {
	return stringField(i["username"])
}

// Email returns the "email" field.
func (i Identity) Email() string {
	return stringField(i["email"])
}

// Inactive reports whether the payload carries an explicit "active": false.
// A missing or non-boolean flag is not treated as inactive.
func (i Identity) Inactive() bool {
	active, ok := i["active"].(bool)
	return ok && !active
}

// Scopes returns the caller's scopes from "scopes" (a list) or, when that is
// absent or empty, "scope" (a whitespace-delimited string). Blank entries are
// dropped.
func (i Identity) Scopes() []string {
	if scopes := listField(i["scopes"]); len(scopes) > 0 {
		return scopes
	}
	if raw, ok := i["scope"].(string); ok {
		return strings.Fields(raw)
	}
	return listField(i["scope"])
}

func listField(v any) []string {
	var out []string
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range list {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		out = strings.Fields(list)
	}
	return out
}

func stringField(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// TokenDigest returns a short, stable identifier for a token that is safe to
// put in logs.
func TokenDigest(token string) string {
	sum := sha1.Sum([]byte(token))
	return hex.EncodeToString(sum[:])[:8]
}
