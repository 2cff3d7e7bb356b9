package provider

import (
	"strconv"
	"strings"
)

// extractRule is one named identifier probe evaluated against a decoded
// response body. Rules run in priority order; the first one producing a
// non-empty string wins.
type extractRule struct {
	name string
	path []string
}

// identifierRules is the fixed priority order of identifier keys the
// provider has been observed to use across protocol versions and server
// builds.
var identifierRules = []extractRule{
	{name: "profileId", path: []string{"profileId"}},
	{name: "profile_id", path: []string{"profile_id"}},
	{name: "browserId", path: []string{"browserId"}},
	{name: "id", path: []string{"id"}},
	{name: "uuid", path: []string{"uuid"}},
	{name: "data.profileId", path: []string{"data", "profileId"}},
	{name: "data.id", path: []string{"data", "id"}},
	{name: "result.id", path: []string{"result", "id"}},
}

// extractIdentifier probes the decoded create response for the new profile
// identifier. It returns an IdentifierNotFoundError naming every probed key
// when nothing matches.
func extractIdentifier(body map[string]interface{}) (string, error) {
	for _, rule := range identifierRules {
		if v := lookupPath(body, rule.path); v != "" {
			return v, nil
		}
	}

	keys := make([]string, len(identifierRules))
	for i, rule := range identifierRules {
		keys[i] = rule.name
	}
	return "", &IdentifierNotFoundError{Keys: keys}
}

// lookupPath walks nested maps along path and stringifies the leaf. Empty
// string means absent or not a usable scalar.
func lookupPath(body map[string]interface{}, path []string) string {
	current := interface{}(body)
	for _, key := range path {
		m, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = m[key]
		if !ok {
			return ""
		}
	}

	switch v := current.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		// Some server builds return numeric ids.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return ""
	default:
		return ""
	}
}
