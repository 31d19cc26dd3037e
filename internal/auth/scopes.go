package auth

// RequiredScopes are always requested: the id_token email claim and the
// userinfo email are what identity resolution reads.
var RequiredScopes = []string{"openid", "email"}

// MergeScopes returns RequiredScopes followed by any extra provider scopes,
// without duplicates.
func MergeScopes(extra []string) []string {
	seen := make(map[string]bool, len(RequiredScopes)+len(extra))
	scopes := make([]string, 0, len(RequiredScopes)+len(extra))
	for _, s := range append(append([]string{}, RequiredScopes...), extra...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		scopes = append(scopes, s)
	}
	return scopes
}
