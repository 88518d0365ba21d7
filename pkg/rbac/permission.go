package rbac

import "strings"

const (
	// Wildcard grants every permission, or every permission under a
	// namespace when used as a suffix ("members.*").
	Wildcard = "*"

	// Delimiter separates permission namespaces ("members.invite").
	Delimiter = "."
)

// Matches reports whether pattern grants permission.
//
//	Matches("members.invite", "members.invite") // true
//	Matches("members.invite", "members.*")      // true
//	Matches("members.invite", "*")              // true
//	Matches("billing.read", "members.*")        // false
func Matches(permission, pattern string) bool {
	if permission == pattern || pattern == Wildcard {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, Delimiter+Wildcard); ok {
		return strings.HasPrefix(permission, prefix+Delimiter)
	}
	return false
}

func grants(patterns []string, permission string) bool {
	for _, p := range patterns {
		if Matches(permission, p) {
			return true
		}
	}
	return false
}
