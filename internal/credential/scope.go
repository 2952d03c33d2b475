package credential

import "strings"

// ScopeAllows reports whether a credential scoped to scopeType/scopePath
// covers a request against resourcePath. Folder and workspace scopes
// match by directory-respecting prefix; file scopes require an exact
// match. A workspace-scoped key (scopePath "" or "/") covers everything.
func ScopeAllows(scopeType, scopePath, resourcePath string) bool {
	scopePath = normalizeScopePath(scopePath)
	resourcePath = normalizeScopePath(resourcePath)

	switch scopeType {
	case "file":
		return scopePath == resourcePath
	case "folder", "workspace":
		if scopePath == "" {
			return true
		}
		if resourcePath == scopePath {
			return true
		}
		return strings.HasPrefix(resourcePath, scopePath+"/")
	default:
		return false
	}
}

// normalizeScopePath trims a leading/trailing slash so prefix
// comparisons treat "docs" and "docs/" identically and never match a
// sibling like "docs-archive" against a scope of "docs".
func normalizeScopePath(p string) string {
	p = strings.Trim(p, "/")
	return p
}
