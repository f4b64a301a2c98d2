package pgutils

import "strings"

// EscapeLike escapes LIKE/ILIKE metacharacters in user-supplied search text
// so it is always treated as a literal substring.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Substring wraps a search term in % wildcards after escaping it.
func Substring(s string) string {
	return "%" + EscapeLike(s) + "%"
}

// Prefix appends a % wildcard to a search term after escaping it.
func Prefix(s string) string {
	return EscapeLike(s) + "%"
}
