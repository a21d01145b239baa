package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps s for a substring ILIKE match with its wildcards escaped.
func LikePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
