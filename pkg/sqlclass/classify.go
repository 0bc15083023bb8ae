// Package sqlclass canonicalizes SQL text and classifies it as read-only
// or write, extracting the table names a statement affects or reads. It
// is deliberately a handful of regexes, not a parser: spec.md is explicit
// that this module is not a general-purpose SQL parser.
package sqlclass

import (
	"regexp"
	"strings"
)

// Canonicalize joins SQL fragments with single spaces (if more than one
// was supplied), collapses runs of whitespace to one space, and trims
// the ends. This is the "canonical SQL" used as a cache key and fed to
// the classifier regexes below.
func Canonicalize(fragments ...string) string {
	joined := strings.Join(fragments, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(joined, " "))
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// modifierPredicate matches a statement that performs a write or other
// side-effecting operation. It fires on any of the listed keywords
// appearing as a whole word at the start of the string or after
// whitespace, or on a call to any pg_* administrative function.
var modifierPredicate = regexp.MustCompile(
	`(?i)(^|\s)(INSERT|DELETE|UPDATE|LOCK|VACUUM|TRANSACTION|COMMIT|ROLLBACK|REINDEX|TRUNCATE|CREATE|ALTER|DROP|SET)(\s|$)|pg_\w+\(`,
)

// IsModifier reports whether canonical SQL p is a write/side-effecting
// statement per SPEC_FULL.md §4.6.1 (the LOCK keyword matches here but
// extracts no affected table, per the spec's own resolution of that
// ambiguity).
func IsModifier(p string) bool {
	return modifierPredicate.MatchString(p)
}

// affectedTable captures the lowercase identifier immediately following
// one of the table-affecting write keywords.
var affectedTable = regexp.MustCompile(
	`(?i)\b(?:UPDATE|INSERT\s+INTO|DELETE\s+FROM|TRUNCATE|ALTER\s+TABLE|DROP\s+TABLE)\s+([a-z_][a-z0-9_]*)`,
)

// AffectedTables extracts the table(s) a write statement modifies.
// Statements with no recognizable target (bare CREATE, SET, VACUUM, ...)
// yield an empty slice, matching spec.md's explicit DDL example.
func AffectedTables(p string) []string {
	m := affectedTable.FindStringSubmatch(p)
	if m == nil {
		return nil
	}
	return []string{m[1]}
}

// readTable captures lowercase identifiers following FROM or JOIN.
var readTable = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-z_][a-z0-9_]*)`)

// ReadTables extracts every table a read statement references via FROM
// or JOIN, in order of appearance, deduplicated.
func ReadTables(p string) []string {
	matches := readTable.FindAllStringSubmatch(p, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tables = append(tables, m[1])
	}
	return tables
}

// nowToken matches the NOW() function call preceded by a word boundary
// (nothing is required after the closing parenthesis), so that queries
// referencing it are never cached (their result would go stale
// instantly).
var nowToken = regexp.MustCompile(`(?i)\bNOW\(\)`)

// ReferencesNow reports whether canonical SQL p calls NOW().
func ReferencesNow(p string) bool {
	return nowToken.MatchString(p)
}

// IsReadOnly reports whether canonical SQL p's first token,
// case-insensitively, is SELECT — the classification Retry uses to
// decide whether a statement is safe to retry.
func IsReadOnly(p string) bool {
	trimmed := strings.TrimLeft(p, " \t\r\n")
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "SELECT")
}

// ParamsKey joins parameter values with a separator unlikely to appear in
// ordinary parameter text, producing a stable secondary cache key for a
// given canonical SQL string.
func ParamsKey(params []any) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = paramToString(p)
	}
	return strings.Join(parts, "\x1f")
}

func paramToString(p any) string {
	switch v := p.(type) {
	case nil:
		return "\x00nil"
	case string:
		return v
	default:
		return toStringFallback(v)
	}
}
