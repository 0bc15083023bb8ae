package sqlclass

import "fmt"

// toStringFallback renders a non-string, non-nil parameter for inclusion
// in a params key. fmt.Sprint is adequate here: the result only needs to
// be stable and distinguishing, not human-facing.
func toStringFallback(v any) string {
	return fmt.Sprintf("%v", v)
}
