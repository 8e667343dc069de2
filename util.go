package embedb

import "strings"

// foldCase is the single place that decides what "case-insensitive" means
// across string indexes and string filters: unicode-aware lowercasing,
// then byte-wise comparison. Open question in spec.md §9, resolved in
// SPEC_FULL.md in favor of preserving the source's byte-wise-after-fold
// behavior rather than unicode collation.
func foldCase(s string) string {
	return strings.ToLower(s)
}
