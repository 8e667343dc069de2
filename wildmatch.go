// Fast wildcard matching for the StringMatches filter variant. No pack
// library provides a glob/wildcard matcher for arbitrary strings (as
// opposed to file paths, which is what filepath.Match targets and which
// rejects patterns path.Match would reject); this is a small, self-contained
// predicate with no natural third-party surface, so it stays on stdlib
// runes (see DESIGN.md).
package embedb

// wildMatch reports whether s matches pattern, where '*' matches any run
// of runes (including none) and '?' matches exactly one rune.
func wildMatch(s, pattern string) bool {
	return wildMatchRunes([]rune(s), []rune(pattern))
}

func wildMatchRunes(s, p []rune) bool {
	var si, pi int
	var starIdx = -1
	var matchIdx int

	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == s[si]):
			si++
			pi++
		case pi < len(p) && p[pi] == '*':
			starIdx = pi
			matchIdx = si
			pi++
		case starIdx != -1:
			pi = starIdx + 1
			matchIdx++
			si = matchIdx
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}

	return pi == len(p)
}
