package rewrite

import (
	"slices"

	"github.com/dlclark/regexp2"
)

// specifierPattern matches a printf conversion not escaped by a preceding
// '%'. Group 2 is the conversion itself.
var specifierPattern = regexp2.MustCompile(`(?<!%)(%%)*(%[^%]*?[diuoxXfFeEgGaAcCsSpn])`, regexp2.None)

// ExtractSpecifiers returns the printf conversions in s in order. Escaped
// percents are skipped, and a conversion interrupted by another '%' or the
// end of s does not count.
func ExtractSpecifiers(s string) []string {
	var out []string
	m, err := specifierPattern.FindStringMatch(s)
	for err == nil && m != nil {
		out = append(out, m.GroupByNumber(2).String())
		m, err = specifierPattern.FindNextMatch(m)
	}
	return out
}

// SameSpecifiers reports whether b uses exactly the conversions of a, in
// the same order.
func SameSpecifiers(a, b string) bool {
	return slices.Equal(ExtractSpecifiers(a), ExtractSpecifiers(b))
}
