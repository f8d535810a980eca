// Package version orders Debian package version strings the way the
// security tracker scraper has always done it: segment by segment on
// integers only, with every non-numeric segment ignored.
//
// This is a heuristic, not a dpkg comparator. It is not transitive and
// does not implement a total order (IsGreater("1.3.7", "1.10.2") is false).
package version

import (
	"regexp"
	"strconv"
	"strings"
)

const delimiter = ";"

var (
	// letters, hyphens and '$'
	noise = regexp.MustCompile(`[a-zA-Z$-]+`)

	separators = []string{":", ".", "+", "~"}
)

// IsGreater reports whether a is judged strictly newer than b.
func IsGreater(a, b string) bool {
	as, bs := Segments(a, b)
	for i := range as {
		if i >= len(bs) {
			continue
		}
		x, err := strconv.Atoi(as[i])
		if err != nil {
			continue
		}
		y, err := strconv.Atoi(bs[i])
		if err != nil {
			continue
		}
		switch {
		case x > y:
			return true
		case x < y:
			return false
		}
	}
	return false
}

// Segments normalizes a and b against each other and splits them into
// comparable segments. A separator present in only one of the strings is
// dropped from it so both keep the same segmentation.
func Segments(a, b string) ([]string, []string) {
	a = noise.ReplaceAllString(a, "")
	b = noise.ReplaceAllString(b, "")
	for _, sep := range separators {
		inA, inB := strings.Contains(a, sep), strings.Contains(b, sep)
		switch {
		case inA && inB:
			a = strings.ReplaceAll(a, sep, delimiter)
			b = strings.ReplaceAll(b, sep, delimiter)
		case inA:
			a = strings.ReplaceAll(a, sep, "")
		case inB:
			b = strings.ReplaceAll(b, sep, "")
		}
	}
	return strings.Split(a, delimiter), strings.Split(b, delimiter)
}
