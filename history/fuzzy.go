package history

import (
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const matchTimeout = time.Second

type candidate struct {
	width int
	index int
	entry string
}

// search returns the entries of collection containing the runes of query in
// order, case-insensitively. Entries are ranked by the width of their most
// compact match, then by their position in collection.
//
// The subsequence is wrapped in a lookahead so every overlapping match is
// visited.
func search(query string, collection []string) []string {
	re := compile(query)

	var found []candidate
	for i, entry := range collection {
		width, ok := narrowest(re, entry)
		if ok {
			found = append(found, candidate{width: width, index: i, entry: entry})
		}
	}

	sort.SliceStable(found, func(a, b int) bool {
		if found[a].width != found[b].width {
			return found[a].width < found[b].width
		}
		return found[a].index < found[b].index
	})

	results := make([]string, len(found))
	for i, c := range found {
		results[i] = c.entry
	}
	return results
}

func compile(query string) *regexp2.Regexp {
	parts := make([]string, 0, len(query))
	for _, r := range query {
		parts = append(parts, regexp2.Escape(string(r)))
	}

	re := regexp2.MustCompile("(?=("+strings.Join(parts, ".*?")+"))", regexp2.IgnoreCase|regexp2.Singleline)
	re.MatchTimeout = matchTimeout
	return re
}

func narrowest(re *regexp2.Regexp, entry string) (int, bool) {
	best, ok := 0, false

	m, err := re.FindStringMatch(entry)
	for err == nil && m != nil {
		width := len([]rune(m.GroupByNumber(1).String()))
		if !ok || width < best {
			best, ok = width, true
		}
		m, err = re.FindNextMatch(m)
	}
	return best, ok
}
