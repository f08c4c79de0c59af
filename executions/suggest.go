package executions

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var undefinedPattern = regexp.MustCompile(`undefined: (\w+)`)

// suggest returns a hint for errors caused by a misspelled name.
func (c *Controller) suggest(err error) string {
	match := undefinedPattern.FindStringSubmatch(err.Error())
	if match == nil {
		return ""
	}
	if name := closest(match[1], c.Interp.Names()); name != "" {
		return fmt.Sprintf("did you mean %q?", name)
	}
	return ""
}

func closest(target string, candidates []string) string {
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	// typos that are not subsequences
	best := ""
	bestDistance := max(2, len(target)/3) + 1
	for _, candidate := range candidates {
		if d := fuzzy.LevenshteinDistance(target, candidate); d < bestDistance {
			best = candidate
			bestDistance = d
		}
	}
	return best
}
