package store

import (
	"sort"
	"strings"
	"unicode"
)

// Rank scores the memories against the query and returns up to limit
// memories with a positive score, most relevant and then most recent first.
// The score is the share of distinct query tokens found in the memory.
func Rank(query string, list []*Memory, limit int) []*Memory {
	if limit <= 0 {
		limit = DefaultLimit
	}

	qt := tokenize(query)
	if len(qt) == 0 {
		return nil
	}

	var res []*Memory
	for _, m := range list {
		mt := tokenize(m.Content)
		found := 0
		for t := range qt {
			if _, ok := mt[t]; ok {
				found++
			}
		}
		if found == 0 {
			continue
		}
		c := *m
		c.Score = float64(found) / float64(len(qt))
		res = append(res, &c)
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Score != res[j].Score {
			return res[i].Score > res[j].Score
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	if len(res) > limit {
		res = res[:limit]
	}
	return res
}

// tokenize returns lower-cased words. Ideographic characters,
// written without spaces, are tokens on their own.
func tokenize(s string) map[string]struct{} {
	tokens := map[string]struct{}{}
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens[word.String()] = struct{}{}
			word.Reset()
		}
	}

	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r):
			flush()
			tokens[string(r)] = struct{}{}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
