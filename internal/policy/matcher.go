package policy

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Term lists at least this long are matched with an Aho-Corasick automaton;
// shorter ones are cheaper to scan directly.
const autoAhoMinTerms = 8

type termSet struct {
	terms   []string
	matcher *ahocorasick.Matcher
}

func newTermSet(raw []string) termSet {
	terms := normalizeTerms(raw)
	ts := termSet{terms: terms}
	if len(terms) >= autoAhoMinTerms {
		ts.matcher = ahocorasick.NewStringMatcher(terms)
	}
	return ts
}

// find expects already case-folded text.
func (ts termSet) find(text string) (string, bool) {
	if len(ts.terms) == 0 || text == "" {
		return "", false
	}
	if ts.matcher != nil {
		hits := ts.matcher.MatchThreadSafe([]byte(text))
		for _, idx := range hits {
			if idx < 0 || idx >= len(ts.terms) {
				continue
			}
			// confirm the candidate before reporting it
			if strings.Contains(text, ts.terms[idx]) {
				return ts.terms[idx], true
			}
		}
		return "", false
	}
	for _, term := range ts.terms {
		if strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}

func normalizeTerms(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
