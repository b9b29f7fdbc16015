// Package parser turns a raw query string into a QueryPlan. Words are
// analyzed with the indexing analyzer so query terms match indexed terms.
// AND and OR switch the combination mode for the whole query; NOT (or a
// leading '-') excludes the word that follows it.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/tokenizer"
)

type QueryType int

const (
	QueryAND QueryType = iota
	QueryOR
)

func (t QueryType) String() string {
	if t == QueryOR {
		return "OR"
	}
	return "AND"
}

// QueryPlan lists each analyzed term once, in first-seen order. A term that
// is both required and excluded only appears in ExcludeTerms.
type QueryPlan struct {
	Terms        []string
	Type         QueryType
	ExcludeTerms []string
	RawQuery     string
}

// Empty reports whether the plan has no positive term and so matches nothing.
func (p *QueryPlan) Empty() bool { return len(p.Terms) == 0 }

func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Type:         QueryAND,
		RawQuery:     query,
	}
	analyzer := tokenizer.Default()
	included := make(map[string]bool)
	excluded := make(map[string]bool)
	negateNext := false
	for _, word := range strings.Fields(query) {
		switch strings.ToUpper(word) {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			negateNext = true
			continue
		}
		negate := negateNext
		negateNext = false
		if rest, ok := strings.CutPrefix(word, "-"); ok {
			word, negate = rest, true
		}
		term, ok := analyzer.Term(word)
		if !ok {
			continue
		}
		if negate {
			if !excluded[term] {
				excluded[term] = true
				plan.ExcludeTerms = append(plan.ExcludeTerms, term)
			}
		} else if !included[term] {
			included[term] = true
			plan.Terms = append(plan.Terms, term)
		}
	}
	if len(excluded) > 0 {
		kept := plan.Terms[:0]
		for _, term := range plan.Terms {
			if !excluded[term] {
				kept = append(kept, term)
			}
		}
		plan.Terms = kept
	}
	return plan
}
