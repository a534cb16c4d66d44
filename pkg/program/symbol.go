package program

import (
	"sort"
	"strings"
)

// FunctionSymbol identifies one function in the traced binary. Identity is
// the pair (raw name, address); two FunctionSymbols with the same raw name
// but different addresses are distinct (overloads, templates, statics with
// colliding demangled names).
type FunctionSymbol struct {
	// Name is the demangled, human-readable name.
	Name string

	// RawName is the mangled symbol table name.
	RawName string

	// Address is the function's starting virtual address.
	Address uint64

	// Length is the function's size in bytes.
	Length uint64

	// File and Line are the source location of the function's entry
	// address, resolved from DWARF line info. Both are empty/zero when
	// unavailable (e.g. for Dynamic/PLT-imported symbols).
	File string
	Line int
}

// searchResultCap bounds how many matches Search returns, large enough to
// drive a UI picker without flooding it.
const searchResultCap = 200

// Search returns the FunctionSymbols whose demangled name matches query,
// ranked score-descending then name-ascending for stable ordering.
//
// A query beginning with "=" performs an exact substring match (after
// stripping the "=") instead of fuzzy scoring.
func (p *Program) Search(query string) []FunctionSymbol {
	if strings.HasPrefix(query, "=") {
		return p.searchExact(strings.TrimPrefix(query, "="))
	}

	return p.searchFuzzy(query)
}

func (p *Program) searchExact(needle string) []FunctionSymbol {
	var matches []FunctionSymbol

	for _, sym := range p.symbolsByAddr {
		if strings.Contains(sym.Name, needle) {
			matches = append(matches, sym)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Name < matches[j].Name
	})

	return capResults(matches)
}

type scoredSymbol struct {
	sym   FunctionSymbol
	score int
}

func (p *Program) searchFuzzy(query string) []FunctionSymbol {
	if query == "" {
		var all []FunctionSymbol
		for _, sym := range p.symbolsByAddr {
			all = append(all, sym)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

		return capResults(all)
	}

	scored := make([]scoredSymbol, 0, len(p.symbolsByAddr))
	for _, sym := range p.symbolsByAddr {
		score, ok := fuzzyScore(query, sym.Name)
		if !ok {
			continue
		}
		scored = append(scored, scoredSymbol{sym: sym, score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}

		return scored[i].sym.Name < scored[j].sym.Name
	})

	matches := make([]FunctionSymbol, len(scored))
	for i, s := range scored {
		matches[i] = s.sym
	}

	return capResults(matches)
}

func capResults(matches []FunctionSymbol) []FunctionSymbol {
	if len(matches) > searchResultCap {
		return matches[:searchResultCap]
	}

	return matches
}

// fuzzyScore implements a Smith-Waterman-like subsequence alignment: query
// characters must appear in haystack in order (not necessarily contiguous),
// scoring consecutive-match runs and match position higher so that tighter,
// earlier matches outrank loose, late ones. Returns ok=false when query is
// not a subsequence of haystack at all.
func fuzzyScore(query, haystack string) (int, bool) {
	q := strings.ToLower(query)
	h := strings.ToLower(haystack)

	const (
		scoreMatch        = 16
		scoreConsecutive  = 8
		scoreWordBoundary = 4
		penaltyGapPerRune = 1
	)

	qi, hi := 0, 0
	score := 0
	lastMatch := -2
	matched := 0

	for qi < len(q) && hi < len(h) {
		if q[qi] == h[hi] {
			gain := scoreMatch
			if hi == lastMatch+1 {
				gain += scoreConsecutive
			}
			if hi == 0 || isBoundary(h[hi-1]) {
				gain += scoreWordBoundary
			}
			score += gain
			lastMatch = hi
			matched++
			qi++
			hi++

			continue
		}
		hi++
		score -= penaltyGapPerRune
	}

	if qi != len(q) {
		return 0, false
	}

	return score, true
}

func isBoundary(b byte) bool {
	switch b {
	case '_', '.', ':', '/', ' ', '(', ')', '<', '>':
		return true
	default:
		return false
	}
}
