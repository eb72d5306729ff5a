package service

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75

	// DefaultCompressionRatio is the share of units kept by ExtractiveSummary.
	DefaultCompressionRatio = 0.6
	// minScoredUnits is the smallest corpus worth scoring; smaller inputs pass through.
	minScoredUnits = 4
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)
	nonWordPattern  = regexp.MustCompile(`[^\w\s]`)
)

// ExtractiveSummary keeps the best-scoring ratio of sentence units under BM25
// and returns them in their original order, joined by single spaces.
// A ratio outside (0,1] uses DefaultCompressionRatio. Inputs of three units or
// fewer are returned unchanged.
func ExtractiveSummary(text string, ratio float64) string {
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultCompressionRatio
	}
	units := splitUnits(text)
	if len(units) < minScoredUnits {
		return text
	}
	return selectUnits(units, int(math.Ceil(float64(len(units))*ratio)))
}

// ExtractTopUnits is ExtractiveSummary with a fixed unit count instead of a ratio.
func ExtractTopUnits(text string, n int) string {
	units := splitUnits(text)
	if len(units) < minScoredUnits || n >= len(units) {
		return text
	}
	if n <= 0 {
		return ""
	}
	return selectUnits(units, n)
}

// CompressToFit shrinks text with BM25 selection until it is at most maxChars characters,
// then hard-truncates if sentence selection alone cannot get there.
func CompressToFit(text string, maxChars int, ratio float64) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	out := ExtractiveSummary(text, ratio)
	for i := 0; i < 8 && utf8.RuneCountInString(out) > maxChars; i++ {
		next := ExtractiveSummary(out, ratio)
		if next == out {
			break
		}
		out = next
	}
	return truncateRunes(out, maxChars)
}

// splitUnits returns trimmed sentence units; trailing text without terminal punctuation
// becomes a final unit.
func splitUnits(text string) []string {
	locs := sentencePattern.FindAllStringIndex(text, -1)
	units := make([]string, 0, len(locs)+1)
	end := 0
	for _, loc := range locs {
		if u := strings.TrimSpace(text[loc[0]:loc[1]]); u != "" {
			units = append(units, u)
		}
		end = loc[1]
	}
	if tail := strings.TrimSpace(text[end:]); tail != "" {
		units = append(units, tail)
	}
	return units
}

func tokenize(unit string) []string {
	fields := strings.Fields(nonWordPattern.ReplaceAllString(strings.ToLower(unit), " "))
	terms := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			terms = append(terms, f)
		}
	}
	return terms
}

// bm25Scores scores every unit against the corpus formed by all units.
func bm25Scores(units []string) []float64 {
	corpus := make([][]string, len(units))
	df := make(map[string]int)
	total := 0
	for i, u := range units {
		corpus[i] = tokenize(u)
		total += len(corpus[i])
		seen := make(map[string]struct{}, len(corpus[i]))
		for _, term := range corpus[i] {
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				df[term]++
			}
		}
	}

	n := float64(len(units))
	avgLen := float64(total) / n
	scores := make([]float64, len(units))
	for i, terms := range corpus {
		tf := make(map[string]int, len(terms))
		for _, term := range terms {
			tf[term]++
		}
		norm := 1.0
		if avgLen > 0 {
			norm = 1 - bm25B + bm25B*float64(len(terms))/avgLen
		}
		for term, freq := range tf {
			d := float64(df[term])
			idf := math.Log((n-d+0.5)/(d+0.5) + 1)
			f := float64(freq)
			scores[i] += idf * (f * (bm25K1 + 1)) / (f + bm25K1*norm)
		}
	}
	return scores
}

func selectUnits(units []string, keep int) string {
	scores := bm25Scores(units)
	order := make([]int, len(units))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	chosen := order[:keep]
	sort.Ints(chosen)
	parts := make([]string, len(chosen))
	for i, idx := range chosen {
		parts[i] = units[idx]
	}
	return strings.Join(parts, " ")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
