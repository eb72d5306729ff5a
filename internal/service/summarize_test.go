package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExtractiveSummarySmallCorpusUnchanged(t *testing.T) {
	for _, text := range []string{
		"",
		"no punctuation at all",
		"One. Two! Three?",
		"  Leading space. Then another one.  ",
	} {
		assert.Equal(t, text, ExtractiveSummary(text, 0.6))
	}
}

func TestExtractiveSummaryKeepsOriginalOrder(t *testing.T) {
	units := []string{
		"Filler words here.",
		"The parser builds an abstract syntax tree from tokens.",
		"More filler.",
		"The parser reports syntax errors with positions.",
		"Okay.",
	}
	out := ExtractiveSummary(strings.Join(units, " "), 0.6)

	kept := splitUnits(out)
	assert.Len(t, kept, 3)

	last := -1
	for _, k := range kept {
		idx := indexOf(units, k)
		assert.GreaterOrEqual(t, idx, 0, "unit %q not from input", k)
		assert.Greater(t, idx, last, "units out of order")
		last = idx
	}
}

func TestExtractiveSummaryIsDeterministic(t *testing.T) {
	text := "Alpha beta gamma. Beta gamma delta. Gamma delta epsilon. Delta epsilon zeta. Epsilon zeta eta."
	assert.Equal(t, ExtractiveSummary(text, 0.6), ExtractiveSummary(text, 0.6))
	assert.Equal(t, ExtractiveSummary(text, 0), ExtractiveSummary(text, 0.6))
}

func TestExtractTopUnits(t *testing.T) {
	text := "A cat sat. The dog ran far away. Birds fly high above. Fish swim deep below. Done."
	assert.Len(t, splitUnits(ExtractTopUnits(text, 2)), 2)
	assert.Equal(t, text, ExtractTopUnits(text, 10))
	assert.Empty(t, ExtractTopUnits(text, 0))
}

func TestSplitUnitsKeepsTail(t *testing.T) {
	assert.Equal(t, []string{"First.", "Second!", "tail text"}, splitUnits("First. Second! tail text"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "go"}, tokenize("Hello, World! a Go."))
}

func TestBM25RareTermsScoreHigher(t *testing.T) {
	scores := bm25Scores([]string{
		"common common.",
		"common common.",
		"common unique.",
		"common common.",
	})
	assert.Greater(t, scores[2], scores[0])
	assert.Equal(t, scores[0], scores[1])
}

func TestCompressToFit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("This sentence mentions configuration and routing details. ")
	}
	out := CompressToFit(b.String(), 500, 0.6)
	assert.LessOrEqual(t, utf8.RuneCountInString(out), 500)
	assert.Equal(t, "short", CompressToFit("short", 500, 0.6))
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
