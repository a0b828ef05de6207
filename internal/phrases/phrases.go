package phrases

import (
	"regexp"
	"strings"
)

const (
	MinWords = 2
	MaxWords = 10

	minPhraseLen = 6
	maxPhraseLen = 150

	// Phrases whose average word length falls below this are noise
	// (strings of articles, initials, fragments).
	minAvgWordLen = 2.5

	// Fraction of purely numeric words above which a phrase is
	// treated as a data fragment rather than language.
	maxNumericRatio = 0.7
)

// Reduced stop word list: a phrase is rejected only when BOTH its
// first and last word are stop words. Single stop-word edges pass.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "was": {},
	"are": {}, "be": {}, "it": {}, "this": {}, "that": {},
}

// Only exact matches of these boilerplate phrases are rejected.
var fillerPhrases = map[string]struct{}{
	"click here":          {},
	"privacy policy":      {},
	"terms of service":    {},
	"all rights reserved": {},
}

var (
	junkCharRe = regexp.MustCompile(`[^\w\s'-]`)
	spacesRe   = regexp.MustCompile(`\s+`)
	numericRe  = regexp.MustCompile(`^\d+$`)
)

// Extract slides windows of MinWords..MaxWords over the normalized word
// sequence and returns every span that survives the junk filters.
// Quadratic in input length; page text is bounded so this is fine.
func Extract(text string) []string {
	if len(text) < 5 {
		return nil
	}

	clean := junkCharRe.ReplaceAllString(strings.ToLower(text), " ")
	clean = strings.TrimSpace(spacesRe.ReplaceAllString(clean, " "))
	words := strings.Fields(clean)

	var out []string
	for length := MinWords; length <= MaxWords; length++ {
		for i := 0; i+length <= len(words); i++ {
			span := words[i : i+length]
			if keep(span) {
				out = append(out, strings.Join(span, " "))
			}
		}
	}
	return out
}

// Accumulate feeds the extracted phrases of text into a shared counting
// map. The same n-gram surfacing from both title and snippet of one
// result counts twice: frequency approximates salience, not uniqueness.
func Accumulate(text string, counts map[string]int) {
	for _, p := range Extract(text) {
		counts[p]++
	}
}

func keep(span []string) bool {
	_, firstStop := stopWords[span[0]]
	_, lastStop := stopWords[span[len(span)-1]]
	if firstStop && lastStop {
		return false
	}

	total := 0
	numeric := 0
	for _, w := range span {
		total += len(w)
		if numericRe.MatchString(w) {
			numeric++
		}
	}
	if float64(total)/float64(len(span)) < minAvgWordLen {
		return false
	}
	if float64(numeric) > float64(len(span))*maxNumericRatio {
		return false
	}

	phrase := strings.Join(span, " ")
	if _, filler := fillerPhrases[phrase]; filler {
		return false
	}
	return len(phrase) >= minPhraseLen && len(phrase) <= maxPhraseLen
}
