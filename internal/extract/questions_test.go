package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKeepsRealQuestions(t *testing.T) {
	out := Clean([]string{"What is the best way to learn SEO?"})
	require.Len(t, out, 1)
	assert.Equal(t, "What is the best way to learn SEO?", out[0])
}

func TestCleanRejectsCodeFragments(t *testing.T) {
	rejected := []string{
		"function(){ return x; }?",
		"var config = loadSettings() ? a : b?",
		`el.setAttribute("class", name)?`,
		`What is \x41\x42\x43 doing here?`,
		"if (a == b) then what happens next?",
	}
	for _, q := range rejected {
		assert.Empty(t, Clean([]string{q}), "should reject %q", q)
	}
}

func TestCleanRejectsURLsAndNoise(t *testing.T) {
	rejected := []string{
		"Visit https://example.com for more?",
		"Is www.example.org the right site?",
		"WHATISTHISALLCAPS question here?",
		"single?",
		"12345 67890?",
	}
	for _, q := range rejected {
		assert.Empty(t, Clean([]string{q}), "should reject %q", q)
	}
}

func TestCleanStripsPrefixes(t *testing.T) {
	out := Clean([]string{
		"› What makes espresso bitter?",
		"1. Why does coffee taste sour?",
		"Jan 15, 2024 How should beans be stored?",
	})
	require.Len(t, out, 3)
	for _, q := range out {
		assert.Regexp(t, `^[A-Za-z]`, q)
		assert.NotContains(t, q, "2024")
	}
}

func TestCleanDropsSubstringDuplicates(t *testing.T) {
	out := Clean([]string{
		"What exactly is search engine optimization?",
		"is search engine optimization?",
	})
	require.Len(t, out, 1)
	assert.Equal(t, "What exactly is search engine optimization?", out[0])
}

func TestCleanSortsByLength(t *testing.T) {
	out := Clean([]string{
		"Why is cold brew less acidic than regular coffee?",
		"What is cold brew?",
		"How is cold brew different?",
	})
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, len(out[i-1]), len(out[i]))
	}
}

func TestQuestionsFromWidget(t *testing.T) {
	doc := parseHTML(t, `<html><body>
		<div class="related-question-pair">What is the best way to learn SEO?</div>
		<div class="related-question-pair">How long does SEO take to work?</div>
		<script>function(){ return x; }?</script>
	</body></html>`)

	out := Questions(doc)
	assert.Contains(t, out, "What is the best way to learn SEO?")
	assert.Contains(t, out, "How long does SEO take to work?")
	for _, q := range out {
		assert.NotContains(t, q, "function(")
	}
}

func TestQuestionsFromAriaLabels(t *testing.T) {
	doc := parseHTML(t, `<html><body>
		<div aria-expanded="false" aria-label="Does grind size change coffee flavor?"></div>
	</body></html>`)

	assert.Contains(t, Questions(doc), "Does grind size change coffee flavor?")
}

func TestQuestionsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 100; i < 140; i++ {
		fmt.Fprintf(&b, "<h3>What is interesting fact number %d about coffee brewing?</h3>", i)
	}
	b.WriteString("</body></html>")

	out := Questions(parseHTML(t, b.String()))
	assert.Len(t, out, maxQuestionsPerPage)
}

func TestQuestionsEmptyPage(t *testing.T) {
	assert.Empty(t, Questions(parseHTML(t, `<html><body><p>plain text only</p></body></html>`)))
}
