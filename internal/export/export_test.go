package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serprank/internal/models"
)

func sampleScan() *models.ScanState {
	return &models.ScanState{
		ID:      "3f2a9c1e-0000-0000-0000-000000000000",
		Keyword: "Best Coffee Beans",
		Status:  models.StatusCompleted,
		Results: []models.SearchResult{
			{Position: 1, Title: `A "Test"`, Domain: "example.com", URL: "https://example.com/a", Snippet: "First snippet."},
			{Position: 2, Title: "Plain Title", Domain: "other.org", URL: "https://other.org/b", Snippet: "Second, with a comma."},
		},
		Phrases:   map[string]int{"coffee beans": 4, "cold brew": 2, "solo": 9},
		Questions: []string{"What is cold brew?", "How do beans stay fresh?"},
	}
}

func TestRenderCSV(t *testing.T) {
	body, err := Render(sampleScan(), FormatCSV)
	require.NoError(t, err)
	csv := string(body)

	assert.True(t, strings.HasPrefix(csv, "Position,Title,Domain,URL,Snippet\n"))
	assert.Contains(t, csv, `1,"A ""Test""","example.com","https://example.com/a","First snippet."`)
	assert.Contains(t, csv, `2,"Plain Title","other.org","https://other.org/b","Second, with a comma."`)

	assert.Contains(t, csv, "\n\nExtracted Keywords\nKeyword,Count\n")
	assert.Contains(t, csv, `"coffee beans",4`)
	assert.NotContains(t, csv, "solo")

	assert.Contains(t, csv, "\n\nPeople Also Ask\nQuestion\n")
	assert.Contains(t, csv, `"What is cold brew?"`)

	// Higher counts come first in the keyword section.
	assert.Less(t, strings.Index(csv, "coffee beans"), strings.Index(csv, "cold brew"))
}

func TestRenderJSON(t *testing.T) {
	body, err := Render(sampleScan(), FormatJSON)
	require.NoError(t, err)

	var decoded models.ScanState
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, sampleScan().Results, decoded.Results)
	assert.Equal(t, models.StatusCompleted, decoded.Status)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestMIME(t *testing.T) {
	assert.Equal(t, "text/csv", FormatCSV.MIME())
	assert.Equal(t, "application/json", FormatJSON.MIME())
}

func TestFilename(t *testing.T) {
	name := Filename(sampleScan(), FormatCSV)
	assert.Equal(t, "ranking-best-coffee-beans-3f2a9c1e.csv", name)

	empty := &models.ScanState{ID: "abcd1234xyz", Keyword: "!!!"}
	assert.Equal(t, "ranking-scan-abcd1234.json", Filename(empty, FormatJSON))
}
