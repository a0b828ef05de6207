// Package export renders a finished scan as a downloadable JSON or CSV
// document.
package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"serprank/internal/models"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// MIME returns the content type for the format.
func (f Format) MIME() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Render encodes the scan in the given format.
func Render(s *models.ScanState, f Format) ([]byte, error) {
	if f == FormatCSV {
		return renderCSV(s), nil
	}
	return json.MarshalIndent(s, "", "  ")
}

// renderCSV writes three sections: the ranked results, the extracted
// keyword phrases sorted by count, and the harvested questions. Fields
// are double-quoted with internal quotes doubled; positions and counts
// stay bare.
func renderCSV(s *models.ScanState) []byte {
	var b strings.Builder

	b.WriteString("Position,Title,Domain,URL,Snippet\n")
	for _, r := range s.Results {
		fmt.Fprintf(&b, "%d,%s,%s,%s,%s\n",
			r.Position, quote(r.Title), quote(r.Domain), quote(r.URL), quote(r.Snippet))
	}

	b.WriteString("\n\nExtracted Keywords\nKeyword,Count\n")
	for _, kw := range s.Keywords() {
		fmt.Fprintf(&b, "%s,%d\n", quote(kw.Text), kw.Count)
	}

	b.WriteString("\n\nPeople Also Ask\nQuestion\n")
	for _, q := range s.Questions {
		fmt.Fprintf(&b, "%s\n", quote(q))
	}

	return []byte(b.String())
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

var unsafeFilenameRe = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives a download name from the keyword and scan ID.
func Filename(s *models.ScanState, f Format) string {
	slug := unsafeFilenameRe.ReplaceAllString(strings.ToLower(s.Keyword), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "scan"
	}
	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("ranking-%s-%s.%s", slug, id, f)
}
