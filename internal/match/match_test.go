package match

import (
	"testing"

	"serprank/internal/models"
)

func results(domains ...string) []models.SearchResult {
	out := make([]models.SearchResult, len(domains))
	for i, d := range domains {
		out[i] = models.SearchResult{
			Position: i + 1,
			Domain:   d,
			URL:      "https://" + d + "/page",
		}
	}
	return out
}

func TestMatchFirstInRankOrder(t *testing.T) {
	rs := results("other.com", "test.com", "blog.example.com")
	pos, url, ok := Match(rs, "example.com")
	if !ok {
		t.Fatal("expected a match")
	}
	if pos != 3 {
		t.Errorf("position = %d, want 3", pos)
	}
	if url != "https://blog.example.com/page" {
		t.Errorf("url = %q", url)
	}
}

func TestMatchNoHit(t *testing.T) {
	if pos, _, ok := Match(results("a.com", "b.com"), "missing.org"); ok {
		t.Fatalf("unexpected match at %d", pos)
	}
}

func TestMatchEmptyTarget(t *testing.T) {
	if _, _, ok := Match(results("a.com"), "   "); ok {
		t.Fatal("empty target must not match")
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"https://www.Example.com/":       "example.com",
		"http://example.com/path?q=1#f":  "example.com/path",
		"WWW.EXAMPLE.COM":                "example.com",
		"example.com":                    "example.com",
		"  https://example.com/deep/  ":  "example.com/deep",
		"https://www.example.co.uk/?x=y": "example.co.uk",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchStrategies(t *testing.T) {
	cases := []struct {
		name   string
		result string
		input  string
		want   bool
	}{
		{"exact", "example.com", "example.com", true},
		{"subdomain of input", "blog.example.com", "example.com", true},
		{"input contains result", "example.com", "shop.example.com", true},
		{"same root domain", "app.mysite.org", "www.mysite.org", true},
		{"tld swap", "example.org", "example.com", true},
		{"unrelated", "other.net", "example.com", false},
	}
	for _, tc := range cases {
		_, _, ok := Match(results(tc.result), tc.input)
		if ok != tc.want {
			t.Errorf("%s: match(%q, %q) = %v, want %v", tc.name, tc.result, tc.input, ok, tc.want)
		}
	}
}

func TestMatchByURLSubstring(t *testing.T) {
	rs := []models.SearchResult{{
		Position: 1,
		Domain:   "medium.com",
		URL:      "https://medium.com/@author/why-example.com-is-great",
	}}
	if _, _, ok := Match(rs, "example.com"); !ok {
		t.Fatal("URL substring strategy should match")
	}
}
