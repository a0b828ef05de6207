package models

import "time"

// Status is the lifecycle state of a scan. running is the only
// non-terminal value; every other status is final.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCaptcha   Status = "captcha"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCaptcha || s == StatusError || s == StatusCancelled
}

// SearchResult is one organic result entry. Position is the 1-based
// rank within the accumulated scan, assigned at insertion time.
type SearchResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	Snippet  string `json:"snippet"`
}

// KeywordPhrase is an n-gram phrase observed in titles/snippets with
// its occurrence count across the scan.
type KeywordPhrase struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// ScanState is the full record of one scan. The orchestrator is its
// only writer; once Status is terminal the record is immutable.
type ScanState struct {
	ID           string `json:"id"`
	Keyword      string `json:"keyword"`
	Locale       string `json:"locale"`
	TargetDomain string `json:"targetDomain,omitempty"`

	Status      Status `json:"status"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`

	Results   []SearchResult `json:"results"`
	Phrases   map[string]int `json:"phrases,omitempty"`
	Questions []string       `json:"questions,omitempty"`

	RankingPosition int    `json:"rankingPosition,omitempty"`
	RankingURL      string `json:"rankingUrl,omitempty"`

	// CaptchaPage is the 1-based page where a bot challenge aborted
	// the scan; zero otherwise.
	CaptchaPage int `json:"captchaPage,omitempty"`

	// Summary explains non-completed terminal states to the user.
	Summary string `json:"summary,omitempty"`

	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt,omitempty"`
}

// Progress is the lightweight projection served to polling observers.
type Progress struct {
	ID           string  `json:"id"`
	Status       Status  `json:"status"`
	CurrentPage  int     `json:"currentPage"`
	TotalPages   int     `json:"totalPages"`
	ResultsFound int     `json:"resultsFound"`
	Percent      float64 `json:"progress"`
}

// Progress derives the polling projection from the scan state.
func (s *ScanState) Progress() Progress {
	p := Progress{
		ID:           s.ID,
		Status:       s.Status,
		CurrentPage:  s.CurrentPage,
		TotalPages:   s.TotalPages,
		ResultsFound: len(s.Results),
	}
	if s.TotalPages > 0 {
		p.Percent = float64(s.CurrentPage) / float64(s.TotalPages) * 100
	}
	return p
}

// Clone deep-copies the state so readers never share slices or maps
// with the scan's writer.
func (s *ScanState) Clone() *ScanState {
	out := *s
	if s.Results != nil {
		out.Results = append([]SearchResult(nil), s.Results...)
	}
	if s.Phrases != nil {
		out.Phrases = make(map[string]int, len(s.Phrases))
		for k, v := range s.Phrases {
			out.Phrases[k] = v
		}
	}
	if s.Questions != nil {
		out.Questions = append([]string(nil), s.Questions...)
	}
	return &out
}

// Duration is the wall-clock span of the scan, zero while running.
func (s *ScanState) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Keywords returns the accumulated phrases sorted by count descending,
// ties broken alphabetically. Only multi-word phrases are kept.
func (s *ScanState) Keywords() []KeywordPhrase {
	return SortedKeywords(s.Phrases)
}
