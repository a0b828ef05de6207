// Package scan drives the page-by-page ranking scan: it paces fetches
// like a human paging through results, accumulates results and derived
// data, and owns the scan state machine. One scan runs at a time.
package scan

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"serprank/internal/browser"
	"serprank/internal/extract"
	"serprank/internal/match"
	"serprank/internal/models"
	"serprank/internal/phrases"
	"serprank/internal/store"
	"serprank/pkg/logger"
)

// ErrScanInProgress is returned by Start while another scan is running.
var ErrScanInProgress = errors.New("a scan is already in progress")

// Phrases are harvested from the first phrasePages pages only; deeper
// pages add noise faster than signal.
const phrasePages = 3

// Request describes one scan to run.
type Request struct {
	Keyword      string
	Locale       string
	TargetDomain string
}

// Config sets the pacing and depth of a scan.
type Config struct {
	TotalPages int
	PerPage    int
	PageDelay  time.Duration
	JitterMin  time.Duration
	JitterMax  time.Duration
}

// Orchestrator runs scans. The run goroutine is the sole writer of scan
// state; everyone else reads published snapshots.
type Orchestrator struct {
	fetcher browser.Fetcher
	store   store.Store
	cfg     Config
	log     logger.Logger
	rng     *rand.Rand

	mu      sync.Mutex
	running bool
	current *models.ScanState
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(f browser.Fetcher, st store.Store, cfg Config, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher: f,
		store:   st,
		cfg:     cfg,
		log:     log,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start launches a scan in the background and returns its initial
// state. Only one scan may run at a time.
func (o *Orchestrator) Start(req Request) (*models.ScanState, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return nil, errors.New("keyword is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil, ErrScanInProgress
	}

	state := &models.ScanState{
		ID:           uuid.NewString(),
		Keyword:      keyword,
		Locale:       strings.TrimSpace(req.Locale),
		TargetDomain: match.Normalize(req.TargetDomain),
		Status:       models.StatusRunning,
		TotalPages:   o.cfg.TotalPages,
		Phrases:      map[string]int{},
		StartedAt:    time.Now().UTC(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.running = true
	o.current = state.Clone()
	o.cancel = cancel
	o.done = make(chan struct{})

	go o.run(ctx, state)
	return state.Clone(), nil
}

// Cancel aborts the running scan. It reports whether a scan was
// actually running.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return false
	}
	o.cancel()
	return true
}

// Current returns the latest published snapshot, running or not.
func (o *Orchestrator) Current() (*models.ScanState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil, false
	}
	return o.current.Clone(), true
}

// Running reports whether a scan is in flight.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Done returns a channel closed when the active scan finishes. Nil when
// no scan has started.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

func (o *Orchestrator) run(ctx context.Context, state *models.ScanState) {
	defer func() {
		o.mu.Lock()
		o.running = false
		close(o.done)
		o.mu.Unlock()
	}()

	log := o.log.With(logger.String("scanId", state.ID), logger.String("keyword", state.Keyword))
	log.Info("scan started", logger.Int("pages", state.TotalPages))

	// Burst 1 lets the first page through immediately; every later page
	// waits out the inter-page delay.
	limiter := rate.NewLimiter(rate.Every(o.cfg.PageDelay), 1)

	fetchedOK := 0
	for page := 0; page < state.TotalPages; page++ {
		if err := limiter.Wait(ctx); err != nil {
			o.finish(state, models.StatusCancelled, log)
			return
		}
		if err := sleepCtx(ctx, o.jitter()); err != nil {
			o.finish(state, models.StatusCancelled, log)
			return
		}

		state.CurrentPage = page + 1
		o.publish(state)

		// Cancellation is cooperative and observed only between pages:
		// an in-flight fetch runs to completion and its page still
		// counts toward the scan.
		pageURL := browser.SearchURL(state.Keyword, state.Locale, page, o.cfg.PerPage)
		pageData, err := o.fetcher.Fetch(context.WithoutCancel(ctx), pageURL)
		if errors.Is(err, browser.ErrBotChallenge) {
			state.CaptchaPage = page + 1
			log.Warn("bot challenge, aborting scan", logger.Int("page", state.CaptchaPage))
			o.finish(state, models.StatusCaptcha, log)
			return
		}
		if err != nil {
			log.Warn("page fetch failed, continuing", logger.Int("page", page+1), logger.Error(err))
			o.publish(state)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageData.HTML))
		if err != nil {
			log.Warn("page parse failed, continuing", logger.Int("page", page+1), logger.Error(err))
			continue
		}
		fetchedOK++

		results, debug := extract.Results(doc, pageData.URL)
		log.Info("page scanned",
			logger.Int("page", page+1),
			logger.Int("results", len(results)),
			logger.String("stage", debug.Stage))

		for _, r := range results {
			r.Position = len(state.Results) + 1
			state.Results = append(state.Results, r)
		}
		if page < phrasePages {
			for _, r := range results {
				phrases.Accumulate(r.Title, state.Phrases)
				phrases.Accumulate(r.Snippet, state.Phrases)
			}
		}
		if page == 0 {
			state.Questions = extract.Questions(doc)
		}
		o.publish(state)
	}

	// Every single page failing means the browser or network is broken,
	// not that the keyword has no results.
	if fetchedOK == 0 {
		o.finish(state, models.StatusError, log)
		return
	}
	o.finish(state, models.StatusCompleted, log)
}

// finish moves the scan to a terminal state. The matcher runs on
// whatever results accumulated, so aborted scans still report a rank
// when the target already surfaced.
func (o *Orchestrator) finish(state *models.ScanState, status models.Status, log logger.Logger) {
	state.Status = status
	state.EndedAt = time.Now().UTC()

	if state.TargetDomain != "" {
		if pos, url, ok := match.Match(state.Results, state.TargetDomain); ok {
			state.RankingPosition = pos
			state.RankingURL = url
		}
	}
	state.Summary = summarize(state)

	o.publish(state)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.store.AppendHistory(ctx, state); err != nil {
		log.Error("failed to record scan history", logger.Error(err))
	}

	log.Info("scan finished",
		logger.String("status", string(status)),
		logger.Int("results", len(state.Results)),
		logger.Int("rankingPosition", state.RankingPosition),
		logger.Duration("duration", state.Duration()))
}

// publish clones the state for readers and persists it so a restart
// loses at most one page of progress.
func (o *Orchestrator) publish(state *models.ScanState) {
	snapshot := state.Clone()

	o.mu.Lock()
	o.current = snapshot
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.store.SaveCurrent(ctx, snapshot); err != nil {
		o.log.Error("failed to persist scan state", logger.Error(err))
	}
}

func (o *Orchestrator) jitter() time.Duration {
	spread := o.cfg.JitterMax - o.cfg.JitterMin
	if spread <= 0 {
		return o.cfg.JitterMin
	}
	o.mu.Lock()
	d := time.Duration(o.rng.Int63n(int64(spread)))
	o.mu.Unlock()
	return o.cfg.JitterMin + d
}

func summarize(state *models.ScanState) string {
	switch state.Status {
	case models.StatusCaptcha:
		return fmt.Sprintf("Scan stopped by a verification challenge on page %d; %d results collected before the block.",
			state.CaptchaPage, len(state.Results))
	case models.StatusCancelled:
		return fmt.Sprintf("Scan cancelled after page %d with %d results collected.",
			state.CurrentPage, len(state.Results))
	case models.StatusError:
		return fmt.Sprintf("Scan failed after page %d with %d results collected.",
			state.CurrentPage, len(state.Results))
	}

	if len(state.Results) == 0 {
		return "No results could be extracted; the page layout may have changed."
	}
	if state.TargetDomain == "" {
		return fmt.Sprintf("Collected %d results across %d pages.", len(state.Results), state.CurrentPage)
	}
	if state.RankingPosition > 0 {
		return fmt.Sprintf("%s found at position %d.", state.TargetDomain, state.RankingPosition)
	}
	return fmt.Sprintf("%s not found in the first %d results.", state.TargetDomain, len(state.Results))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
