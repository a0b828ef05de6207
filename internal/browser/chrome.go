package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"serprank/pkg/logger"
)

// ChromeFetcher drives a shared headless Chrome process and opens a
// fresh tab per fetch.
type ChromeFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc

	navTimeout  time.Duration
	settleDelay time.Duration
	log         logger.Logger
}

// Options configures the headless browser.
type Options struct {
	Headless    bool
	UserAgent   string
	NavTimeout  time.Duration
	SettleDelay time.Duration
}

// NewChrome starts a browser allocator. The browser process itself
// launches lazily on the first fetch.
func NewChrome(opts Options, log logger.Logger) *ChromeFetcher {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 900),
		chromedp.UserAgent(opts.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &ChromeFetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		navTimeout:  opts.NavTimeout,
		settleDelay: opts.SettleDelay,
		log:         log,
	}
}

// Fetch opens a tab, navigates, waits for the page to settle, captures
// the rendered document and closes the tab. A slow navigation is not
// fatal: after the timeout the capture proceeds with whatever rendered.
func (f *ChromeFetcher) Fetch(ctx context.Context, pageURL string) (PageData, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx)
	defer cancelTab()

	// Honor caller cancellation while the tab context drives Chrome.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	navCtx, cancelNav := context.WithTimeout(tabCtx, f.navTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(pageURL))
	cancelNav()
	if err != nil {
		if ctx.Err() != nil {
			return PageData{}, ctx.Err()
		}
		if navCtx.Err() != context.DeadlineExceeded {
			return PageData{}, err
		}
		f.log.Warn("navigation timed out, capturing current state", logger.String("url", pageURL))
	}

	var rendered string
	err = chromedp.Run(tabCtx,
		chromedp.Sleep(f.settleDelay),
		chromedp.OuterHTML("html", &rendered),
	)
	if err != nil {
		if ctx.Err() != nil {
			return PageData{}, ctx.Err()
		}
		return PageData{}, err
	}

	page := PageData{URL: pageURL, HTML: rendered}
	if IsBotChallenge(rendered) {
		return page, ErrBotChallenge
	}
	return page, nil
}

// Close shuts down the browser process.
func (f *ChromeFetcher) Close() error {
	f.allocCancel()
	return nil
}
