package main

import (
	"flag"
	"fmt"
	"os"

	"serprank/internal/browser"
	"serprank/internal/config"
	"serprank/internal/export"
	"serprank/internal/scan"
	"serprank/internal/store"
	"serprank/pkg/logger"
)

func main() {
	keyword := flag.String("keyword", "", "search phrase to scan for (required)")
	domain := flag.String("domain", "", "domain to locate in the results")
	locale := flag.String("locale", "", "interface language, e.g. en or de")
	pages := flag.Int("pages", 0, "number of result pages to scan (overrides env)")
	format := flag.String("format", "json", "export format: json or csv")
	out := flag.String("out", "", "write the export to this file instead of stdout")
	flag.Parse()

	if *keyword == "" {
		fmt.Fprintln(os.Stderr, "usage: serprank-cli -keyword <phrase> [-domain example.com] [-pages 10]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("config: %v", err)
	}
	if *pages > 0 {
		cfg.TotalPages = *pages
	}

	exportFormat, err := export.ParseFormat(*format)
	if err != nil {
		fatal("%v", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fatal("logger: %v", err)
	}
	defer log.Sync()

	fetcher := browser.NewChrome(browser.Options{
		Headless:    cfg.Headless,
		UserAgent:   cfg.UserAgent,
		NavTimeout:  cfg.NavTimeout,
		SettleDelay: cfg.SettleDelay,
	}, log)
	defer fetcher.Close()

	// One-shot runs have no history worth keeping on disk.
	st := store.NewMemory(cfg.HistoryCap)

	scans := scan.New(fetcher, st, scan.Config{
		TotalPages: cfg.TotalPages,
		PerPage:    cfg.ResultsPerQty,
		PageDelay:  cfg.PageDelay,
		JitterMin:  cfg.JitterMin,
		JitterMax:  cfg.JitterMax,
	}, log)

	if _, err := scans.Start(scan.Request{
		Keyword:      *keyword,
		Locale:       *locale,
		TargetDomain: *domain,
	}); err != nil {
		fatal("start scan: %v", err)
	}
	<-scans.Done()

	state, ok := scans.Current()
	if !ok {
		fatal("scan produced no state")
	}
	fmt.Fprintln(os.Stderr, state.Summary)

	body, err := export.Render(state, exportFormat)
	if err != nil {
		fatal("render export: %v", err)
	}
	if *out == "" {
		os.Stdout.Write(body)
		return
	}
	if err := os.WriteFile(*out, body, 0o644); err != nil {
		fatal("write %s: %v", *out, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
