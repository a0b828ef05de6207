package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"serprank/internal/api"
	"serprank/internal/browser"
	"serprank/internal/config"
	"serprank/internal/scan"
	"serprank/internal/store"
	"serprank/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	st, err := store.NewSQLite(cfg.DBPath, cfg.HistoryCap)
	if err != nil {
		log.Fatal("failed to open store", logger.Error(err))
	}
	defer st.Close()

	fetcher := browser.NewChrome(browser.Options{
		Headless:    cfg.Headless,
		UserAgent:   cfg.UserAgent,
		NavTimeout:  cfg.NavTimeout,
		SettleDelay: cfg.SettleDelay,
	}, log)
	defer fetcher.Close()

	scans := scan.New(fetcher, st, scan.Config{
		TotalPages: cfg.TotalPages,
		PerPage:    cfg.ResultsPerQty,
		PageDelay:  cfg.PageDelay,
		JitterMin:  cfg.JitterMin,
		JitterMax:  cfg.JitterMax,
	}, log)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewServer(scans, st, log).Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	scans.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", logger.Error(err))
	}
}
