package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"recruitment_backend/internal/app"
	"recruitment_backend/internal/processes"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/config"
	"recruitment_backend/platform/logger"
)

func main() {
	month := flag.String("month", "", "calendar month to summarize, YYYY-MM")
	week := flag.String("week", "", "ISO week to summarize, YYYY-Www")
	flag.Parse()

	if (*month == "") == (*week == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -month or -week is required")
		flag.Usage()
		os.Exit(2)
	}
	raw := *month
	if raw == "" {
		raw = *week
	}
	window, err := processes.ParseWindow(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Logs go to stderr so stdout carries only the summary.
	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, window, os.Stdout); err != nil {
		log.Error("process summary failed", "window", window.Label, "code", apperr.GetKind(err).String(), "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, window processes.Window, out io.Writer) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Aggregator.Summarize(ctx, window, a.Now())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
