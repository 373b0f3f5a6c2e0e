package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"recruitment_backend/internal/app"
	"recruitment_backend/internal/onboarding"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/config"
	"recruitment_backend/platform/logger"
)

func main() {
	path := flag.String("file", "", "cohort JSON file; CV paths inside it are relative to the file")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *path, os.Stdout); err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Details != nil {
			log.Error("onboarding failed", "code", appErr.Code(), "error", err, "details", appErr.Details)
		} else {
			log.Error("onboarding failed", "code", apperr.GetKind(err).String(), "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	cohort, err := readCohort(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	entries, closeCVs, err := cohort.entries(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer closeCVs()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var res onboarding.BulkResult
	if cohort.Process != nil {
		draft, err := cohort.Process.draft()
		if err != nil {
			return err
		}
		res, err = a.Onboarding.CreateProcessWithCandidates(ctx, draft, entries)
		if err != nil {
			return err
		}
	} else {
		res, err = a.Onboarding.AddCandidatesToProcess(ctx, *cohort.ProcessID, entries)
		if err != nil {
			return err
		}
	}

	log.Info("cohort onboarded", "process_id", res.Process.ID, "applications", len(res.Applications))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report(res))
}

type applicationReport struct {
	ApplicationID string `json:"application_id"`
	CandidateID   string `json:"candidate_id"`
	Candidate     string `json:"candidate"`
	Email         string `json:"email"`
	Reused        bool   `json:"reused_candidate"`
	Degraded      bool   `json:"degraded_name"`
	Status        string `json:"status"`
	Portal        string `json:"portal"`
	CVStored      bool   `json:"cv_stored"`
}

type cohortReport struct {
	ProcessID           string              `json:"process_id"`
	EvaluationHeadcount int                 `json:"evaluation_headcount"`
	Applications        []applicationReport `json:"applications"`
}

func report(res onboarding.BulkResult) cohortReport {
	out := cohortReport{
		ProcessID:           res.Process.ID.String(),
		EvaluationHeadcount: res.Process.EvaluationHeadcount,
		Applications:        make([]applicationReport, 0, len(res.Applications)),
	}
	for _, a := range res.Applications {
		out.Applications = append(out.Applications, applicationReport{
			ApplicationID: a.Application.ID.String(),
			CandidateID:   a.Candidate.Record.ID.String(),
			Candidate:     a.Candidate.Record.FullName(),
			Email:         a.Candidate.Record.Email,
			Reused:        a.Candidate.Reused,
			Degraded:      a.Candidate.Degraded,
			Status:        a.Application.Status,
			Portal:        a.Application.Portal,
			CVStored:      a.CVStored,
		})
	}
	return out
}
