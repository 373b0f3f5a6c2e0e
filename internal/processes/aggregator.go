package processes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recruitment_backend/internal/milestones"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Window is a half-open range of calendar days [From, To).
type Window struct {
	Label string    `json:"label"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// Month returns the window covering one calendar month.
func Month(year, month int) (Window, error) {
	if year < 1 || month < 1 || month > 12 {
		return Window{}, apperr.Validation(fmt.Sprintf("invalid month %04d-%02d", year, month))
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Window{
		Label: fmt.Sprintf("%04d-%02d", year, month),
		From:  from,
		To:    from.AddDate(0, 1, 0),
	}, nil
}

// ISOWeek returns the window covering one ISO 8601 week, Monday to Sunday.
func ISOWeek(year, week int) (Window, error) {
	if year < 1 || week < 1 || week > isoWeeksIn(year) {
		return Window{}, apperr.Validation(fmt.Sprintf("invalid ISO week %04d-W%02d", year, week))
	}
	// January 4th is always in week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	from := jan4.AddDate(0, 0, -offset+(week-1)*7)
	return Window{
		Label: fmt.Sprintf("%04d-W%02d", year, week),
		From:  from,
		To:    from.AddDate(0, 0, 7),
	}, nil
}

// ParseWindow reads a month written "2026-03" or an ISO week written
// "2026-W11".
func ParseWindow(raw string) (Window, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	var year, n int
	if strings.Contains(raw, "-W") {
		if _, err := fmt.Sscanf(raw, "%4d-W%2d", &year, &n); err != nil || len(raw) != len("2006-W01") {
			return Window{}, apperr.Validation(fmt.Sprintf("invalid ISO week %q, want YYYY-Www", raw))
		}
		return ISOWeek(year, n)
	}
	if _, err := fmt.Sscanf(raw, "%4d-%2d", &year, &n); err != nil || len(raw) != len("2006-01") {
		return Window{}, apperr.Validation(fmt.Sprintf("invalid month %q, want YYYY-MM", raw))
	}
	return Month(year, n)
}

func isoWeeksIn(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// Contains reports whether day's calendar date lies in the window.
func (w Window) Contains(day time.Time) bool {
	d := milestones.Date(day)
	return !d.Before(w.From) && d.Before(w.To)
}

// Bucket pairs a count with the ids it counts.
type Bucket struct {
	Count int         `json:"count"`
	IDs   []uuid.UUID `json:"ids"`
}

func (b *Bucket) add(id uuid.UUID) {
	b.Count++
	b.IDs = append(b.IDs, id)
}

// Urgency classifies processes by their own deadline.
type Urgency struct {
	Overdue    Bucket `json:"overdue"`
	DueSoon    Bucket `json:"due_soon"`
	OnTrack    Bucket `json:"on_track"`
	NoDeadline Bucket `json:"no_deadline"`
	Completed  Bucket `json:"completed"`
}

// MilestoneUrgency counts the milestones of the window's processes.
type MilestoneUrgency struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
	DueSoon    int `json:"due_soon"`
	Warning    int `json:"warning"`
	Completed  int `json:"completed"`
}

// Summary describes the processes started in a window.
type Summary struct {
	Window      Window           `json:"window"`
	Now         time.Time        `json:"now"`
	HorizonDays int              `json:"horizon_days"`
	Total       int              `json:"total"`
	InProgress  int              `json:"in_progress"`
	Paused      int              `json:"paused"`
	Completed   int              `json:"completed"`
	Cancelled   int              `json:"cancelled"`
	ByStatus    map[string]int   `json:"by_status"`
	Urgency     Urgency          `json:"urgency"`
	Milestones  MilestoneUrgency `json:"milestones"`
}

// BuildSummary aggregates ps and their milestones ms. Processes outside w
// and milestones of other processes are ignored. Every classification uses
// the same now.
func BuildSummary(w Window, ps []Process, ms []milestones.Milestone, now time.Time, horizonDays int) Summary {
	sum := Summary{
		Window:      w,
		Now:         now,
		HorizonDays: horizonDays,
		ByStatus:    make(map[string]int, len(Statuses)),
	}
	for _, st := range Statuses {
		sum.ByStatus[string(st)] = 0
	}

	inWindow := make(map[uuid.UUID]bool, len(ps))
	for _, p := range ps {
		if !w.Contains(p.StartDate) {
			continue
		}
		inWindow[p.ID] = true

		sum.Total++
		sum.ByStatus[string(p.Status)]++
		switch p.Status {
		case StatusInProgress:
			sum.InProgress++
		case StatusPaused:
			sum.Paused++
		case StatusCompleted:
			sum.Completed++
		case StatusCancelled:
			sum.Cancelled++
		}

		classifyDeadline(&sum.Urgency, p, now, horizonDays)
	}

	for _, m := range ms {
		if !inWindow[m.ProcessID] {
			continue
		}
		mu := &sum.Milestones
		mu.Total++
		switch milestones.Classify(m, now) {
		case milestones.StatusPending:
			mu.Pending++
		case milestones.StatusInProgress:
			mu.InProgress++
		case milestones.StatusOverdue:
			mu.Overdue++
		case milestones.StatusCompleted:
			mu.Completed++
		}
		if milestones.IsDueSoon(m, now, horizonDays) {
			mu.DueSoon++
		}
		if milestones.InWarningWindow(m, now) {
			mu.Warning++
		}
	}

	return sum
}

// classifyDeadline treats the process deadline as a single milestone that a
// closed process has completed. A process without a deadline is no_deadline
// whatever its status.
func classifyDeadline(u *Urgency, p Process, now time.Time, horizonDays int) {
	if p.Deadline == nil {
		u.NoDeadline.add(p.ID)
		return
	}
	if p.Status.Closed() {
		u.Completed.add(p.ID)
		return
	}

	deadline := milestones.Milestone{ProcessID: p.ID, DueDate: p.Deadline}
	switch {
	case milestones.IsOverdue(deadline, now):
		u.Overdue.add(p.ID)
	case milestones.IsDueSoon(deadline, now, horizonDays):
		u.DueSoon.add(p.ID)
	default:
		u.OnTrack.add(p.ID)
	}
}

// ProcessLister loads the processes of a window. *Repository implements it.
type ProcessLister interface {
	ListStartedBetween(ctx context.Context, q db.DBTX, from, to time.Time) ([]Process, error)
}

// MilestoneLister loads the milestones of a window's processes.
// *milestones.Repository implements it.
type MilestoneLister interface {
	ListForProcessesStartedBetween(ctx context.Context, q db.DBTX, from, to time.Time) ([]milestones.Milestone, error)
}

// Aggregator builds period summaries from persisted state.
type Aggregator struct {
	processes   ProcessLister
	milestones  MilestoneLister
	q           db.DBTX
	horizonDays int
	log         *logger.Logger
}

// NewAggregator creates an Aggregator. q must be safe for concurrent use,
// such as a pool.
func NewAggregator(processes ProcessLister, ms MilestoneLister, q db.DBTX, horizonDays int, log *logger.Logger) *Aggregator {
	return &Aggregator{processes: processes, milestones: ms, q: q, horizonDays: horizonDays, log: log}
}

// Summarize loads the window's processes and milestones concurrently and
// aggregates them at now.
func (a *Aggregator) Summarize(ctx context.Context, w Window, now time.Time) (Summary, error) {
	var (
		ps []Process
		ms []milestones.Milestone
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ps, err = a.processes.ListStartedBetween(gctx, a.q, w.From, w.To)
		return err
	})
	g.Go(func() error {
		var err error
		ms, err = a.milestones.ListForProcessesStartedBetween(gctx, a.q, w.From, w.To)
		return err
	})
	if err := g.Wait(); err != nil {
		a.log.DatabaseError("processes.Summarize", err)
		return Summary{}, apperr.Ensure(err, "processes.Summarize")
	}

	sum := BuildSummary(w, ps, ms, now, a.horizonDays)
	a.log.Debug("summary built", "window", w.Label, "processes", sum.Total, "milestones", sum.Milestones.Total)
	return sum, nil
}
