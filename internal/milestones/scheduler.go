// Package milestones derives the lifecycle status of process milestones
// from their anchor dates and keeps the per-service milestone plans.
package milestones

import (
	"time"

	"github.com/google/uuid"
)

// Status is the derived lifecycle state of a milestone.
type Status string

const (
	StatusPending    Status = "pendiente"
	StatusInProgress Status = "en_progreso"
	StatusOverdue    Status = "vencido"
	StatusCompleted  Status = "completado"
)

// Milestone is a deadline item of a process. BaseDate and DueDate are
// calendar dates; only their year, month and day are meaningful.
type Milestone struct {
	ID           uuid.UUID
	ProcessID    uuid.UUID
	Name         string
	Trigger      Trigger
	DurationDays int
	WarningDays  int
	Position     int
	BaseDate     *time.Time
	DueDate      *time.Time
	CompletedAt  *time.Time
	// StatusFlag is an optional status stored by hand. Only "vencido" is honored.
	StatusFlag *string
}

// Completed reports whether the milestone has a completion timestamp.
func (m Milestone) Completed() bool {
	return m.CompletedAt != nil
}

// Classify returns the status of m at now. A completed milestone stays
// completed however late it was.
func Classify(m Milestone, now time.Time) Status {
	switch {
	case m.Completed():
		return StatusCompleted
	case IsOverdue(m, now):
		return StatusOverdue
	case m.BaseDate != nil && m.DueDate != nil:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// IsOverdue reports whether m is past due at now. A milestone due today is
// not overdue.
func IsOverdue(m Milestone, now time.Time) bool {
	if m.Completed() {
		return false
	}
	if m.StatusFlag != nil && Status(*m.StatusFlag) == StatusOverdue {
		return true
	}
	return m.DueDate != nil && DaysUntil(*m.DueDate, now) < 0
}

// IsDueSoon reports whether m falls due within horizonDays of now, today
// included.
func IsDueSoon(m Milestone, now time.Time, horizonDays int) bool {
	if m.Completed() || m.DueDate == nil {
		return false
	}
	d := DaysUntil(*m.DueDate, now)
	return d >= 0 && d < horizonDays
}

// InWarningWindow reports whether m is due soon according to its own
// warning lead time.
func InWarningWindow(m Milestone, now time.Time) bool {
	return IsDueSoon(m, now, m.WarningDays)
}

// DaysUntil returns the number of calendar days from now's date, taken in
// now's location, to date.
func DaysUntil(date, now time.Time) int {
	return int(Date(date).Sub(Date(now)).Hours() / 24)
}

// Date strips the clock from t, keeping its calendar day in t's location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
