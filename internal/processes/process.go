// Package processes manages hiring processes: their stage in the module
// workflow, their status, and period summaries of their deadlines.
package processes

import (
	"fmt"
	"strings"
	"time"

	"recruitment_backend/internal/stages"
	"recruitment_backend/platform/apperr"

	"github.com/google/uuid"
)

// Status is the administrative state of a process, independent of its stage.
type Status string

const (
	StatusInProgress Status = "En Proceso"
	StatusPaused     Status = "Pausado"
	StatusCompleted  Status = "Completado"
	StatusCancelled  Status = "Cancelado"
)

// Statuses lists every process status in display order.
var Statuses = []Status{StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled}

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (Status, error) {
	for _, s := range Statuses {
		if strings.EqualFold(strings.Join(strings.Fields(raw), " "), string(s)) {
			return s, nil
		}
	}
	return "", apperr.Validation(fmt.Sprintf("unknown process status %q", raw))
}

// Closed reports whether the process is finished, successfully or not.
func (s Status) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Process is a client's hiring request.
type Process struct {
	ID                  uuid.UUID
	ClientName          string
	ContactName         string
	ContactEmail        string
	PositionTitle       string
	ServiceType         stages.ServiceType
	Stage               stages.Stage
	Status              Status
	Vacancies           int
	ConsultantName      string
	StartDate           time.Time
	Deadline            *time.Time
	EvaluationHeadcount int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Draft is the input for opening a process.
type Draft struct {
	ClientName     string     `validate:"notblank,max=200"`
	ContactName    string     `validate:"max=200"`
	ContactEmail   string     `validate:"omitempty,email,max=254"`
	PositionTitle  string     `validate:"notblank,max=200"`
	ServiceType    string     `validate:"required,oneof=PC LL HH TS ES pc ll hh ts es"`
	Vacancies      int        `validate:"gte=0,lte=1000"`
	ConsultantName string     `validate:"max=200"`
	StartDate      time.Time  `validate:"required"`
	Deadline       *time.Time `validate:"omitempty"`
}
