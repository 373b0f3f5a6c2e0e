// Package applications manages the link between a candidate and a process:
// the consultant's evaluation, the candidate status workflow, the client's
// response and the stored CV.
package applications

import (
	"fmt"
	"strings"
	"time"

	"recruitment_backend/platform/apperr"

	"github.com/google/uuid"
)

// Candidate status names. Rows are seeded by migration.
const (
	StatusApplied      = "Postulado"
	StatusPresented    = "Presentado"
	StatusNotPresented = "No Presentado"
	StatusApproved     = "Aprobado"
	StatusRejected     = "Rechazado"
	StatusHired        = "Contratado"
)

var transitions = map[string][]string{
	StatusApplied:      {StatusPresented, StatusNotPresented},
	StatusPresented:    {StatusApproved, StatusRejected},
	StatusNotPresented: {StatusRejected},
	StatusApproved:     {StatusHired, StatusRejected},
}

// CanTransition reports whether an application may move from one status to
// another. Rechazado and Contratado are final.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsKnownStatus reports whether name is one of the seeded statuses.
func IsKnownStatus(name string) bool {
	switch name {
	case StatusApplied, StatusPresented, StatusNotPresented, StatusApproved, StatusRejected, StatusHired:
		return true
	}
	return false
}

// ClientResponse is the client's verdict on a presented candidate.
type ClientResponse string

const (
	ClientPending  ClientResponse = "Pendiente"
	ClientApproved ClientResponse = "Aprobado"
	ClientRejected ClientResponse = "Rechazado"
)

// ParseClientResponse accepts the response name in any case.
func ParseClientResponse(raw string) (ClientResponse, error) {
	for _, r := range []ClientResponse{ClientPending, ClientApproved, ClientRejected} {
		if strings.EqualFold(strings.TrimSpace(raw), string(r)) {
			return r, nil
		}
	}
	return "", apperr.Validation(fmt.Sprintf("unknown client response %q", raw))
}

// Status returns the candidate status a response implies, if any.
func (r ClientResponse) Status() (string, bool) {
	switch r {
	case ClientApproved:
		return StatusApproved, true
	case ClientRejected:
		return StatusRejected, true
	default:
		return "", false
	}
}

// Application links one candidate to one process.
type Application struct {
	ID                uuid.UUID
	CandidateID       uuid.UUID
	ProcessID         uuid.UUID
	PortalID          int64
	StatusID          int64
	Rating            *int
	Motivation        string
	SalaryExpectation string
	Availability      string
	Comment           string
	ClientResponse    ClientResponse
	HasCV             bool
	CVKey             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Record is an application with portal, status and candidate names.
type Record struct {
	Application
	Portal         string
	Status         string
	CandidateName  string
	CandidateEmail string
}

// Evaluation holds the consultant-editable fields of an application.
type Evaluation struct {
	Rating            *int
	Motivation        string
	SalaryExpectation string
	Availability      string
	Comment           string
}
